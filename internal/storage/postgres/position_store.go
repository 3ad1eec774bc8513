package postgres

import (
	"context"
	"fmt"

	"bot-reconciler/internal/domain"
	"bot-reconciler/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
func (s *PositionStore) Insert(ctx context.Context, p *domain.PositionRecord) error {
	query := `
		INSERT INTO positions (
			position_id, bot_id, user_id, trade_id, side,
			entry_price, exit_price, quantity, fee, pnl, status, closed_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := s.pool.Exec(ctx, query,
		p.PositionID, p.BotID, p.UserID, p.TradeID, p.Side,
		p.EntryPrice, p.ExitPrice, p.Quantity, p.Fee, p.PnL, p.Status, p.ClosedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// GetByBot retrieves all positions for a bot owned by the given user,
// ordered by closed_at ASC. An empty userID matches any owner.
func (s *PositionStore) GetByBot(ctx context.Context, botID, userID string) ([]*domain.PositionRecord, error) {
	query := `
		SELECT
			position_id, bot_id, user_id, trade_id, side,
			entry_price, exit_price, quantity, fee, pnl, status, closed_at
		FROM positions
		WHERE bot_id = $1 AND ($2 = '' OR user_id = $2)
		ORDER BY closed_at ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, botID, userID)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var positions []*domain.PositionRecord
	for rows.Next() {
		var p domain.PositionRecord
		var entry, exit, qty, fee, pnl any
		if err := rows.Scan(
			&p.PositionID, &p.BotID, &p.UserID, &p.TradeID, &p.Side,
			&entry, &exit, &qty, &fee, &pnl, &p.Status, &p.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		p.EntryPrice = asFloat(entry)
		p.ExitPrice = asFloatPtr(exit)
		p.Quantity = asFloat(qty)
		p.Fee = asFloat(fee)
		p.PnL = asFloatPtr(pnl)
		positions = append(positions, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}

	return positions, nil
}
