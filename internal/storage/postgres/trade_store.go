package postgres

import (
	"context"
	"fmt"

	"bot-reconciler/internal/domain"
	"bot-reconciler/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	query := `
		INSERT INTO live_trades (
			trade_id, bot_id, user_id, status, side,
			entry_price, exit_price, quantity, pnl, fee, executed_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11
		)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.BotID, t.UserID, t.Status, t.Side,
		t.EntryPrice, t.ExitPrice, t.Quantity, t.PnL, t.Fee, t.ExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert live trade: %w", err)
	}
	return nil
}

// GetByBot retrieves all trades for a bot owned by the given user, ordered
// by executed_at ASC. An empty userID matches any owner.
func (s *TradeStore) GetByBot(ctx context.Context, botID, userID string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT
			trade_id, bot_id, user_id, status, side,
			entry_price, exit_price, quantity, pnl, fee, executed_at
		FROM live_trades
		WHERE bot_id = $1 AND ($2 = '' OR user_id = $2)
		ORDER BY executed_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, botID, userID)
	if err != nil {
		return nil, fmt.Errorf("query live trades: %w", err)
	}
	defer rows.Close()

	var trades []*domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var entry, exit, qty, pnl, fee any
		if err := rows.Scan(
			&t.TradeID, &t.BotID, &t.UserID, &t.Status, &t.Side,
			&entry, &exit, &qty, &pnl, &fee, &t.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("scan live trade: %w", err)
		}
		t.EntryPrice = asFloat(entry)
		t.ExitPrice = asFloatPtr(exit)
		t.Quantity = asFloat(qty)
		t.PnL = asFloatPtr(pnl)
		t.Fee = asFloat(fee)
		trades = append(trades, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate live trades: %w", err)
	}

	return trades, nil
}
