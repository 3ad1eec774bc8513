package postgres

import (
	"context"
	"fmt"

	"bot-reconciler/internal/domain"
	"bot-reconciler/internal/storage"
)

// PaperTradeStore implements storage.PaperTradeStore using PostgreSQL. The
// paper_trades table mirrors live_trades; legacy deployments named several
// of its numeric columns differently, which is why both adapters scan
// numerics defensively instead of assuming float columns.
type PaperTradeStore struct {
	pool *Pool
}

// NewPaperTradeStore creates a new PaperTradeStore.
func NewPaperTradeStore(pool *Pool) *PaperTradeStore {
	return &PaperTradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PaperTradeStore = (*PaperTradeStore)(nil)

// Insert adds a new paper trade. Returns ErrDuplicateKey if trade_id exists.
func (s *PaperTradeStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	query := `
		INSERT INTO paper_trades (
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
		return fmt.Errorf("insert paper trade: %w", err)
	}
	return nil
}

// GetByBot retrieves all paper trades for a bot owned by the given user,
// ordered by executed_at ASC. An empty userID matches any owner.
func (s *PaperTradeStore) GetByBot(ctx context.Context, botID, userID string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT
			trade_id, bot_id, user_id, status, side,
			entry_price, exit_price, quantity, pnl, fee, executed_at
		FROM paper_trades
		WHERE bot_id = $1 AND ($2 = '' OR user_id = $2)
		ORDER BY executed_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, botID, userID)
	if err != nil {
		return nil, fmt.Errorf("query paper trades: %w", err)
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
			return nil, fmt.Errorf("scan paper trade: %w", err)
		}
		t.EntryPrice = asFloat(entry)
		t.ExitPrice = asFloatPtr(exit)
		t.Quantity = asFloat(qty)
		t.PnL = asFloatPtr(pnl)
		t.Fee = asFloat(fee)
		trades = append(trades, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate paper trades: %w", err)
	}

	return trades, nil
}
