package storage

import (
	"context"

	"bot-reconciler/internal/domain"
)

// TradeStore provides access to live trade storage.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// GetByBot retrieves all trades for a bot owned by the given user,
	// ordered by executed_at ASC.
	GetByBot(ctx context.Context, botID, userID string) ([]*domain.TradeRecord, error)
}

// PaperTradeStore provides access to paper (simulated) trade storage. The
// physical table differs from live trades but the adapted shape is identical.
type PaperTradeStore interface {
	// Insert adds a new paper trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// GetByBot retrieves all paper trades for a bot owned by the given user,
	// ordered by executed_at ASC.
	GetByBot(ctx context.Context, botID, userID string) ([]*domain.TradeRecord, error)
}

// PositionStore provides access to closed position storage.
type PositionStore interface {
	// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
	Insert(ctx context.Context, p *domain.PositionRecord) error

	// GetByBot retrieves all closed positions for a bot owned by the given
	// user, ordered by closed_at ASC.
	GetByBot(ctx context.Context, botID, userID string) ([]*domain.PositionRecord, error)
}

// BotStore provides access to per-bot aggregate storage.
type BotStore interface {
	// GetAggregate retrieves the stored aggregate for a bot. Returns
	// ErrNotFound if the bot has never been reconciled.
	GetAggregate(ctx context.Context, botID string) (*domain.BotAggregate, error)

	// UpdateAggregate replaces the full stored aggregate for a bot.
	UpdateAggregate(ctx context.Context, agg *domain.BotAggregate) error

	// UpdateAggregateCore writes only the mandatory column subset (counts,
	// pnl, fees, win rate). Used as the fallback when the full update fails
	// against a schema missing the drawdown columns.
	UpdateAggregateCore(ctx context.Context, agg *domain.BotAggregate) error
}

// AggregateSnapshotStore appends one aggregate snapshot per successful
// reconcile, giving consumers a PnL/drawdown history without re-reading the
// full trade history.
type AggregateSnapshotStore interface {
	// Insert appends a snapshot row. Snapshots are append-only.
	Insert(ctx context.Context, s *domain.AggregateSnapshot) error

	// GetByBot retrieves snapshots for a bot, ordered by taken_at ASC.
	GetByBot(ctx context.Context, botID string) ([]*domain.AggregateSnapshot, error)
}
