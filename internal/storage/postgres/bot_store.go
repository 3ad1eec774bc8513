package postgres

import (
	"context"
	"fmt"

	"bot-reconciler/internal/domain"
	"bot-reconciler/internal/storage"
)

// BotStore implements storage.BotStore using PostgreSQL. Aggregates are
// upserted whole; UpdateAggregateCore exists for schemas that predate the
// drawdown columns.
type BotStore struct {
	pool *Pool
}

// NewBotStore creates a new BotStore.
func NewBotStore(pool *Pool) *BotStore {
	return &BotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BotStore = (*BotStore)(nil)

// GetAggregate retrieves the stored aggregate for a bot. Returns ErrNotFound
// if the bot has never been reconciled.
func (s *BotStore) GetAggregate(ctx context.Context, botID string) (*domain.BotAggregate, error) {
	query := `
		SELECT
			bot_id, total_trades, closed_trades, win_trades, loss_trades,
			realized_pnl, total_fees, win_rate,
			peak_equity, max_drawdown, drawdown_pct, last_trade_at
		FROM bot_aggregates
		WHERE bot_id = $1
	`

	var agg domain.BotAggregate
	var pnl, fees, winRate, peak, maxDD, ddPct any
	err := s.pool.QueryRow(ctx, query, botID).Scan(
		&agg.BotID, &agg.TotalTrades, &agg.ClosedTrades, &agg.WinTrades, &agg.LossTrades,
		&pnl, &fees, &winRate,
		&peak, &maxDD, &ddPct, &agg.LastTradeAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get bot aggregate: %w", err)
	}
	agg.RealizedPnL = asFloat(pnl)
	agg.TotalFees = asFloat(fees)
	agg.WinRate = asFloat(winRate)
	agg.PeakEquity = asFloat(peak)
	agg.MaxDrawdown = asFloat(maxDD)
	agg.DrawdownPct = asFloat(ddPct)

	return &agg, nil
}

// UpdateAggregate replaces the full stored aggregate for a bot.
func (s *BotStore) UpdateAggregate(ctx context.Context, agg *domain.BotAggregate) error {
	if agg == nil || agg.BotID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO bot_aggregates (
			bot_id, total_trades, closed_trades, win_trades, loss_trades,
			realized_pnl, total_fees, win_rate,
			peak_equity, max_drawdown, drawdown_pct, last_trade_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12
		)
		ON CONFLICT (bot_id) DO UPDATE SET
			total_trades = EXCLUDED.total_trades,
			closed_trades = EXCLUDED.closed_trades,
			win_trades = EXCLUDED.win_trades,
			loss_trades = EXCLUDED.loss_trades,
			realized_pnl = EXCLUDED.realized_pnl,
			total_fees = EXCLUDED.total_fees,
			win_rate = EXCLUDED.win_rate,
			peak_equity = EXCLUDED.peak_equity,
			max_drawdown = EXCLUDED.max_drawdown,
			drawdown_pct = EXCLUDED.drawdown_pct,
			last_trade_at = EXCLUDED.last_trade_at
	`

	_, err := s.pool.Exec(ctx, query,
		agg.BotID, agg.TotalTrades, agg.ClosedTrades, agg.WinTrades, agg.LossTrades,
		agg.RealizedPnL, agg.TotalFees, agg.WinRate,
		agg.PeakEquity, agg.MaxDrawdown, agg.DrawdownPct, agg.LastTradeAt,
	)
	if err != nil {
		return fmt.Errorf("update bot aggregate: %w", err)
	}
	return nil
}

// UpdateAggregateCore writes only the mandatory column subset, leaving any
// stored drawdown columns untouched.
func (s *BotStore) UpdateAggregateCore(ctx context.Context, agg *domain.BotAggregate) error {
	if agg == nil || agg.BotID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO bot_aggregates (
			bot_id, total_trades, closed_trades, win_trades, loss_trades,
			realized_pnl, total_fees, win_rate
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		ON CONFLICT (bot_id) DO UPDATE SET
			total_trades = EXCLUDED.total_trades,
			closed_trades = EXCLUDED.closed_trades,
			win_trades = EXCLUDED.win_trades,
			loss_trades = EXCLUDED.loss_trades,
			realized_pnl = EXCLUDED.realized_pnl,
			total_fees = EXCLUDED.total_fees,
			win_rate = EXCLUDED.win_rate
	`

	_, err := s.pool.Exec(ctx, query,
		agg.BotID, agg.TotalTrades, agg.ClosedTrades, agg.WinTrades, agg.LossTrades,
		agg.RealizedPnL, agg.TotalFees, agg.WinRate,
	)
	if err != nil {
		return fmt.Errorf("update bot aggregate core: %w", err)
	}
	return nil
}
