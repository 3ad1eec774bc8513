package clickhouse

import (
	"context"
	"fmt"

	"bot-reconciler/internal/domain"
	"bot-reconciler/internal/storage"
)

// AggregateSnapshotStore implements storage.AggregateSnapshotStore using
// ClickHouse. The table is append-only; MergeTree enforces no uniqueness
// and the store never needs it.
type AggregateSnapshotStore struct {
	conn *Conn
}

// NewAggregateSnapshotStore creates a new AggregateSnapshotStore.
func NewAggregateSnapshotStore(conn *Conn) *AggregateSnapshotStore {
	return &AggregateSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AggregateSnapshotStore = (*AggregateSnapshotStore)(nil)

// Insert appends a snapshot row.
func (s *AggregateSnapshotStore) Insert(ctx context.Context, snap *domain.AggregateSnapshot) error {
	if snap == nil || snap.SnapshotID == "" || snap.BotID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO aggregate_snapshots (
			snapshot_id, bot_id, taken_at,
			total_trades, closed_trades, win_trades, loss_trades,
			realized_pnl, total_fees, win_rate,
			peak_equity, max_drawdown, drawdown_pct
		) VALUES (
			?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?
		)
	`

	err := s.conn.Exec(ctx, query,
		snap.SnapshotID, snap.BotID, snap.TakenAt,
		int32(snap.TotalTrades), int32(snap.ClosedTrades), int32(snap.WinTrades), int32(snap.LossTrades),
		snap.RealizedPnL, snap.TotalFees, snap.WinRate,
		snap.PeakEquity, snap.MaxDrawdown, snap.DrawdownPct,
	)
	if err != nil {
		return fmt.Errorf("insert aggregate snapshot: %w", err)
	}
	return nil
}

// GetByBot retrieves snapshots for a bot, ordered by taken_at ASC.
func (s *AggregateSnapshotStore) GetByBot(ctx context.Context, botID string) ([]*domain.AggregateSnapshot, error) {
	query := `
		SELECT
			snapshot_id, bot_id, taken_at,
			total_trades, closed_trades, win_trades, loss_trades,
			realized_pnl, total_fees, win_rate,
			peak_equity, max_drawdown, drawdown_pct
		FROM aggregate_snapshots
		WHERE bot_id = ?
		ORDER BY taken_at ASC, snapshot_id ASC
	`

	rows, err := s.conn.Query(ctx, query, botID)
	if err != nil {
		return nil, fmt.Errorf("query aggregate snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.AggregateSnapshot
	for rows.Next() {
		var snap domain.AggregateSnapshot
		var totalTrades, closedTrades, winTrades, lossTrades int32
		if err := rows.Scan(
			&snap.SnapshotID, &snap.BotID, &snap.TakenAt,
			&totalTrades, &closedTrades, &winTrades, &lossTrades,
			&snap.RealizedPnL, &snap.TotalFees, &snap.WinRate,
			&snap.PeakEquity, &snap.MaxDrawdown, &snap.DrawdownPct,
		); err != nil {
			return nil, fmt.Errorf("scan aggregate snapshot: %w", err)
		}
		snap.TotalTrades = int(totalTrades)
		snap.ClosedTrades = int(closedTrades)
		snap.WinTrades = int(winTrades)
		snap.LossTrades = int(lossTrades)
		snaps = append(snaps, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate snapshots: %w", err)
	}

	return snaps, nil
}
