package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bot-reconciler/internal/domain"
	"bot-reconciler/internal/storage"
	"bot-reconciler/internal/storage/memory"
)

func fptr(v float64) *float64 { return &v }
func sptr(s string) *string   { return &s }

// flaky* wrap a memory store and fail GetByBot for one bot ID.

type flakyTradeStore struct {
	storage.TradeStore
	failBot string
}

func (s flakyTradeStore) GetByBot(ctx context.Context, botID, userID string) ([]*domain.TradeRecord, error) {
	if botID == s.failBot {
		return nil, errors.New("source down")
	}
	return s.TradeStore.GetByBot(ctx, botID, userID)
}

type flakyPaperStore struct {
	storage.PaperTradeStore
	failBot string
}

func (s flakyPaperStore) GetByBot(ctx context.Context, botID, userID string) ([]*domain.TradeRecord, error) {
	if botID == s.failBot {
		return nil, errors.New("source down")
	}
	return s.PaperTradeStore.GetByBot(ctx, botID, userID)
}

type flakyPositionStore struct {
	storage.PositionStore
	failBot string
}

func (s flakyPositionStore) GetByBot(ctx context.Context, botID, userID string) ([]*domain.PositionRecord, error) {
	if botID == s.failBot {
		return nil, errors.New("source down")
	}
	return s.PositionStore.GetByBot(ctx, botID, userID)
}

// seedHistory loads the standard fixture for bot1/user1: two live trades
// (one closed, one open), one losing paper trade, and three positions (one
// matched with a fee already counted, one filling a missing fee, one orphan).
func seedHistory(t *testing.T, trades *memory.TradeStore, paper *memory.PaperTradeStore, positions *memory.PositionStore) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, trades.Insert(ctx, &domain.TradeRecord{
		TradeID: "t1", BotID: "bot1", UserID: "user1",
		Status: "closed", Side: "long",
		EntryPrice: 100, ExitPrice: fptr(110), Quantity: 2, Fee: 1,
		ExecutedAt: 1000,
	}))
	require.NoError(t, trades.Insert(ctx, &domain.TradeRecord{
		TradeID: "t2", BotID: "bot1", UserID: "user1",
		Status: "filled", Side: "long", EntryPrice: 100, Quantity: 1,
		ExecutedAt: 2000,
	}))

	require.NoError(t, paper.Insert(ctx, &domain.TradeRecord{
		TradeID: "pt1", BotID: "bot1", UserID: "user1",
		Status: "stopped", Side: "short", EntryPrice: 50, Quantity: 1,
		PnL: fptr(-5), ExecutedAt: 1500,
	}))

	require.NoError(t, positions.Insert(ctx, &domain.PositionRecord{
		PositionID: "pos1", BotID: "bot1", UserID: "user1",
		TradeID: sptr("t1"), Status: "closed", Side: "long",
		PnL: fptr(19), Fee: 2, ClosedAt: 1100,
	}))
	require.NoError(t, positions.Insert(ctx, &domain.PositionRecord{
		PositionID: "pos2", BotID: "bot1", UserID: "user1",
		TradeID: sptr("pt1"), Status: "closed", Side: "short",
		Fee: 3, ClosedAt: 1600,
	}))
	require.NoError(t, positions.Insert(ctx, &domain.PositionRecord{
		PositionID: "pos3", BotID: "bot1", UserID: "user1",
		Status: "liquidated", Side: "long",
		EntryPrice: 10, ExitPrice: fptr(8), Quantity: 1, Fee: 0.5,
		ClosedAt: 3000,
	}))
}

func newTestDriver(trades storage.TradeStore, paper storage.PaperTradeStore, positions storage.PositionStore, bots storage.BotStore, snapshots storage.AggregateSnapshotStore) *Driver {
	return New(Options{
		TradeStore:    trades,
		PaperStore:    paper,
		PositionStore: positions,
		BotStore:      bots,
		SnapshotStore: snapshots,
		Now:           func() int64 { return 99_000 },
	})
}

func TestDriverReconcileFullHistory(t *testing.T) {
	trades := memory.NewTradeStore()
	paper := memory.NewPaperTradeStore()
	positions := memory.NewPositionStore()
	bots := memory.NewBotStore()
	snapshots := memory.NewAggregateSnapshotStore()
	seedHistory(t, trades, paper, positions)

	d := newTestDriver(trades, paper, positions, bots, snapshots)
	results := d.Reconcile(context.Background(), []string{"bot1"}, "user1")

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	agg := results[0].Aggregate
	require.NotNil(t, agg)

	// t1 (win, backfilled 19), t2 (open), pt1 (loss -5), pos3 (orphan loss
	// -2.5). pos1 dedups against t1; pos2 fills pt1's missing fee.
	assert.Equal(t, 4, agg.TotalTrades)
	assert.Equal(t, 3, agg.ClosedTrades)
	assert.Equal(t, 1, agg.WinTrades)
	assert.Equal(t, 2, agg.LossTrades)
	assert.InDelta(t, 11.5, agg.RealizedPnL, 1e-9)
	assert.InDelta(t, 4.5, agg.TotalFees, 1e-9)
	assert.InDelta(t, 100.0/3, agg.WinRate, 1e-9)
	assert.InDelta(t, 19.0, agg.PeakEquity, 1e-9)
	assert.InDelta(t, 7.5, agg.MaxDrawdown, 1e-9)
	assert.InDelta(t, 7.5/19*100, agg.DrawdownPct, 1e-9)
	require.NotNil(t, agg.LastTradeAt)
	assert.Equal(t, int64(3000), *agg.LastTradeAt)
	assert.False(t, agg.Partial)
	assert.Empty(t, agg.SourceErrors)

	stored, err := bots.GetAggregate(context.Background(), "bot1")
	require.NoError(t, err)
	assert.Equal(t, agg, stored)

	snaps, err := snapshots.GetByBot(context.Background(), "bot1")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, int64(99_000), snaps[0].TakenAt)
	assert.InDelta(t, agg.RealizedPnL, snaps[0].RealizedPnL, 1e-9)
	assert.InDelta(t, agg.MaxDrawdown, snaps[0].MaxDrawdown, 1e-9)
	assert.NotEmpty(t, snaps[0].SnapshotID)
}

func TestDriverPartialWhenOneSourceFails(t *testing.T) {
	trades := memory.NewTradeStore()
	paper := memory.NewPaperTradeStore()
	positions := memory.NewPositionStore()
	bots := memory.NewBotStore()
	seedHistory(t, trades, paper, positions)

	d := newTestDriver(trades, flakyPaperStore{paper, "bot1"}, positions, bots, nil)
	results := d.Reconcile(context.Background(), []string{"bot1"}, "user1")

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	agg := results[0].Aggregate

	assert.True(t, agg.Partial)
	require.Len(t, agg.SourceErrors, 1)
	assert.Contains(t, agg.SourceErrors[0], "PAPER_TRADE")

	// Paper trade pt1 is gone; pos2 now closes as an orphan on pt1's ID.
	assert.Equal(t, 4, agg.TotalTrades)
	assert.Equal(t, 3, agg.ClosedTrades)
}

func TestDriverAllSourcesFailedKeepsPriorAggregate(t *testing.T) {
	bots := memory.NewBotStore()
	prior := &domain.BotAggregate{BotID: "bot1", TotalTrades: 7, RealizedPnL: 42}
	require.NoError(t, bots.UpdateAggregate(context.Background(), prior))

	d := newTestDriver(
		flakyTradeStore{memory.NewTradeStore(), "bot1"},
		flakyPaperStore{memory.NewPaperTradeStore(), "bot1"},
		flakyPositionStore{memory.NewPositionStore(), "bot1"},
		bots, nil,
	)
	results := d.Reconcile(context.Background(), []string{"bot1"}, "user1")

	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.Nil(t, results[0].Aggregate)

	stored, err := bots.GetAggregate(context.Background(), "bot1")
	require.NoError(t, err)
	assert.Equal(t, 7, stored.TotalTrades)
	assert.Equal(t, 42.0, stored.RealizedPnL)
}

func TestDriverEmptyHistoryResetsToZero(t *testing.T) {
	bots := memory.NewBotStore()
	require.NoError(t, bots.UpdateAggregate(context.Background(), &domain.BotAggregate{
		BotID: "bot1", TotalTrades: 7, RealizedPnL: 42, MaxDrawdown: 3,
	}))

	d := newTestDriver(memory.NewTradeStore(), memory.NewPaperTradeStore(), memory.NewPositionStore(), bots, nil)
	results := d.Reconcile(context.Background(), []string{"bot1"}, "user1")

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	stored, err := bots.GetAggregate(context.Background(), "bot1")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.TotalTrades)
	assert.Equal(t, 0.0, stored.RealizedPnL)
	assert.Equal(t, 0.0, stored.MaxDrawdown)
	assert.Nil(t, stored.LastTradeAt)
}

func TestDriverWriteFallbackToCoreColumns(t *testing.T) {
	trades := memory.NewTradeStore()
	paper := memory.NewPaperTradeStore()
	positions := memory.NewPositionStore()
	bots := memory.NewBotStore()
	seedHistory(t, trades, paper, positions)

	bots.FailUpdate = errors.New(`column "max_drawdown" does not exist`)

	d := newTestDriver(trades, paper, positions, bots, nil)
	results := d.Reconcile(context.Background(), []string{"bot1"}, "user1")

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	stored, err := bots.GetAggregate(context.Background(), "bot1")
	require.NoError(t, err)
	assert.Equal(t, 4, stored.TotalTrades)
	assert.InDelta(t, 11.5, stored.RealizedPnL, 1e-9)
	// The core write carries no drawdown columns.
	assert.Equal(t, 0.0, stored.MaxDrawdown)
}

func TestDriverWriteFailureAfterFallback(t *testing.T) {
	trades := memory.NewTradeStore()
	paper := memory.NewPaperTradeStore()
	positions := memory.NewPositionStore()
	bots := memory.NewBotStore()
	seedHistory(t, trades, paper, positions)

	bots.FailUpdate = errors.New("connection reset")
	bots.FailUpdateCore = errors.New("connection reset")

	d := newTestDriver(trades, paper, positions, bots, nil)
	results := d.Reconcile(context.Background(), []string{"bot1"}, "user1")

	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.Nil(t, results[0].Aggregate)
}

func TestDriverBatchSiblingIsolation(t *testing.T) {
	trades := memory.NewTradeStore()
	paper := memory.NewPaperTradeStore()
	positions := memory.NewPositionStore()
	bots := memory.NewBotStore()
	seedHistory(t, trades, paper, positions)

	d := newTestDriver(
		flakyTradeStore{trades, "bad"},
		flakyPaperStore{paper, "bad"},
		flakyPositionStore{positions, "bad"},
		bots, nil,
	)
	results := d.Reconcile(context.Background(), []string{"bot1", "bad"}, "user1")

	require.Len(t, results, 2)
	assert.Equal(t, "bot1", results[0].BotID)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 4, results[0].Aggregate.TotalTrades)

	assert.Equal(t, "bad", results[1].BotID)
	require.Error(t, results[1].Err)
}
