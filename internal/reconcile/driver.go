package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bot-reconciler/internal/domain"
	"bot-reconciler/internal/normalize"
	"bot-reconciler/internal/observability"
	"bot-reconciler/internal/storage"
)

// Step identifies the reconciliation phase a bot is in. Errors are wrapped
// with the step that produced them.
type Step string

const (
	StepIdle        Step = "idle"
	StepLoading     Step = "loading"
	StepNormalizing Step = "normalizing"
	StepAggregating Step = "aggregating"
	StepPersisting  Step = "persisting"
	StepFailed      Step = "failed"
)

// Driver orchestrates reconciliation for one bot or a batch of bots.
// Flow per bot: load three sources → normalize → aggregate + drawdown →
// persist the full aggregate.
type Driver struct {
	trades    storage.TradeStore
	paper     storage.PaperTradeStore
	positions storage.PositionStore
	bots      storage.BotStore
	snapshots storage.AggregateSnapshotStore

	log     *zap.Logger
	metrics *observability.Metrics
	now     func() int64
}

// Options for creating a Driver.
type Options struct {
	// Required stores.
	TradeStore    storage.TradeStore
	PaperStore    storage.PaperTradeStore
	PositionStore storage.PositionStore
	BotStore      storage.BotStore

	// Optional append-only history sink. Snapshot failures are logged, not
	// propagated.
	SnapshotStore storage.AggregateSnapshotStore

	Logger *zap.Logger

	// Metrics defaults to observability.DefaultMetrics.
	Metrics *observability.Metrics

	// Now overrides the snapshot clock in tests.
	Now func() int64
}

// New creates a new Driver.
func New(opts Options) *Driver {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	m := opts.Metrics
	if m == nil {
		m = observability.DefaultMetrics
	}
	return &Driver{
		trades:    opts.TradeStore,
		paper:     opts.PaperStore,
		positions: opts.PositionStore,
		bots:      opts.BotStore,
		snapshots: opts.SnapshotStore,
		log:       log,
		metrics:   m,
		now:       now,
	}
}

// BotResult is the outcome of reconciling one bot. Exactly one of Aggregate
// or Err is set.
type BotResult struct {
	BotID     string
	Aggregate *domain.BotAggregate
	Err       error
}

// Reconcile recomputes the aggregate for each bot from its full history and
// persists it. Bots are processed in parallel; one bot failing never affects
// its siblings. The result slice is ordered like botIDs.
func (d *Driver) Reconcile(ctx context.Context, botIDs []string, userID string) []BotResult {
	results := make([]BotResult, len(botIDs))

	var wg sync.WaitGroup
	for i, botID := range botIDs {
		wg.Add(1)
		go func(i int, botID string) {
			defer wg.Done()
			agg, err := d.reconcileBot(ctx, botID, userID)
			results[i] = BotResult{BotID: botID, Aggregate: agg, Err: err}
			if err != nil {
				d.metrics.BotsReconciled.WithLabelValues("error").Inc()
			} else if agg.Partial {
				d.metrics.BotsReconciled.WithLabelValues("partial").Inc()
			} else {
				d.metrics.BotsReconciled.WithLabelValues("ok").Inc()
			}
		}(i, botID)
	}
	wg.Wait()

	return results
}

// sourceLoad is the result of reading one record source.
type sourceLoad struct {
	source    domain.Source
	trades    []*domain.TradeRecord
	positions []*domain.PositionRecord
	err       error
}

func (d *Driver) reconcileBot(ctx context.Context, botID, userID string) (*domain.BotAggregate, error) {
	agg, err := d.compute(ctx, botID, userID)
	if err != nil {
		return nil, err
	}
	if agg.Partial {
		d.metrics.PartialAggregates.Inc()
	}

	step := StepPersisting
	if err := d.persist(ctx, agg); err != nil {
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	d.writeSnapshot(ctx, agg)

	return agg, nil
}

// Preview recomputes the aggregate for one bot from its full history without
// persisting anything. Used for drift checks against the stored aggregate.
func (d *Driver) Preview(ctx context.Context, botID, userID string) (*domain.BotAggregate, error) {
	return d.compute(ctx, botID, userID)
}

func (d *Driver) compute(ctx context.Context, botID, userID string) (*domain.BotAggregate, error) {
	step := StepLoading
	loads := d.loadSources(ctx, botID, userID)

	var sourceErrors []string
	failed := 0
	for _, l := range loads {
		if l.err != nil {
			failed++
			sourceErrors = append(sourceErrors, fmt.Sprintf("%s: %v", l.source, l.err))
			d.metrics.SourceLoadErrors.WithLabelValues(string(l.source)).Inc()
			d.log.Warn("record source failed, degrading to partial aggregate",
				zap.String("bot_id", botID),
				zap.String("source", string(l.source)),
				zap.Error(l.err))
		}
	}
	if failed == len(loads) {
		return nil, fmt.Errorf("%s: all record sources failed: %v", step, sourceErrors)
	}

	var tradeOutcomes, positionOutcomes []domain.Outcome
	for _, l := range loads {
		if l.err != nil {
			continue
		}
		for _, t := range l.trades {
			if o, ok := normalize.FromTrade(*t, l.source); ok {
				tradeOutcomes = append(tradeOutcomes, o)
				d.metrics.OutcomesProcessed.WithLabelValues(string(l.source)).Inc()
			}
		}
		for _, p := range l.positions {
			if o, ok := normalize.FromPosition(*p); ok {
				positionOutcomes = append(positionOutcomes, o)
				d.metrics.OutcomesProcessed.WithLabelValues(string(l.source)).Inc()
			}
		}
	}

	step = StepAggregating
	prior, err := d.bots.GetAggregate(ctx, botID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: load prior aggregate: %w", step, err)
	}

	agg := buildAggregate(botID, tradeOutcomes, positionOutcomes, prior)
	agg.Partial = failed > 0
	agg.SourceErrors = sourceErrors

	return agg, nil
}

// loadSources reads the three record sources concurrently.
func (d *Driver) loadSources(ctx context.Context, botID, userID string) []sourceLoad {
	loads := make([]sourceLoad, 3)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		trades, err := d.trades.GetByBot(ctx, botID, userID)
		loads[0] = sourceLoad{source: domain.SourceLiveTrade, trades: trades, err: err}
	}()
	go func() {
		defer wg.Done()
		trades, err := d.paper.GetByBot(ctx, botID, userID)
		loads[1] = sourceLoad{source: domain.SourcePaperTrade, trades: trades, err: err}
	}()
	go func() {
		defer wg.Done()
		positions, err := d.positions.GetByBot(ctx, botID, userID)
		loads[2] = sourceLoad{source: domain.SourcePosition, positions: positions, err: err}
	}()
	wg.Wait()

	return loads
}

// buildAggregate folds the normalized outcomes into a fresh aggregate.
// Trade-sourced outcomes are consumed before position-sourced ones so the
// dedup rule is deterministic. Empty history resets the aggregate to zeros.
func buildAggregate(botID string, tradeOutcomes, positionOutcomes []domain.Outcome, prior *domain.BotAggregate) *domain.BotAggregate {
	agg := &domain.BotAggregate{BotID: botID}

	if len(tradeOutcomes) == 0 && len(positionOutcomes) == 0 {
		return agg
	}

	a := NewAggregator()
	var closed []domain.Outcome
	for _, o := range tradeOutcomes {
		if a.Add(o) && o.Closed {
			closed = append(closed, o)
		}
	}
	for _, o := range positionOutcomes {
		if a.Add(o) && o.Closed {
			closed = append(closed, o)
		}
	}
	totals := a.Totals()

	SortOutcomes(closed)
	dd := NewDrawdownTracker()
	for _, o := range closed {
		dd.Observe(o.PnL)
	}

	priorPct := 0.0
	if prior != nil {
		priorPct = prior.DrawdownPct
	}

	agg.TotalTrades = totals.TotalTrades
	agg.ClosedTrades = totals.ClosedTrades
	agg.WinTrades = totals.WinTrades
	agg.LossTrades = totals.LossTrades
	agg.RealizedPnL = totals.RealizedPnL
	agg.TotalFees = totals.TotalFees
	agg.WinRate = domain.WinRatePct(totals.WinTrades, totals.ClosedTrades)
	agg.PeakEquity = dd.PeakEquity()
	agg.MaxDrawdown = dd.MaxDrawdown()
	agg.DrawdownPct = dd.DrawdownPct(priorPct)
	agg.LastTradeAt = totals.LastTradeAt

	return agg
}

// persist writes the full aggregate, falling back once to the mandatory
// column subset when the full write fails.
func (d *Driver) persist(ctx context.Context, agg *domain.BotAggregate) error {
	fullErr := d.bots.UpdateAggregate(ctx, agg)
	if fullErr == nil {
		return nil
	}

	d.metrics.AggregateWriteRetries.Inc()
	d.log.Warn("full aggregate write failed, retrying with core columns",
		zap.String("bot_id", agg.BotID),
		zap.Error(fullErr))

	if coreErr := d.bots.UpdateAggregateCore(ctx, agg); coreErr != nil {
		return fmt.Errorf("update aggregate: %w (core retry: %v)", fullErr, coreErr)
	}
	return nil
}

func (d *Driver) writeSnapshot(ctx context.Context, agg *domain.BotAggregate) {
	if d.snapshots == nil {
		return
	}
	s := &domain.AggregateSnapshot{
		SnapshotID:   uuid.NewString(),
		BotID:        agg.BotID,
		TakenAt:      d.now(),
		TotalTrades:  agg.TotalTrades,
		ClosedTrades: agg.ClosedTrades,
		WinTrades:    agg.WinTrades,
		LossTrades:   agg.LossTrades,
		RealizedPnL:  agg.RealizedPnL,
		TotalFees:    agg.TotalFees,
		WinRate:      agg.WinRate,
		PeakEquity:   agg.PeakEquity,
		MaxDrawdown:  agg.MaxDrawdown,
		DrawdownPct:  agg.DrawdownPct,
	}
	if err := d.snapshots.Insert(ctx, s); err != nil {
		d.log.Warn("snapshot write failed",
			zap.String("bot_id", agg.BotID),
			zap.Error(err))
		return
	}
	d.metrics.SnapshotsWritten.Inc()
}
