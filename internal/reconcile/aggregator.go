// Package reconcile folds normalized outcomes from the live-trade,
// paper-trade, and position sources into a single per-bot aggregate without
// double-counting the activity that appears in more than one source.
package reconcile

import (
	"sort"

	"bot-reconciler/internal/domain"
)

// Totals is the running fold state of one aggregation batch.
type Totals struct {
	TotalTrades  int
	ClosedTrades int
	WinTrades    int
	LossTrades   int
	RealizedPnL  float64
	TotalFees    float64
	LastTradeAt  *int64
}

// Aggregator deduplicates outcomes across sources. Trade-sourced outcomes
// must all be added before any position-sourced outcome; the counted set is
// built during the trade pass and consulted during the position pass.
type Aggregator struct {
	totals Totals

	// counted maps trade IDs of already-counted closed trades to the fee
	// they contributed. A matched position only adds its fee when the trade
	// row contributed none.
	counted map[string]float64

	// seen holds every trade ID observed among raw trade rows, closed or
	// not. An orphan position whose ID is in here does not add a second
	// total-trade count.
	seen map[string]struct{}
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		counted: make(map[string]float64),
		seen:    make(map[string]struct{}),
	}
}

// Add folds one outcome into the totals, dispatching on its source. It
// reports whether the outcome's PnL was counted; deduplicated positions
// return false so callers do not feed their PnL into order-dependent folds
// a second time.
func (a *Aggregator) Add(o domain.Outcome) bool {
	if o.Source.TradeSourced() {
		return a.addTrade(o)
	}
	return a.addPosition(o)
}

func (a *Aggregator) addTrade(o domain.Outcome) bool {
	if o.TradeID != "" {
		a.seen[o.TradeID] = struct{}{}
	}
	if o.Executed {
		a.totals.TotalTrades++
		a.touch(o.Timestamp)
	}
	if !o.Closed {
		return false
	}

	a.totals.ClosedTrades++
	a.countResult(o.PnL)
	a.totals.RealizedPnL += o.PnL
	a.totals.TotalFees += o.Fee
	if o.TradeID != "" {
		a.counted[o.TradeID] = o.Fee
	}
	return true
}

func (a *Aggregator) addPosition(o domain.Outcome) bool {
	if o.TradeID != "" {
		if tradeFee, ok := a.counted[o.TradeID]; ok {
			// The backing trade was already counted. The position may still
			// carry the fee the trade row was missing.
			if tradeFee == 0 && o.Fee != 0 {
				a.totals.TotalFees += o.Fee
				a.counted[o.TradeID] = o.Fee
			}
			a.touch(o.Timestamp)
			return false
		}
	}

	// Orphan position: activity with no counted trade row behind it. A
	// still-open one contributes nothing; it only closes the books once
	// it carries closed evidence or a PnL.
	if o.Executed {
		if o.TradeID == "" {
			a.totals.TotalTrades++
		} else if _, ok := a.seen[o.TradeID]; !ok {
			a.totals.TotalTrades++
			a.seen[o.TradeID] = struct{}{}
		}
		a.touch(o.Timestamp)
	}
	if !o.Closed {
		return false
	}

	a.totals.ClosedTrades++
	a.countResult(o.PnL)
	a.totals.RealizedPnL += o.PnL
	a.totals.TotalFees += o.Fee
	if o.TradeID != "" {
		a.counted[o.TradeID] = o.Fee
	}
	return true
}

func (a *Aggregator) countResult(pnl float64) {
	switch {
	case pnl > 0:
		a.totals.WinTrades++
	case pnl < 0:
		a.totals.LossTrades++
	}
}

func (a *Aggregator) touch(ts int64) {
	if ts == 0 {
		return
	}
	if a.totals.LastTradeAt == nil || ts > *a.totals.LastTradeAt {
		t := ts
		a.totals.LastTradeAt = &t
	}
}

// Totals returns a copy of the current fold state.
func (a *Aggregator) Totals() Totals {
	return a.totals
}

// SortOutcomes orders outcomes by timestamp ASC, trade ID ASC so that
// order-dependent folds (drawdown) are deterministic.
func SortOutcomes(outcomes []domain.Outcome) {
	sort.Slice(outcomes, func(i, j int) bool {
		if outcomes[i].Timestamp != outcomes[j].Timestamp {
			return outcomes[i].Timestamp < outcomes[j].Timestamp
		}
		return outcomes[i].TradeID < outcomes[j].TradeID
	})
}
