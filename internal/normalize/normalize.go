// Package normalize converts raw trade and position rows into canonical
// outcomes. It is pure: no store access, no side effects.
package normalize

import (
	"bot-reconciler/internal/domain"
	"bot-reconciler/internal/idhash"
)

// FromTrade converts one raw trade row into a canonical outcome. The second
// return is false when the row carries no usable signal at all (no status,
// no price, no PnL); such rows are skipped entirely.
func FromTrade(t domain.TradeRecord, source domain.Source) (domain.Outcome, bool) {
	if !usable(t.Status, t.EntryPrice, t.ExitPrice, t.PnL) {
		return domain.Outcome{}, false
	}

	closed := domain.ClosedTradeStatus(t.Status) ||
		(t.PnL != nil && *t.PnL != 0) ||
		t.ExitPrice != nil

	pnl, fee := resolvePnL(t.PnL, closed, t.EntryPrice, t.ExitPrice, t.Quantity, t.Side, t.Fee)

	// Rows stored without an ID get a deterministic one so dedup keys
	// never collide on the empty string.
	tradeID := t.TradeID
	if tradeID == "" {
		tradeID = idhash.ComputeOutcomeID(t.BotID, string(source), t.Side, t.EntryPrice, t.Quantity, t.ExecutedAt)
	}

	return domain.Outcome{
		BotID:     t.BotID,
		PnL:       pnl,
		Fee:       fee,
		Closed:    closed,
		Executed:  closed || domain.ExecutedStatus(t.Status),
		TradeID:   tradeID,
		Source:    source,
		Timestamp: t.ExecutedAt,
	}, true
}

// FromPosition converts one closed-position row into a canonical outcome.
// The outcome keeps the position's trade back-reference so the aggregator
// can dedup against already-counted trades.
func FromPosition(p domain.PositionRecord) (domain.Outcome, bool) {
	if !usable(p.Status, p.EntryPrice, p.ExitPrice, p.PnL) {
		return domain.Outcome{}, false
	}

	closed := domain.ClosedPositionStatus(p.Status) ||
		(p.PnL != nil && *p.PnL != 0) ||
		p.ExitPrice != nil

	pnl, fee := resolvePnL(p.PnL, closed, p.EntryPrice, p.ExitPrice, p.Quantity, p.Side, p.Fee)

	tradeID := ""
	if p.TradeID != nil {
		tradeID = *p.TradeID
	}

	return domain.Outcome{
		BotID:     p.BotID,
		PnL:       pnl,
		Fee:       fee,
		Closed:    closed,
		Executed:  closed,
		TradeID:   tradeID,
		Source:    domain.SourcePosition,
		Timestamp: p.ClosedAt,
	}, true
}

// resolvePnL picks the stored PnL when present, otherwise backfills it for
// closed records. Indeterminate backfill yields zero; the record stays
// closed so it is never silently dropped from the trade count.
func resolvePnL(stored *float64, closed bool, entry float64, exit *float64, qty float64, side string, fee float64) (float64, float64) {
	if stored != nil && *stored != 0 {
		return *stored, fee
	}

	if closed {
		exitPrice := 0.0
		if exit != nil {
			exitPrice = *exit
		}
		if pnl, ok := BackfillPnL(entry, exitPrice, qty, side, fee); ok {
			return pnl, fee
		}
	}

	return 0, fee
}

// usable reports whether a row carries any signal worth normalizing.
func usable(status string, entry float64, exit *float64, pnl *float64) bool {
	if status != "" {
		return true
	}
	if entry > 0 || exit != nil {
		return true
	}
	return pnl != nil
}
