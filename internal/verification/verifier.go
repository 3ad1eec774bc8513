// Package verification checks stored bot aggregates for drift. It recomputes
// each aggregate from full history without persisting and compares the
// result field by field against what the bot table currently holds.
package verification

import (
	"context"
	"errors"
	"math"

	"bot-reconciler/internal/domain"
	"bot-reconciler/internal/reconcile"
	"bot-reconciler/internal/storage"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and recomputed values.
type FieldDivergence struct {
	Field    string `json:"field"`
	Stored   any    `json:"stored"`
	Computed any    `json:"computed"`
}

// Result contains the drift check outcome for a single bot.
type Result struct {
	BotID string `json:"bot_id"`
	// Match is true when every field of the stored aggregate equals the
	// recomputed one within tolerance.
	Match bool `json:"match"`
	// Partial is true when the recomputation itself degraded because a
	// record source failed; divergences are still reported but may be
	// explained by the missing source rather than real drift.
	Partial     bool              `json:"partial"`
	Divergences []FieldDivergence `json:"divergences,omitempty"`
}

// Verifier recomputes aggregates and diffs them against stored state.
type Verifier struct {
	driver *reconcile.Driver
	bots   storage.BotStore
}

// NewVerifier creates a new Verifier.
func NewVerifier(driver *reconcile.Driver, bots storage.BotStore) *Verifier {
	return &Verifier{driver: driver, bots: bots}
}

// VerifyBot checks one bot's stored aggregate against a fresh recomputation.
// A bot that was never reconciled is compared against the zero aggregate.
func (v *Verifier) VerifyBot(ctx context.Context, botID, userID string) (*Result, error) {
	stored, err := v.bots.GetAggregate(ctx, botID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		stored = &domain.BotAggregate{BotID: botID}
	}

	computed, err := v.driver.Preview(ctx, botID, userID)
	if err != nil {
		return nil, err
	}

	divergences := CompareAggregates(stored, computed)
	return &Result{
		BotID:       botID,
		Match:       len(divergences) == 0,
		Partial:     computed.Partial,
		Divergences: divergences,
	}, nil
}

// CompareAggregates compares two aggregates and returns divergences.
// Uses FloatTolerance for float64 comparisons. Partial and SourceErrors are
// transient per-run flags and are not compared.
func CompareAggregates(stored, computed *domain.BotAggregate) []FieldDivergence {
	var divergences []FieldDivergence

	intFields := []struct {
		name             string
		stored, computed int
	}{
		{"TotalTrades", stored.TotalTrades, computed.TotalTrades},
		{"ClosedTrades", stored.ClosedTrades, computed.ClosedTrades},
		{"WinTrades", stored.WinTrades, computed.WinTrades},
		{"LossTrades", stored.LossTrades, computed.LossTrades},
	}
	for _, f := range intFields {
		if f.stored != f.computed {
			divergences = append(divergences, FieldDivergence{
				Field:    f.name,
				Stored:   f.stored,
				Computed: f.computed,
			})
		}
	}

	floatFields := []struct {
		name             string
		stored, computed float64
	}{
		{"RealizedPnL", stored.RealizedPnL, computed.RealizedPnL},
		{"TotalFees", stored.TotalFees, computed.TotalFees},
		{"WinRate", stored.WinRate, computed.WinRate},
		{"PeakEquity", stored.PeakEquity, computed.PeakEquity},
		{"MaxDrawdown", stored.MaxDrawdown, computed.MaxDrawdown},
		{"DrawdownPct", stored.DrawdownPct, computed.DrawdownPct},
	}
	for _, f := range floatFields {
		if !floatEquals(f.stored, f.computed) {
			divergences = append(divergences, FieldDivergence{
				Field:    f.name,
				Stored:   f.stored,
				Computed: f.computed,
			})
		}
	}

	if !int64PtrEquals(stored.LastTradeAt, computed.LastTradeAt) {
		divergences = append(divergences, FieldDivergence{
			Field:    "LastTradeAt",
			Stored:   stored.LastTradeAt,
			Computed: computed.LastTradeAt,
		})
	}

	return divergences
}

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

func int64PtrEquals(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
