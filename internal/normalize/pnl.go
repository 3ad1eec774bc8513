package normalize

import "bot-reconciler/internal/domain"

// BackfillPnL derives a signed realized PnL from execution details when a
// record is missing it. The second return is false when the inputs are
// indeterminate (entry, exit, or quantity missing or non-positive); callers
// that have other closed evidence must then count the record with zero PnL
// rather than drop it.
//
// Long/buy: (exit - entry) * quantity - fee.
// Short/sell: (entry - exit) * quantity - fee.
// Unrecognized sides use the long formula.
func BackfillPnL(entry, exit, quantity float64, side string, fee float64) (float64, bool) {
	if entry <= 0 || exit <= 0 || quantity <= 0 {
		return 0, false
	}

	if domain.ShortSide(side) {
		return (entry-exit)*quantity - fee, true
	}
	return (exit-entry)*quantity - fee, true
}
