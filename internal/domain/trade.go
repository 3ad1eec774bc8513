package domain

import "strings"

// TradeRecord is the canonical shape of one raw trade row. The live and
// paper trade tables store the same information under different column
// names; each store adapter maps its rows into this struct so field-name
// fallbacks never leak into the aggregation logic.
type TradeRecord struct {
	TradeID    string
	BotID      string
	UserID     string
	Status     string   // free-text, lower-cased at comparison time
	Side       string   // long/short or buy/sell
	EntryPrice float64
	ExitPrice  *float64 // nil while the trade is open
	Quantity   float64
	PnL        *float64 // nil until realized
	Fee        float64
	ExecutedAt int64 // unix ms
}

// Side constants. Unrecognized sides fall back to the long formula.
const (
	SideLong  = "long"
	SideBuy   = "buy"
	SideShort = "short"
	SideSell  = "sell"
)

// Trade status sets. "filled" means the order executed but the trade is
// still open, so it counts toward total trades without closed evidence.
var (
	executedTradeStatuses = map[string]struct{}{
		"filled":       {},
		"completed":    {},
		"closed":       {},
		"stopped":      {},
		"taken_profit": {},
	}

	closedTradeStatuses = map[string]struct{}{
		"completed":    {},
		"closed":       {},
		"stopped":      {},
		"taken_profit": {},
	}
)

// ExecutedStatus reports whether s names an executed trade state.
func ExecutedStatus(s string) bool {
	_, ok := executedTradeStatuses[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// ClosedTradeStatus reports whether s names a closed trade state.
func ClosedTradeStatus(s string) bool {
	_, ok := closedTradeStatuses[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// NormalizeSide lower-cases and trims a side string.
func NormalizeSide(side string) string {
	return strings.ToLower(strings.TrimSpace(side))
}

// ShortSide reports whether side denotes a short/sell position.
func ShortSide(side string) bool {
	switch NormalizeSide(side) {
	case SideShort, SideSell:
		return true
	}
	return false
}
