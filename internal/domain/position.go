package domain

import "strings"

// PositionRecord is one row from the closed positions table. TradeID is an
// optional back-reference to the trade that opened the position; when it
// matches an already-counted trade the position must not be counted again.
type PositionRecord struct {
	PositionID string
	BotID      string
	UserID     string
	TradeID    *string
	Side       string
	EntryPrice float64
	ExitPrice  *float64
	Quantity   float64
	Fee        float64
	PnL        *float64
	Status     string
	ClosedAt   int64 // unix ms
}

// closedPositionStatuses is the closed-state set for position rows.
var closedPositionStatuses = map[string]struct{}{
	"closed":       {},
	"stopped":      {},
	"take_profit":  {},
	"taken_profit": {},
	"manual_close": {},
	"liquidated":   {},
}

// ClosedPositionStatus reports whether s names a closed position state.
func ClosedPositionStatus(s string) bool {
	_, ok := closedPositionStatuses[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
