package domain

// BotAggregate is the reconciled performance summary for one bot. It is
// recomputed from full history on every refresh, never mutated field by
// field.
type BotAggregate struct {
	BotID string

	TotalTrades  int
	ClosedTrades int
	WinTrades    int
	LossTrades   int

	RealizedPnL float64
	TotalFees   float64

	// WinRate is WinTrades / ClosedTrades as a percentage.
	WinRate float64

	PeakEquity  float64
	MaxDrawdown float64
	// DrawdownPct is MaxDrawdown / PeakEquity * 100 when peak > 0; otherwise
	// it keeps the previously stored value.
	DrawdownPct float64

	LastTradeAt *int64 // unix ms of the most recent outcome, nil if none

	// Partial is set when one or more record sources failed to load and the
	// aggregate was computed from the remaining sources.
	Partial      bool
	SourceErrors []string
}

// WinRatePct computes a win rate percentage, guarding the zero denominator.
func WinRatePct(wins, closed int) float64 {
	if closed == 0 {
		return 0
	}
	return float64(wins) / float64(closed) * 100
}
