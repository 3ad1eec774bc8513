package domain

// AggregateSnapshot is one append-only point of a bot's aggregate history,
// taken after each successful reconcile.
type AggregateSnapshot struct {
	SnapshotID   string
	BotID        string
	TakenAt      int64 // unix milliseconds
	TotalTrades  int
	ClosedTrades int
	WinTrades    int
	LossTrades   int
	RealizedPnL  float64
	TotalFees    float64
	WinRate      float64
	PeakEquity   float64
	MaxDrawdown  float64
	DrawdownPct  float64
}
