package domain

// Outcome is the normalized, source-agnostic representation of one trading
// event. It is produced by the normalizer and consumed by the aggregator and
// drawdown tracker; it is never persisted.
type Outcome struct {
	BotID string

	// PnL is the signed realized profit/loss. Zero for closed records whose
	// PnL could not be derived; such records still count as closed.
	PnL float64

	Fee float64

	// Closed is true when the record carries closed evidence: a closed
	// status, a non-zero realized PnL, or a present exit price.
	Closed bool

	// Executed is true when the record's status is in the executed set.
	// Open-but-executed records contribute to total-trade counting only.
	Executed bool

	// TradeID keys deduplication between trade-sourced and position-sourced
	// outcomes. Empty for positions with no trade back-reference.
	TradeID string

	Source    Source
	Timestamp int64 // unix ms, orders the drawdown stream
}
