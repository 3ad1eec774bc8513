package domain

// Source identifies which record source an outcome was normalized from.
type Source string

const (
	// SourceLiveTrade marks records from the live trades table.
	SourceLiveTrade Source = "LIVE_TRADE"

	// SourcePaperTrade marks records from the paper trading table.
	SourcePaperTrade Source = "PAPER_TRADE"

	// SourcePosition marks records from the closed positions table.
	SourcePosition Source = "POSITION"
)

// TradeSourced reports whether the source is one of the two trade tables.
// Trade-sourced outcomes are always folded before position-sourced ones.
func (s Source) TradeSourced() bool {
	return s == SourceLiveTrade || s == SourcePaperTrade
}
