package reconcile

// DrawdownTracker maintains peak-equity and max-drawdown state over the
// complete closed-outcome history of one bot, ordered by timestamp ASC.
// Peak equity is a property of the whole history, so the tracker is rebuilt
// on every recompute rather than updated from a partial window.
type DrawdownTracker struct {
	cumulative  float64
	peak        float64
	maxDrawdown float64
}

func NewDrawdownTracker() *DrawdownTracker {
	return &DrawdownTracker{}
}

// Observe folds one closed PnL into the running state.
func (d *DrawdownTracker) Observe(pnl float64) {
	d.cumulative += pnl
	if d.cumulative > d.peak {
		d.peak = d.cumulative
	}
	if dd := d.peak - d.cumulative; dd > d.maxDrawdown {
		d.maxDrawdown = dd
	}
}

// PeakEquity returns the running maximum of cumulative realized PnL.
func (d *DrawdownTracker) PeakEquity() float64 {
	return d.peak
}

// MaxDrawdown returns the worst peak-to-trough gap seen so far. Never
// negative.
func (d *DrawdownTracker) MaxDrawdown() float64 {
	return d.maxDrawdown
}

// DrawdownPct returns max drawdown as a percentage of peak equity. When the
// peak is not positive there is nothing to divide by, so the prior stored
// percentage is returned unchanged.
func (d *DrawdownTracker) DrawdownPct(prior float64) float64 {
	if d.peak <= 0 {
		return prior
	}
	return d.maxDrawdown / d.peak * 100
}
