// Package riskcfg merges user-supplied risk engine parameters onto the
// defaults, repairing any value that would violate the engine's invariants.
// Validation never fails: malformed input must never block bot creation, so
// invalid values are silently replaced and reported in the repair list.
package riskcfg

import (
	"sort"

	"bot-reconciler/internal/coerce"
	"bot-reconciler/internal/domain"
)

// Minimum gaps between the low and high member of each threshold pair.
const (
	volatilityGap = 0.1
	drawdownGap   = 1.0
)

// Absolute sane ranges.
const (
	multiplierMin = 0.1
	multiplierMax = 3.0

	signalWeightMin = 0.1
	signalWeightMax = 2.0

	bpsMin = 0.0
	bpsMax = 500.0
)

// field maps one partial-config key onto a RiskEngineConfig field.
type field struct {
	key string
	get func(*domain.RiskEngineConfig) float64
	set func(*domain.RiskEngineConfig, float64)
}

var fields = []field{
	{"volatility_low", func(c *domain.RiskEngineConfig) float64 { return c.VolatilityLow }, func(c *domain.RiskEngineConfig, v float64) { c.VolatilityLow = v }},
	{"volatility_high", func(c *domain.RiskEngineConfig) float64 { return c.VolatilityHigh }, func(c *domain.RiskEngineConfig, v float64) { c.VolatilityHigh = v }},
	{"high_volatility_multiplier", func(c *domain.RiskEngineConfig) float64 { return c.HighVolatilityMultiplier }, func(c *domain.RiskEngineConfig, v float64) { c.HighVolatilityMultiplier = v }},
	{"low_volatility_multiplier", func(c *domain.RiskEngineConfig) float64 { return c.LowVolatilityMultiplier }, func(c *domain.RiskEngineConfig, v float64) { c.LowVolatilityMultiplier = v }},
	{"max_spread_bps", func(c *domain.RiskEngineConfig) float64 { return c.MaxSpreadBps }, func(c *domain.RiskEngineConfig, v float64) { c.MaxSpreadBps = v }},
	{"spread_penalty_multiplier", func(c *domain.RiskEngineConfig) float64 { return c.SpreadPenaltyMultiplier }, func(c *domain.RiskEngineConfig, v float64) { c.SpreadPenaltyMultiplier = v }},
	{"low_liquidity_multiplier", func(c *domain.RiskEngineConfig) float64 { return c.LowLiquidityMultiplier }, func(c *domain.RiskEngineConfig, v float64) { c.LowLiquidityMultiplier = v }},
	{"medium_liquidity_multiplier", func(c *domain.RiskEngineConfig) float64 { return c.MediumLiquidityMultiplier }, func(c *domain.RiskEngineConfig, v float64) { c.MediumLiquidityMultiplier = v }},
	{"drawdown_moderate", func(c *domain.RiskEngineConfig) float64 { return c.DrawdownModerate }, func(c *domain.RiskEngineConfig, v float64) { c.DrawdownModerate = v }},
	{"drawdown_severe", func(c *domain.RiskEngineConfig) float64 { return c.DrawdownSevere }, func(c *domain.RiskEngineConfig, v float64) { c.DrawdownSevere = v }},
	{"moderate_drawdown_multiplier", func(c *domain.RiskEngineConfig) float64 { return c.ModerateDrawdownMultiplier }, func(c *domain.RiskEngineConfig, v float64) { c.ModerateDrawdownMultiplier = v }},
	{"severe_drawdown_multiplier", func(c *domain.RiskEngineConfig) float64 { return c.SevereDrawdownMultiplier }, func(c *domain.RiskEngineConfig, v float64) { c.SevereDrawdownMultiplier = v }},
	{"loss_streak_threshold", func(c *domain.RiskEngineConfig) float64 { return c.LossStreakThreshold }, func(c *domain.RiskEngineConfig, v float64) { c.LossStreakThreshold = v }},
	{"loss_streak_step", func(c *domain.RiskEngineConfig) float64 { return c.LossStreakStep }, func(c *domain.RiskEngineConfig, v float64) { c.LossStreakStep = v }},
	{"min_size_multiplier", func(c *domain.RiskEngineConfig) float64 { return c.MinSizeMultiplier }, func(c *domain.RiskEngineConfig, v float64) { c.MinSizeMultiplier = v }},
	{"max_size_multiplier", func(c *domain.RiskEngineConfig) float64 { return c.MaxSizeMultiplier }, func(c *domain.RiskEngineConfig, v float64) { c.MaxSizeMultiplier = v }},
	{"max_slippage_bps", func(c *domain.RiskEngineConfig) float64 { return c.MaxSlippageBps }, func(c *domain.RiskEngineConfig, v float64) { c.MaxSlippageBps = v }},
	{"min_execution_size_multiplier", func(c *domain.RiskEngineConfig) float64 { return c.MinExecutionSizeMultiplier }, func(c *domain.RiskEngineConfig, v float64) { c.MinExecutionSizeMultiplier = v }},
	{"limit_spread_bps", func(c *domain.RiskEngineConfig) float64 { return c.LimitSpreadBps }, func(c *domain.RiskEngineConfig, v float64) { c.LimitSpreadBps = v }},
	{"signal_learning_rate", func(c *domain.RiskEngineConfig) float64 { return c.SignalLearningRate }, func(c *domain.RiskEngineConfig, v float64) { c.SignalLearningRate = v }},
	{"min_signal_weight", func(c *domain.RiskEngineConfig) float64 { return c.MinSignalWeight }, func(c *domain.RiskEngineConfig, v float64) { c.MinSignalWeight = v }},
	{"max_signal_weight", func(c *domain.RiskEngineConfig) float64 { return c.MaxSignalWeight }, func(c *domain.RiskEngineConfig, v float64) { c.MaxSignalWeight = v }},
}

// Validate overlays partial onto defaults and returns a complete,
// invariant-satisfying configuration plus the sorted list of keys whose
// supplied value was repaired, ignored, or unknown. Presence in the partial
// map is what marks a key as user-supplied; a value equal to the default is
// a legitimate explicit choice.
func Validate(partial map[string]any, defaults domain.RiskEngineConfig) (domain.RiskEngineConfig, []string) {
	cfg := defaults
	repaired := make(map[string]struct{})

	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f.key] = struct{}{}

		raw, present := partial[f.key]
		if !present {
			continue
		}
		v, ok := coerce.Float64(raw)
		if !ok {
			// Non-numeric user value falls back to the default for the key.
			repaired[f.key] = struct{}{}
			continue
		}
		f.set(&cfg, v)
	}

	for key := range partial {
		if _, ok := known[key]; !ok {
			repaired[key] = struct{}{}
		}
	}

	before := cfg
	repairInvariants(&cfg)

	// Report every key whose overlaid value the repair pass moved.
	for _, f := range fields {
		if f.get(&before) != f.get(&cfg) {
			repaired[f.key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(repaired))
	for k := range repaired {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return cfg, keys
}

// repairInvariants re-derives every interdependent pair from the overlaid
// values, low side first, then clamps the independent scalars. The order
// matters: the high side of a pair is derived from the already-repaired low
// side, so an inverted pair is corrected instead of rejected.
func repairInvariants(c *domain.RiskEngineConfig) {
	if c.VolatilityLow < 0 {
		c.VolatilityLow = 0
	}
	if c.VolatilityHigh < c.VolatilityLow+volatilityGap {
		c.VolatilityHigh = c.VolatilityLow + volatilityGap
	}

	if c.DrawdownModerate < 0 {
		c.DrawdownModerate = 0
	}
	if c.DrawdownSevere < c.DrawdownModerate+drawdownGap {
		c.DrawdownSevere = c.DrawdownModerate + drawdownGap
	}

	c.MinSizeMultiplier = clamp(c.MinSizeMultiplier, multiplierMin, multiplierMax)
	c.MaxSizeMultiplier = clamp(c.MaxSizeMultiplier, multiplierMin, multiplierMax)
	if c.MaxSizeMultiplier < c.MinSizeMultiplier {
		c.MaxSizeMultiplier = c.MinSizeMultiplier
	}

	c.MinSignalWeight = clamp(c.MinSignalWeight, signalWeightMin, signalWeightMax)
	c.MaxSignalWeight = clamp(c.MaxSignalWeight, signalWeightMin, signalWeightMax)
	if c.MaxSignalWeight < c.MinSignalWeight {
		c.MaxSignalWeight = c.MinSignalWeight
	}

	c.HighVolatilityMultiplier = clamp(c.HighVolatilityMultiplier, multiplierMin, multiplierMax)
	c.LowVolatilityMultiplier = clamp(c.LowVolatilityMultiplier, multiplierMin, multiplierMax)
	c.SpreadPenaltyMultiplier = clamp(c.SpreadPenaltyMultiplier, multiplierMin, multiplierMax)
	c.LowLiquidityMultiplier = clamp(c.LowLiquidityMultiplier, multiplierMin, multiplierMax)
	c.MediumLiquidityMultiplier = clamp(c.MediumLiquidityMultiplier, multiplierMin, multiplierMax)
	c.ModerateDrawdownMultiplier = clamp(c.ModerateDrawdownMultiplier, multiplierMin, multiplierMax)
	c.SevereDrawdownMultiplier = clamp(c.SevereDrawdownMultiplier, multiplierMin, multiplierMax)
	c.MinExecutionSizeMultiplier = clamp(c.MinExecutionSizeMultiplier, multiplierMin, multiplierMax)

	c.MaxSpreadBps = clamp(c.MaxSpreadBps, bpsMin, bpsMax)
	c.MaxSlippageBps = clamp(c.MaxSlippageBps, bpsMin, bpsMax)
	c.LimitSpreadBps = clamp(c.LimitSpreadBps, bpsMin, bpsMax)

	c.LossStreakThreshold = clamp(c.LossStreakThreshold, 1, 20)
	c.LossStreakStep = clamp(c.LossStreakStep, 0, 1)
	c.SignalLearningRate = clamp(c.SignalLearningRate, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
