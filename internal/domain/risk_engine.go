package domain

// RiskEngineConfig is the named set of tunable numeric parameters governing
// position sizing and risk responses. A complete instance always exists; a
// user override is a partial mapping merged onto the default by the
// validator and never persisted as a bare partial.
type RiskEngineConfig struct {
	VolatilityLow  float64 `json:"volatility_low"`
	VolatilityHigh float64 `json:"volatility_high"`

	HighVolatilityMultiplier float64 `json:"high_volatility_multiplier"`
	LowVolatilityMultiplier  float64 `json:"low_volatility_multiplier"`

	MaxSpreadBps            float64 `json:"max_spread_bps"`
	SpreadPenaltyMultiplier float64 `json:"spread_penalty_multiplier"`

	LowLiquidityMultiplier    float64 `json:"low_liquidity_multiplier"`
	MediumLiquidityMultiplier float64 `json:"medium_liquidity_multiplier"`

	DrawdownModerate float64 `json:"drawdown_moderate"`
	DrawdownSevere   float64 `json:"drawdown_severe"`

	ModerateDrawdownMultiplier float64 `json:"moderate_drawdown_multiplier"`
	SevereDrawdownMultiplier   float64 `json:"severe_drawdown_multiplier"`

	LossStreakThreshold float64 `json:"loss_streak_threshold"`
	LossStreakStep      float64 `json:"loss_streak_step"`

	MinSizeMultiplier float64 `json:"min_size_multiplier"`
	MaxSizeMultiplier float64 `json:"max_size_multiplier"`

	MaxSlippageBps             float64 `json:"max_slippage_bps"`
	MinExecutionSizeMultiplier float64 `json:"min_execution_size_multiplier"`
	LimitSpreadBps             float64 `json:"limit_spread_bps"`

	SignalLearningRate float64 `json:"signal_learning_rate"`
	MinSignalWeight    float64 `json:"min_signal_weight"`
	MaxSignalWeight    float64 `json:"max_signal_weight"`
}

// DefaultRiskEngineConfig returns the default parameter set. Returned by
// value so callers can never mutate shared state.
func DefaultRiskEngineConfig() RiskEngineConfig {
	return RiskEngineConfig{
		VolatilityLow:  0.6,
		VolatilityHigh: 2.5,

		HighVolatilityMultiplier: 0.75,
		LowVolatilityMultiplier:  1.05,

		MaxSpreadBps:            20,
		SpreadPenaltyMultiplier: 0.75,

		LowLiquidityMultiplier:    0.6,
		MediumLiquidityMultiplier: 0.8,

		DrawdownModerate: 10,
		DrawdownSevere:   20,

		ModerateDrawdownMultiplier: 0.8,
		SevereDrawdownMultiplier:   0.6,

		LossStreakThreshold: 3,
		LossStreakStep:      0.15,

		MinSizeMultiplier: 0.35,
		MaxSizeMultiplier: 1.5,

		MaxSlippageBps:             25,
		MinExecutionSizeMultiplier: 0.35,
		LimitSpreadBps:             8,

		SignalLearningRate: 0.05,
		MinSignalWeight:    0.6,
		MaxSignalWeight:    1.4,
	}
}
