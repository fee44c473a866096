package strategies

import "fmt"

// Config carries the settings of every built-in source.
type Config struct {
	Enabled []string      `json:"enabled" yaml:"enabled" envconfig:"ENABLED"`
	Trend   TrendConfig   `json:"trend" yaml:"trend" envconfig:"TREND"`
	Grid    GridConfig    `json:"grid" yaml:"grid" envconfig:"GRID"`
	Scalper ScalperConfig `json:"scalper" yaml:"scalper" envconfig:"SCALPER"`
}

type TrendConfig struct {
	// BreakoutLookback is how many bars before the last one form the range
	// a breakout must clear.
	BreakoutLookback int `json:"breakout_lookback" yaml:"breakout_lookback" envconfig:"BREAKOUT_LOOKBACK"`

	FastPeriod int `json:"fast_period" yaml:"fast_period" envconfig:"FAST_PERIOD"`
	SlowPeriod int `json:"slow_period" yaml:"slow_period" envconfig:"SLOW_PERIOD"`

	// PullbackTolerance is how close (percent) to the fast EMA a close
	// must come to count as a pullback.
	PullbackTolerance float64 `json:"pullback_tolerance" yaml:"pullback_tolerance" envconfig:"PULLBACK_TOLERANCE"`

	BaseConfidence float64 `json:"base_confidence" yaml:"base_confidence" envconfig:"BASE_CONFIDENCE"`
	StrengthWeight float64 `json:"strength_weight" yaml:"strength_weight" envconfig:"STRENGTH_WEIGHT"`
	RewardRisk     float64 `json:"reward_risk" yaml:"reward_risk" envconfig:"REWARD_RISK"`
}

type GridConfig struct {
	Lookback int `json:"lookback" yaml:"lookback" envconfig:"LOOKBACK"`

	// Levels is the number of rungs on each side of the range midpoint.
	Levels int `json:"levels" yaml:"levels" envconfig:"LEVELS"`

	// EntryBand is the fraction of the range next to support (resistance)
	// where longs (shorts) are proposed.
	EntryBand float64 `json:"entry_band" yaml:"entry_band" envconfig:"ENTRY_BAND"`

	// MinRangePct skips ranges narrower than this percent of price.
	MinRangePct float64 `json:"min_range_pct" yaml:"min_range_pct" envconfig:"MIN_RANGE_PCT"`

	BaseConfidence float64 `json:"base_confidence" yaml:"base_confidence" envconfig:"BASE_CONFIDENCE"`
}

type ScalperConfig struct {
	FastPeriod int `json:"fast_period" yaml:"fast_period" envconfig:"FAST_PERIOD"`
	SlowPeriod int `json:"slow_period" yaml:"slow_period" envconfig:"SLOW_PERIOD"`

	// The scalper only trades when volatility is inside this band.
	MinVolatility float64 `json:"min_volatility" yaml:"min_volatility" envconfig:"MIN_VOLATILITY"`
	MaxVolatility float64 `json:"max_volatility" yaml:"max_volatility" envconfig:"MAX_VOLATILITY"`

	// MinSpreadPct is the minimum fast/slow EMA separation in percent.
	MinSpreadPct float64 `json:"min_spread_pct" yaml:"min_spread_pct" envconfig:"MIN_SPREAD_PCT"`

	StopLossPct    float64 `json:"stop_loss_pct" yaml:"stop_loss_pct" envconfig:"STOP_LOSS_PCT"`
	TakeProfitPct  float64 `json:"take_profit_pct" yaml:"take_profit_pct" envconfig:"TAKE_PROFIT_PCT"`
	BaseConfidence float64 `json:"base_confidence" yaml:"base_confidence" envconfig:"BASE_CONFIDENCE"`
}

func DefaultConfig() Config {
	return Config{
		Enabled: []string{"trend", "grid", "scalper"},
		Trend: TrendConfig{
			BreakoutLookback:  10,
			FastPeriod:        5,
			SlowPeriod:        13,
			PullbackTolerance: 0.3,
			BaseConfidence:    0.5,
			StrengthWeight:    0.5,
			RewardRisk:        2,
		},
		Grid: GridConfig{
			Lookback:       20,
			Levels:         3,
			EntryBand:      0.25,
			MinRangePct:    0.2,
			BaseConfidence: 0.5,
		},
		Scalper: ScalperConfig{
			FastPeriod:     3,
			SlowPeriod:     8,
			MinVolatility:  0.1,
			MaxVolatility:  1.5,
			MinSpreadPct:   0.02,
			StopLossPct:    0.15,
			TakeProfitPct:  0.3,
			BaseConfidence: 0.5,
		},
	}
}

func (c Config) Validate() error {
	if len(c.Enabled) == 0 {
		return fmt.Errorf("strategies: at least one source must be enabled")
	}
	for _, n := range c.Enabled {
		if _, ok := Lookup(n); !ok {
			return fmt.Errorf("strategies: unknown source %q", n)
		}
	}
	t := c.Trend
	if t.BreakoutLookback <= 0 || t.FastPeriod <= 0 || t.FastPeriod >= t.SlowPeriod {
		return fmt.Errorf("strategies: trend needs breakout_lookback > 0 and 0 < fast_period < slow_period")
	}
	if t.RewardRisk <= 0 {
		return fmt.Errorf("strategies: trend reward_risk must be positive")
	}
	g := c.Grid
	if g.Lookback < 2 || g.Levels <= 0 || g.EntryBand <= 0 || g.EntryBand >= 0.5 {
		return fmt.Errorf("strategies: grid needs lookback >= 2, levels > 0 and entry_band in (0,0.5)")
	}
	s := c.Scalper
	if s.FastPeriod <= 0 || s.FastPeriod >= s.SlowPeriod {
		return fmt.Errorf("strategies: scalper needs 0 < fast_period < slow_period")
	}
	if s.MinVolatility < 0 || s.MaxVolatility <= s.MinVolatility {
		return fmt.Errorf("strategies: scalper volatility band is empty")
	}
	if s.StopLossPct <= 0 || s.TakeProfitPct <= 0 {
		return fmt.Errorf("strategies: scalper brackets must be positive")
	}
	for name, v := range map[string]float64{"trend": t.BaseConfidence, "grid": g.BaseConfidence, "scalper": s.BaseConfidence} {
		if v < 0 || v > 1 {
			return fmt.Errorf("strategies: %s base_confidence must be in [0,1]", name)
		}
	}
	return nil
}
