package regime

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/flowtrader/indicators"
	"github.com/rustyeddy/flowtrader/market"
)

// ErrInsufficientData is returned when a window is too short to classify.
var ErrInsufficientData = errors.New("insufficient data")

// Config holds the estimator thresholds.
type Config struct {
	// MinBars is the shortest window that can be classified.
	MinBars int `json:"min_bars" yaml:"min_bars" envconfig:"MIN_BARS"`

	ADXPeriod int `json:"adx_period" yaml:"adx_period" envconfig:"ADX_PERIOD"`
	ATRPeriod int `json:"atr_period" yaml:"atr_period" envconfig:"ATR_PERIOD"`

	// TrendThreshold is the ADX level (0..100) above which a market trends.
	TrendThreshold float64 `json:"trend_threshold" yaml:"trend_threshold" envconfig:"TREND_THRESHOLD"`

	// VolatilityThreshold is the ATR percent of price above which the
	// market is volatile regardless of trend strength.
	VolatilityThreshold float64 `json:"volatility_threshold" yaml:"volatility_threshold" envconfig:"VOLATILITY_THRESHOLD"`

	// LowVolatility separates pullback (at or below) from breakout
	// trading in a trending market.
	LowVolatility float64 `json:"low_volatility" yaml:"low_volatility" envconfig:"LOW_VOLATILITY"`
}

func DefaultConfig() Config {
	return Config{
		MinBars:             20,
		ADXPeriod:           10,
		ATRPeriod:           14,
		TrendThreshold:      25,
		VolatilityThreshold: 2.5,
		LowVolatility:       1.0,
	}
}

func (c Config) Validate() error {
	if c.ADXPeriod <= 0 || c.ATRPeriod <= 0 {
		return fmt.Errorf("regime: adx_period and atr_period must be positive")
	}
	if c.MinBars < 2*c.ADXPeriod {
		return fmt.Errorf("regime: min_bars %d must be >= 2*adx_period (%d)", c.MinBars, 2*c.ADXPeriod)
	}
	if c.MinBars < c.ATRPeriod+1 {
		return fmt.Errorf("regime: min_bars %d must be >= atr_period+1 (%d)", c.MinBars, c.ATRPeriod+1)
	}
	if c.TrendThreshold <= 0 || c.TrendThreshold >= 100 {
		return fmt.Errorf("regime: trend_threshold must be in (0,100)")
	}
	if c.VolatilityThreshold <= 0 {
		return fmt.Errorf("regime: volatility_threshold must be positive")
	}
	if c.LowVolatility < 0 || c.LowVolatility > c.VolatilityThreshold {
		return fmt.Errorf("regime: low_volatility must be in [0, volatility_threshold]")
	}
	return nil
}

// Estimator is the market state estimator. It holds no mutable state and
// is safe for concurrent use.
type Estimator struct {
	cfg Config
}

func NewEstimator(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

func (e *Estimator) Config() Config { return e.cfg }

// Assess classifies the window. Volatility wins over trend: chaotic price
// action invalidates both trend and range assumptions.
func (e *Estimator) Assess(w *market.PriceWindow) (Assessment, error) {
	if w == nil || w.Len() < e.cfg.MinBars {
		n := 0
		if w != nil {
			n = w.Len()
		}
		return Assessment{}, fmt.Errorf("need %d bars, have %d: %w", e.cfg.MinBars, n, ErrInsufficientData)
	}

	bars := w.Bars()
	adx, err := indicators.ADXFunc(bars, e.cfg.ADXPeriod)
	if err != nil {
		return Assessment{}, fmt.Errorf("adx: %v: %w", err, ErrInsufficientData)
	}
	atr, err := indicators.ATRFunc(bars, e.cfg.ATRPeriod)
	if err != nil {
		return Assessment{}, fmt.Errorf("atr: %v: %w", err, ErrInsufficientData)
	}

	last := bars[len(bars)-1].Close
	a := Assessment{
		TrendStrength: clamp01(adx.ADX / 100),
		Volatility:    100 * atr / last,
		Direction:     Flat,
	}

	switch {
	case a.Volatility > e.cfg.VolatilityThreshold:
		a.Regime = Volatile
		a.Preferred = Avoid
	case adx.ADX > e.cfg.TrendThreshold:
		a.Regime = Trending
		a.Direction = Down
		if adx.PlusDI >= adx.MinusDI {
			a.Direction = Up
		}
		a.Preferred = Breakout
		if a.Volatility <= e.cfg.LowVolatility {
			a.Preferred = Pullback
		}
	default:
		a.Regime = Ranging
		a.Preferred = SupportResistance
	}
	a.Favorable = a.Regime != Volatile

	return a, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
