package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/flowtrader/regime"
)

// Bracket scales the base stop-loss and take-profit.
type Bracket struct {
	StopLoss   float64 `json:"stop_loss" yaml:"stop_loss"`
	TakeProfit float64 `json:"take_profit" yaml:"take_profit"`
}

// Config holds the risk parameter deriver's tunables.
type Config struct {
	BaseStopLossPct   float64 `json:"base_stop_loss_pct" yaml:"base_stop_loss_pct" envconfig:"BASE_STOP_LOSS_PCT"`
	BaseTakeProfitPct float64 `json:"base_take_profit_pct" yaml:"base_take_profit_pct" envconfig:"BASE_TAKE_PROFIT_PCT"`

	TrendingLowVol  Bracket `json:"trending_low_vol" yaml:"trending_low_vol" ignored:"true"`
	TrendingHighVol Bracket `json:"trending_high_vol" yaml:"trending_high_vol" ignored:"true"`
	Ranging         Bracket `json:"ranging" yaml:"ranging" ignored:"true"`
	Volatile        Bracket `json:"volatile" yaml:"volatile" ignored:"true"`

	// Above ExtraScalingAbove volatility both sides widen by Extra.
	ExtraScalingAbove float64 `json:"extra_scaling_above" yaml:"extra_scaling_above" envconfig:"EXTRA_SCALING_ABOVE"`
	Extra             Bracket `json:"extra" yaml:"extra" ignored:"true"`

	// SizeMultiplier = ReferenceVolatility/volatility, capped at 1 and
	// floored at MinSizeMultiplier.
	ReferenceVolatility float64 `json:"reference_volatility" yaml:"reference_volatility" envconfig:"REFERENCE_VOLATILITY"`
	MinSizeMultiplier   float64 `json:"min_size_multiplier" yaml:"min_size_multiplier" envconfig:"MIN_SIZE_MULTIPLIER"`
}

func DefaultConfig() Config {
	return Config{
		BaseStopLossPct:     0.3,
		BaseTakeProfitPct:   0.8,
		TrendingLowVol:      Bracket{StopLoss: 0.8, TakeProfit: 2.5},
		TrendingHighVol:     Bracket{StopLoss: 1.0, TakeProfit: 1.8},
		Ranging:             Bracket{StopLoss: 1.0, TakeProfit: 1.0},
		Volatile:            Bracket{StopLoss: 1.5, TakeProfit: 1.2},
		ExtraScalingAbove:   2.0,
		Extra:               Bracket{StopLoss: 1.3, TakeProfit: 1.4},
		ReferenceVolatility: 1.0,
		MinSizeMultiplier:   0.2,
	}
}

func (c Config) Validate() error {
	if c.BaseStopLossPct <= 0 || c.BaseTakeProfitPct <= 0 {
		return fmt.Errorf("risk: base stop-loss and take-profit must be positive")
	}
	for name, b := range map[string]Bracket{
		"trending_low_vol":  c.TrendingLowVol,
		"trending_high_vol": c.TrendingHighVol,
		"ranging":           c.Ranging,
		"volatile":          c.Volatile,
		"extra":             c.Extra,
	} {
		if b.StopLoss <= 0 || b.TakeProfit <= 0 {
			return fmt.Errorf("risk: %s multipliers must be positive", name)
		}
	}
	if c.ReferenceVolatility <= 0 {
		return fmt.Errorf("risk: reference_volatility must be positive")
	}
	if c.MinSizeMultiplier <= 0 || c.MinSizeMultiplier > 1 {
		return fmt.Errorf("risk: min_size_multiplier must be in (0,1]")
	}

	// Trend following must keep a favourable reward skew, with or without
	// the extra volatility scaling.
	extra := math.Min(1, c.Extra.TakeProfit/c.Extra.StopLoss)
	for name, b := range map[string]Bracket{"trending_low_vol": c.TrendingLowVol, "trending_high_vol": c.TrendingHighVol} {
		rr := (c.BaseTakeProfitPct * b.TakeProfit) / (c.BaseStopLossPct * b.StopLoss)
		if rr*extra < 1 {
			return fmt.Errorf("risk: %s reward/risk %.2f below 1", name, rr*extra)
		}
	}
	return nil
}

// Deriver maps a regime assessment to risk parameters. It is a pure
// function of its configuration and input.
type Deriver struct {
	cfg Config
}

func NewDeriver(cfg Config) *Deriver {
	return &Deriver{cfg: cfg}
}

func (d *Deriver) Derive(a regime.Assessment) Parameters {
	var b Bracket
	switch a.Regime {
	case regime.Trending:
		// the estimator prefers pullbacks exactly when volatility is low
		b = d.cfg.TrendingHighVol
		if a.Preferred == regime.Pullback {
			b = d.cfg.TrendingLowVol
		}
	case regime.Volatile:
		b = d.cfg.Volatile
	default:
		b = d.cfg.Ranging
	}

	sl := d.cfg.BaseStopLossPct * b.StopLoss
	tp := d.cfg.BaseTakeProfitPct * b.TakeProfit
	if a.Volatility > d.cfg.ExtraScalingAbove {
		sl *= d.cfg.Extra.StopLoss
		tp *= d.cfg.Extra.TakeProfit
	}

	return Parameters{
		StopLossPct:    sl,
		TakeProfitPct:  tp,
		SizeMultiplier: d.sizeMultiplier(a.Volatility),
	}
}

func (d *Deriver) sizeMultiplier(vol float64) float64 {
	if vol <= 0 || math.IsNaN(vol) {
		vol = math.SmallestNonzeroFloat64
	}
	m := d.cfg.ReferenceVolatility / vol
	if m > 1 {
		m = 1
	}
	if m < d.cfg.MinSizeMultiplier {
		m = d.cfg.MinSizeMultiplier
	}
	return m
}
