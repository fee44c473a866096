package gate

import (
	"fmt"

	"github.com/rustyeddy/flowtrader/indicators"
	"github.com/rustyeddy/flowtrader/market"
	"github.com/rustyeddy/flowtrader/strategies"
)

// Bias is the direction read from the momentum oscillator.
type Bias int

const (
	Neutral Bias = iota
	Bullish
	Bearish
)

func (b Bias) String() string {
	switch b {
	case Bullish:
		return "strong_bullish"
	case Bearish:
		return "strong_bearish"
	default:
		return "neutral"
	}
}

func (b Bias) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// agrees reports whether the bias supports trading side.
func (b Bias) agrees(side market.Side) bool {
	return (b == Bullish && side == market.Long) || (b == Bearish && side == market.Short)
}

type ConvictionConfig struct {
	// VolumeLookback is how many bars before the last one form the
	// average volume.
	VolumeLookback int `json:"volume_lookback" yaml:"volume_lookback" envconfig:"VOLUME_LOOKBACK"`

	HighVolumeRatio     float64 `json:"high_volume_ratio" yaml:"high_volume_ratio" envconfig:"HIGH_VOLUME_RATIO"`
	ModerateVolumeRatio float64 `json:"moderate_volume_ratio" yaml:"moderate_volume_ratio" envconfig:"MODERATE_VOLUME_RATIO"`
	HighVolumeScore     float64 `json:"high_volume_score" yaml:"high_volume_score" envconfig:"HIGH_VOLUME_SCORE"`
	ModerateVolumeScore float64 `json:"moderate_volume_score" yaml:"moderate_volume_score" envconfig:"MODERATE_VOLUME_SCORE"`
	LowVolumeScore      float64 `json:"low_volume_score" yaml:"low_volume_score" envconfig:"LOW_VOLUME_SCORE"`

	// Momentum above Bullish or below Bearish is strong; anything between
	// is neutral.
	Bullish        float64 `json:"bullish" yaml:"bullish" envconfig:"BULLISH"`
	Bearish        float64 `json:"bearish" yaml:"bearish" envconfig:"BEARISH"`
	StrongScore    float64 `json:"strong_score" yaml:"strong_score" envconfig:"STRONG_SCORE"`
	NeutralScore   float64 `json:"neutral_score" yaml:"neutral_score" envconfig:"NEUTRAL_SCORE"`
	MinScore       float64 `json:"min_score" yaml:"min_score" envconfig:"MIN_SCORE"`
	MomentumPeriod int     `json:"momentum_period" yaml:"momentum_period" envconfig:"MOMENTUM_PERIOD"`
}

func DefaultConvictionConfig() ConvictionConfig {
	return ConvictionConfig{
		VolumeLookback:      20,
		HighVolumeRatio:     1.5,
		ModerateVolumeRatio: 1.2,
		HighVolumeScore:     1.0,
		ModerateVolumeScore: 0.8,
		LowVolumeScore:      0.3,
		Bullish:             70,
		Bearish:             30,
		StrongScore:         1.0,
		NeutralScore:        0.5,
		MinScore:            0.6,
		MomentumPeriod:      14,
	}
}

func (c ConvictionConfig) Validate() error {
	if c.VolumeLookback <= 0 {
		return fmt.Errorf("conviction volume_lookback must be positive, got %d", c.VolumeLookback)
	}
	if c.ModerateVolumeRatio <= 0 || c.HighVolumeRatio < c.ModerateVolumeRatio {
		return fmt.Errorf("conviction volume ratios must satisfy 0 < moderate <= high")
	}
	if c.Bearish < 0 || c.Bullish > 100 || c.Bearish >= c.Bullish {
		return fmt.Errorf("conviction momentum bounds must satisfy 0 <= bearish < bullish <= 100")
	}
	for _, s := range []float64{c.HighVolumeScore, c.ModerateVolumeScore, c.LowVolumeScore, c.StrongScore, c.NeutralScore, c.MinScore} {
		if s < 0 || s > 1 {
			return fmt.Errorf("conviction scores must be in [0,1]")
		}
	}
	if c.MomentumPeriod <= 0 {
		return fmt.Errorf("conviction momentum_period must be positive, got %d", c.MomentumPeriod)
	}
	return nil
}

// ConvictionResult adds the participation readings behind the verdict.
type ConvictionResult struct {
	Result
	VolumeRatio   float64 `json:"volume_ratio"`
	VolumeScore   float64 `json:"volume_score"`
	Momentum      float64 `json:"momentum"`
	MomentumScore float64 `json:"momentum_score"`
	Bias          Bias    `json:"bias"`
}

// Conviction admits a candidate only when volume and momentum show real
// participation in the candidate's direction.
type Conviction struct {
	cfg ConvictionConfig
}

func NewConviction(cfg ConvictionConfig) *Conviction {
	return &Conviction{cfg: cfg}
}

func (g *Conviction) Config() ConvictionConfig { return g.cfg }

func (g *Conviction) Evaluate(c strategies.Candidate, p market.Participation) ConvictionResult {
	res := ConvictionResult{
		VolumeRatio: indicators.VolumeRatio(p.Volumes, g.cfg.VolumeLookback),
		Momentum:    p.Momentum,
	}
	res.VolumeScore = g.volumeScore(res.VolumeRatio)
	res.Bias, res.MomentumScore = g.momentum(p.Momentum)

	conf := clamp01(c.Confidence * res.VolumeScore * res.MomentumScore)
	if res.VolumeScore >= g.cfg.MinScore && res.MomentumScore >= g.cfg.MinScore && res.Bias.agrees(c.Side) {
		res.Result = admit(conf)
	} else {
		res.Result = reject(ReasonConviction, conf)
	}
	return res
}

func (g *Conviction) volumeScore(ratio float64) float64 {
	switch {
	case ratio >= g.cfg.HighVolumeRatio:
		return g.cfg.HighVolumeScore
	case ratio >= g.cfg.ModerateVolumeRatio:
		return g.cfg.ModerateVolumeScore
	default:
		return g.cfg.LowVolumeScore
	}
}

func (g *Conviction) momentum(v float64) (Bias, float64) {
	switch {
	case v > g.cfg.Bullish:
		return Bullish, g.cfg.StrongScore
	case v < g.cfg.Bearish:
		return Bearish, g.cfg.StrongScore
	default:
		return Neutral, g.cfg.NeutralScore
	}
}
