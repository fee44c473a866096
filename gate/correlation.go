package gate

import (
	"fmt"

	"github.com/rustyeddy/flowtrader/market"
)

// OutcomeReader is a read-only view of closed trade outcomes. It returns
// the pooled history of symbol's correlation group, at most k per member.
type OutcomeReader interface {
	RecentOutcomes(symbol string, k int) []market.Outcome
}

type CorrelationConfig struct {
	// Threshold is the minimum pooled success rate; equal admits.
	Threshold float64 `json:"threshold" yaml:"threshold" envconfig:"THRESHOLD"`

	// K is the number of outcomes read per correlated symbol.
	K int `json:"k" yaml:"k" envconfig:"K"`

	// MaxBoost caps the confidence uplift at a perfect success rate.
	MaxBoost float64 `json:"max_boost" yaml:"max_boost" envconfig:"MAX_BOOST"`
}

func DefaultCorrelationConfig() CorrelationConfig {
	return CorrelationConfig{Threshold: 0.4, K: 10, MaxBoost: 0.10}
}

func (c CorrelationConfig) Validate() error {
	if c.Threshold < 0 || c.Threshold >= 1 {
		return fmt.Errorf("correlation threshold must be in [0,1), got %v", c.Threshold)
	}
	if c.K <= 0 {
		return fmt.Errorf("correlation k must be positive, got %d", c.K)
	}
	if c.MaxBoost < 0 || c.MaxBoost > 1 {
		return fmt.Errorf("correlation max_boost must be in [0,1], got %v", c.MaxBoost)
	}
	return nil
}

// CorrelationResult adds the evidence behind the verdict.
type CorrelationResult struct {
	Result
	Samples     int     `json:"samples"`
	SuccessRate float64 `json:"success_rate"`
	// Factor scales the final confidence: 1 when neutral, up to
	// 1+MaxBoost for a winning group, 0 when rejected.
	Factor float64 `json:"factor"`
}

// Correlation vetoes trades in a symbol whose correlated peers have been
// losing recently.
type Correlation struct {
	cfg     CorrelationConfig
	history OutcomeReader
}

func NewCorrelation(cfg CorrelationConfig, history OutcomeReader) *Correlation {
	return &Correlation{cfg: cfg, history: history}
}

// Evaluate reads the pooled group history of symbol. No history is
// neutral: admitted with a factor of 1.
func (g *Correlation) Evaluate(symbol string) CorrelationResult {
	var outcomes []market.Outcome
	if g.history != nil {
		outcomes = g.history.RecentOutcomes(symbol, g.cfg.K)
	}
	if len(outcomes) == 0 {
		return CorrelationResult{Result: admit(1), Factor: 1}
	}

	wins := 0
	for _, o := range outcomes {
		if o.Result == market.Win {
			wins++
		}
	}
	rate := float64(wins) / float64(len(outcomes))
	res := CorrelationResult{Samples: len(outcomes), SuccessRate: rate}

	if rate < g.cfg.Threshold {
		res.Result = reject(ReasonCorrelated, 0)
		return res
	}
	res.Factor = 1 + g.cfg.MaxBoost*(rate-g.cfg.Threshold)/(1-g.cfg.Threshold)
	res.Result = admit(clamp01(res.Factor))
	return res
}
