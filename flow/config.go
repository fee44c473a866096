package flow

import (
	"fmt"
	"time"

	"github.com/rustyeddy/flowtrader/gate"
	"github.com/rustyeddy/flowtrader/regime"
	"github.com/rustyeddy/flowtrader/risk"
)

// Config holds every threshold of the decision core.
type Config struct {
	Regime      regime.Config          `json:"regime" yaml:"regime" envconfig:"REGIME"`
	Risk        risk.Config            `json:"risk" yaml:"risk" envconfig:"RISK"`
	Correlation gate.CorrelationConfig `json:"correlation" yaml:"correlation" envconfig:"CORRELATION"`
	Conviction  gate.ConvictionConfig  `json:"conviction" yaml:"conviction" envconfig:"CONVICTION"`

	// MinConfidence is the admission floor for the combined confidence.
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence" envconfig:"MIN_CONFIDENCE"`

	Sizing Sizing `json:"sizing" yaml:"sizing" envconfig:"SIZING"`

	// WindowLength is how many bars are requested per tick.
	WindowLength int           `json:"window_length" yaml:"window_length" envconfig:"WINDOW_LENGTH"`
	TickInterval time.Duration `json:"tick_interval" yaml:"tick_interval" envconfig:"TICK_INTERVAL"`
	TickTimeout  time.Duration `json:"tick_timeout" yaml:"tick_timeout" envconfig:"TICK_TIMEOUT"`
}

// Sizing picks the base quantity before the regime's size multiplier.
// When Equity and RiskPct are set the base risks RiskPct of Equity to the
// stop; otherwise BaseQuantity is used.
type Sizing struct {
	BaseQuantity float64 `json:"base_quantity" yaml:"base_quantity" envconfig:"BASE_QUANTITY"`
	Equity       float64 `json:"equity" yaml:"equity" envconfig:"EQUITY"`
	RiskPct      float64 `json:"risk_pct" yaml:"risk_pct" envconfig:"RISK_PCT"`
	Step         float64 `json:"step" yaml:"step" envconfig:"STEP"`
}

func DefaultConfig() Config {
	return Config{
		Regime:        regime.DefaultConfig(),
		Risk:          risk.DefaultConfig(),
		Correlation:   gate.DefaultCorrelationConfig(),
		Conviction:    gate.DefaultConvictionConfig(),
		MinConfidence: 0.5,
		Sizing:        Sizing{BaseQuantity: 1},
		WindowLength:  100,
		TickInterval:  15 * time.Second,
		TickTimeout:   5 * time.Second,
	}
}

func (c Config) Validate() error {
	if err := c.Regime.Validate(); err != nil {
		return err
	}
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	if err := c.Correlation.Validate(); err != nil {
		return err
	}
	if err := c.Conviction.Validate(); err != nil {
		return err
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("flow: min_confidence must be in [0,1], got %v", c.MinConfidence)
	}
	if c.Sizing.BaseQuantity <= 0 && (c.Sizing.Equity <= 0 || c.Sizing.RiskPct <= 0) {
		return fmt.Errorf("flow: sizing needs base_quantity or equity and risk_pct")
	}
	if c.Sizing.RiskPct < 0 || c.Sizing.RiskPct > 0.1 {
		return fmt.Errorf("flow: sizing risk_pct must be in [0,0.1], got %v", c.Sizing.RiskPct)
	}
	if c.WindowLength < c.Regime.MinBars {
		return fmt.Errorf("flow: window_length %d is below regime min_bars %d", c.WindowLength, c.Regime.MinBars)
	}
	if c.TickInterval <= 0 || c.TickTimeout <= 0 {
		return fmt.Errorf("flow: tick_interval and tick_timeout must be positive")
	}
	return nil
}
