package indicators

import (
	"fmt"

	"github.com/rustyeddy/flowtrader/market"
)

// EMA returns the exponential moving average of the closes, seeded with the
// mean of the first period closes.
func EMA(candles []market.Candle, period int) (float64, error) {
	switch {
	case period <= 0:
		return 0, fmt.Errorf("ema: period must be positive, got %d", period)
	case len(candles) < period:
		return 0, fmt.Errorf("ema: need %d candles, got %d", period, len(candles))
	}
	v, _ := Run(NewEMA(period), candles)
	return v, nil
}

// Smoothed is a streaming EMA. The first period closes only seed it.
type Smoothed struct {
	period int
	alpha  float64
	seen   int
	seed   float64
	value  float64
}

func NewEMA(period int) *Smoothed {
	return &Smoothed{period: period, alpha: 2 / float64(period+1)}
}

func (s *Smoothed) Name() string { return fmt.Sprintf("EMA(%d)", s.period) }

func (s *Smoothed) Warmup() int { return s.period }

func (s *Smoothed) Reset() { *s = Smoothed{period: s.period, alpha: s.alpha} }

func (s *Smoothed) Update(c market.Candle) {
	if s.seen >= s.period {
		s.value += s.alpha * (c.Close - s.value)
		return
	}
	s.seed += c.Close
	s.seen++
	if s.seen == s.period {
		s.value = s.seed / float64(s.period)
	}
}

func (s *Smoothed) Ready() bool { return s.seen >= s.period }

func (s *Smoothed) Value() float64 {
	if !s.Ready() {
		return 0
	}
	return s.value
}
