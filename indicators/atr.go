package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/flowtrader/market"
)

// ATRFunc returns the Wilder-smoothed average true range. It needs
// period+1 candles since the first only supplies a previous close.
func ATRFunc(candles []market.Candle, period int) (float64, error) {
	switch {
	case period <= 0:
		return 0, fmt.Errorf("atr: period must be positive, got %d", period)
	case len(candles) < period+1:
		return 0, fmt.Errorf("atr: need %d candles, got %d", period+1, len(candles))
	}
	v, _ := Run(NewATR(period), candles)
	return v, nil
}

// ATR is the streaming form of ATRFunc.
type ATR struct {
	period int
	prev   *market.Candle
	seen   int
	seed   float64
	value  float64
}

func NewATR(period int) *ATR { return &ATR{period: period} }

func (a *ATR) Name() string { return fmt.Sprintf("ATR(%d)", a.period) }

func (a *ATR) Warmup() int { return a.period + 1 }

func (a *ATR) Reset() { *a = ATR{period: a.period} }

func (a *ATR) Update(c market.Candle) {
	prev := a.prev
	a.prev = &c
	if prev == nil {
		return
	}

	tr := trueRange(c, *prev)
	if a.seen >= a.period {
		n := float64(a.period)
		a.value = (a.value*(n-1) + tr) / n
		return
	}
	a.seed += tr
	a.seen++
	if a.seen == a.period {
		a.value = a.seed / float64(a.period)
	}
}

func (a *ATR) Ready() bool { return a.seen >= a.period }

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.value
}

// trueRange is the widest of the bar's range and its gaps from prev's close.
func trueRange(c, prev market.Candle) float64 {
	return math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prev.Close), math.Abs(c.Low-prev.Close)))
}
