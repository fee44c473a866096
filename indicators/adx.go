package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/flowtrader/market"
)

// ADX implements Wilder's Average Directional Index (trend strength) and
// exposes the +DI/-DI lines used to tell the trend direction.
// Usage:
//
//	adx := indicators.NewADX(14)
//	for _, c := range candles { adx.Update(c) }
//	if adx.Ready() && adx.Value() >= 25 { ... }
type ADX struct {
	period int

	prev     market.Candle
	havePrev bool

	// Wilder-smoothed averages after warmup
	tr  float64
	pdm float64
	mdm float64

	pdi float64
	mdi float64

	adx   float64
	dxSum float64
	dxN   int

	// candles processed, including the seed
	count int
	ready bool
}

func NewADX(period int) *ADX {
	return &ADX{period: period}
}

func (a *ADX) Name() string {
	return fmt.Sprintf("ADX(%d)", a.period)
}

// Warmup is the number of candles needed before Ready: one seed, period
// candles to seed TR/DM, and period-1 more DX values to seed ADX.
func (a *ADX) Warmup() int {
	return 2 * a.period
}

func (a *ADX) Reset() {
	*a = ADX{period: a.period}
}

func (a *ADX) Ready() bool {
	return a.ready
}

func (a *ADX) Value() float64 {
	if !a.ready {
		return 0
	}
	return a.adx
}

// PlusDI returns the latest +DI (0..100).
func (a *ADX) PlusDI() float64 { return a.pdi }

// MinusDI returns the latest -DI (0..100).
func (a *ADX) MinusDI() float64 { return a.mdi }

// Update consumes the next candle.
func (a *ADX) Update(c market.Candle) {
	if !a.havePrev {
		a.prev = c
		a.havePrev = true
		a.count = 1
		return
	}

	upMove := c.High - a.prev.High
	downMove := a.prev.Low - c.Low

	var pdm, mdm float64
	if upMove > downMove && upMove > 0 {
		pdm = upMove
	}
	if downMove > upMove && downMove > 0 {
		mdm = downMove
	}
	tr := trueRange(c, a.prev)

	a.prev = c
	a.count++

	p := float64(a.period)
	samples := a.count - 1
	switch {
	case samples < a.period:
		a.tr += tr
		a.pdm += pdm
		a.mdm += mdm
		return
	case samples == a.period:
		a.tr = (a.tr + tr) / p
		a.pdm = (a.pdm + pdm) / p
		a.mdm = (a.mdm + mdm) / p
	default:
		a.tr = (a.tr*(p-1) + tr) / p
		a.pdm = (a.pdm*(p-1) + pdm) / p
		a.mdm = (a.mdm*(p-1) + mdm) / p
	}

	dx := 0.0
	if a.tr > 0 {
		a.pdi = 100 * a.pdm / a.tr
		a.mdi = 100 * a.mdm / a.tr
		if den := a.pdi + a.mdi; den > 0 {
			dx = 100 * math.Abs(a.pdi-a.mdi) / den
		}
	} else {
		a.pdi, a.mdi = 0, 0
	}

	if !a.ready {
		a.dxSum += dx
		a.dxN++
		if a.dxN == a.period {
			a.adx = a.dxSum / p
			a.ready = true
		}
		return
	}

	a.adx = (a.adx*(p-1) + dx) / p
}

// ADXResult is the batch form of ADX.
type ADXResult struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// ADXFunc runs ADX over candles and returns the final reading.
func ADXFunc(candles []market.Candle, period int) (ADXResult, error) {
	if period <= 0 {
		return ADXResult{}, fmt.Errorf("period must be positive, got %d", period)
	}
	a := NewADX(period)
	if len(candles) < a.Warmup() {
		return ADXResult{}, fmt.Errorf("not enough candles: need %d, got %d", a.Warmup(), len(candles))
	}
	for _, c := range candles {
		a.Update(c)
	}
	return ADXResult{ADX: a.Value(), PlusDI: a.PlusDI(), MinusDI: a.MinusDI()}, nil
}
