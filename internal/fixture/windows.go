// Package fixture builds deterministic synthetic bar series with a known
// regime for tests across packages.
package fixture

import (
	"time"

	"github.com/rustyeddy/flowtrader/market"
)

// Start is the timestamp of the first generated bar.
var Start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// Interval between generated bars.
const Interval = time.Minute

const baseVolume = 1000

// Trend moves the close by step every bar with a constant half range.
// step 0.5 / half 0.2 from 100 classifies as a low volatility trend.
func Trend(n int, start, step, half float64) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		c := start + step*float64(i)
		out[i] = bar(i, c, half)
	}
	return out
}

// Oscillate alternates the close between mid+amp and mid-amp.
// Small amplitudes classify as ranging, large ones as volatile.
func Oscillate(n int, mid, amp, half float64) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		c := mid - amp
		if i%2 == 0 {
			c = mid + amp
		}
		out[i] = bar(i, c, half)
	}
	return out
}

// LowVolTrend is a trending-up, low volatility series (pullback regime).
func LowVolTrend(n int) []market.Candle { return Trend(n, 100, 0.5, 0.2) }

// HighVolTrend is a trending-up series above the low volatility cut
// (breakout regime) but below the volatile threshold.
func HighVolTrend(n int) []market.Candle { return Trend(n, 100, 2, 1) }

// Range is a quiet sideways series.
func Range(n int) []market.Candle { return Oscillate(n, 100, 0.3, 0.2) }

// Choppy is a volatile sideways series with volatility close to 3.1%.
func Choppy(n int) []market.Candle { return Oscillate(n, 100, 1, 1.1) }

// WithVolume sets the volume of the last bar.
func WithVolume(bars []market.Candle, v float64) []market.Candle {
	out := append([]market.Candle(nil), bars...)
	if len(out) > 0 {
		out[len(out)-1].Volume = v
	}
	return out
}

// Window wraps bars in a window sized to hold them.
func Window(symbol string, bars []market.Candle) *market.PriceWindow {
	w, err := market.WindowOf(symbol, bars)
	if err != nil {
		panic(err)
	}
	return w
}

// Participation builds conviction inputs from bars and a momentum value.
func Participation(bars []market.Candle, momentum float64) market.Participation {
	vols := make([]float64, len(bars))
	for i, c := range bars {
		vols[i] = c.Volume
	}
	return market.Participation{Volumes: vols, Momentum: momentum}
}

func bar(i int, c, half float64) market.Candle {
	return market.Candle{
		Time:   Start.Add(time.Duration(i) * Interval),
		Open:   c,
		High:   c + half,
		Low:    c - half,
		Close:  c,
		Volume: baseVolume,
	}
}
