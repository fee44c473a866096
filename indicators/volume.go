package indicators

import "github.com/rustyeddy/flowtrader/market"

// AverageVolume returns the mean of the last period volumes, or of all of
// them when fewer are available. Empty input yields 0.
func AverageVolume(volumes []float64, period int) float64 {
	if len(volumes) == 0 || period <= 0 {
		return 0
	}
	if period > len(volumes) {
		period = len(volumes)
	}
	sum := 0.0
	for _, v := range volumes[len(volumes)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// VolumeRatio compares the latest volume with the average of the lookback
// volumes before it. It returns 0 when there is no baseline.
func VolumeRatio(volumes []float64, lookback int) float64 {
	if len(volumes) < 2 {
		return 0
	}
	current := volumes[len(volumes)-1]
	avg := AverageVolume(volumes[:len(volumes)-1], lookback)
	if avg <= 0 {
		return 0
	}
	return current / avg
}

// Range returns the highest high and lowest low of candles.
func Range(candles []market.Candle) (hi, lo float64) {
	for i, c := range candles {
		if i == 0 || c.High > hi {
			hi = c.High
		}
		if i == 0 || c.Low < lo {
			lo = c.Low
		}
	}
	return hi, lo
}
