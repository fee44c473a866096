package risk

import (
	"math"

	"github.com/rustyeddy/flowtrader/market"
)

// Parameters is the regime-conditioned bracket and sizing for a trade.
// Percentages are in percent of entry (0.3 means 0.3%).
type Parameters struct {
	StopLossPct    float64 `json:"stop_loss_pct"`
	TakeProfitPct  float64 `json:"take_profit_pct"`
	SizeMultiplier float64 `json:"size_multiplier"`
}

// RR is the reward to risk ratio of the bracket.
func (p Parameters) RR() float64 {
	if p.StopLossPct == 0 {
		return 0
	}
	return p.TakeProfitPct / p.StopLossPct
}

// Prices applies the bracket to an entry price for the given side.
func (p Parameters) Prices(entry float64, side market.Side) (stop, take float64) {
	s := side.Sign()
	stop = entry * (1 - s*p.StopLossPct/100)
	take = entry * (1 + s*p.TakeProfitPct/100)
	return stop, take
}

// Valid reports whether all fields are positive and finite.
func (p Parameters) Valid() bool {
	for _, v := range []float64{p.StopLossPct, p.TakeProfitPct, p.SizeMultiplier} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
