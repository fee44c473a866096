package strategies

import (
	"fmt"

	"github.com/rustyeddy/flowtrader/indicators"
	"github.com/rustyeddy/flowtrader/market"
	"github.com/rustyeddy/flowtrader/regime"
)

// Trend follows established trends. In a breakout regime it buys closes
// above the recent range (sells below it); in a pullback regime it enters
// when price comes back to the fast EMA while the EMAs stay stacked.
type Trend struct {
	cfg TrendConfig
}

func NewTrend(cfg TrendConfig) *Trend {
	return &Trend{cfg: cfg}
}

func (t *Trend) Name() string { return "trend" }
func (t *Trend) Kind() Kind   { return KindTrend }

func (t *Trend) Supports(pref regime.Strategy) bool {
	return pref == regime.Pullback || pref == regime.Breakout
}

func (t *Trend) Propose(ctx Context) (Candidate, bool) {
	if ctx.Window == nil || !ctx.Regime.Trending() {
		return Candidate{}, false
	}
	var side market.Side
	switch ctx.Regime.Direction {
	case regime.Up:
		side = market.Long
	case regime.Down:
		side = market.Short
	default:
		return Candidate{}, false
	}

	bars := ctx.Window.Bars()
	switch ctx.Regime.Preferred {
	case regime.Breakout:
		return t.breakout(ctx, bars, side)
	case regime.Pullback:
		return t.pullback(ctx, bars, side)
	}
	return Candidate{}, false
}

func (t *Trend) breakout(ctx Context, bars []market.Candle, side market.Side) (Candidate, bool) {
	n := t.cfg.BreakoutLookback
	if len(bars) < n+1 {
		return Candidate{}, false
	}
	last := bars[len(bars)-1]
	hi, lo := indicators.Range(bars[len(bars)-1-n : len(bars)-1])

	var stop float64
	var reason string
	switch {
	case side == market.Long && last.Close > hi:
		stop = last.Low
		reason = fmt.Sprintf("close %.5f broke %d-bar high %.5f", last.Close, n, hi)
	case side == market.Short && last.Close < lo:
		stop = last.High
		reason = fmt.Sprintf("close %.5f broke %d-bar low %.5f", last.Close, n, lo)
	default:
		return Candidate{}, false
	}
	return t.candidate(ctx, side, last.Close, stop, reason)
}

func (t *Trend) pullback(ctx Context, bars []market.Candle, side market.Side) (Candidate, bool) {
	fast, err := indicators.EMA(bars, t.cfg.FastPeriod)
	if err != nil {
		return Candidate{}, false
	}
	slow, err := indicators.EMA(bars, t.cfg.SlowPeriod)
	if err != nil {
		return Candidate{}, false
	}
	last := bars[len(bars)-1]
	tol := fast * t.cfg.PullbackTolerance / 100

	switch {
	case side == market.Long && fast > slow && last.Close > slow && last.Close <= fast+tol:
	case side == market.Short && fast < slow && last.Close < slow && last.Close >= fast-tol:
	default:
		return Candidate{}, false
	}
	reason := fmt.Sprintf("pullback to EMA(%d) %.5f, EMA(%d) %.5f", t.cfg.FastPeriod, fast, t.cfg.SlowPeriod, slow)
	return t.candidate(ctx, side, last.Close, slow, reason)
}

func (t *Trend) candidate(ctx Context, side market.Side, entry, stop float64, reason string) (Candidate, bool) {
	dist := (entry - stop) * side.Sign()
	if dist <= 0 {
		return Candidate{}, false
	}
	return Candidate{
		Symbol:     ctx.Symbol,
		Side:       side,
		Entry:      entry,
		Confidence: clamp01(t.cfg.BaseConfidence + t.cfg.StrengthWeight*ctx.Regime.TrendStrength),
		Source:     t.Name(),
		StopLoss:   stop,
		TakeProfit: entry + side.Sign()*dist*t.cfg.RewardRisk,
		Reason:     reason,
	}, true
}
