package strategies

import (
	"fmt"

	"github.com/rustyeddy/flowtrader/indicators"
	"github.com/rustyeddy/flowtrader/market"
	"github.com/rustyeddy/flowtrader/regime"
)

// Grid trades support and resistance inside a sideways range. It lays a
// ladder over the recent range and fades moves into its outer band.
type Grid struct {
	cfg GridConfig
}

func NewGrid(cfg GridConfig) *Grid {
	return &Grid{cfg: cfg}
}

func (g *Grid) Name() string { return "grid" }
func (g *Grid) Kind() Kind   { return KindGrid }

func (g *Grid) Supports(pref regime.Strategy) bool {
	return pref == regime.SupportResistance
}

// Ladder returns 2*levels+1 ascending prices evenly spaced from lo to hi.
func Ladder(lo, hi float64, levels int) []float64 {
	if levels <= 0 || hi <= lo {
		return nil
	}
	step := (hi - lo) / float64(2*levels)
	out := make([]float64, 2*levels+1)
	for i := range out {
		out[i] = lo + step*float64(i)
	}
	out[len(out)-1] = hi
	return out
}

func (g *Grid) Propose(ctx Context) (Candidate, bool) {
	if ctx.Window == nil || ctx.Regime.Regime != regime.Ranging {
		return Candidate{}, false
	}
	bars := ctx.Window.Tail(g.cfg.Lookback)
	if len(bars) < g.cfg.Lookback {
		return Candidate{}, false
	}
	hi, lo := indicators.Range(bars)
	width := hi - lo
	mid := (hi + lo) / 2
	if width <= 0 || width/mid*100 < g.cfg.MinRangePct {
		return Candidate{}, false
	}

	ladder := Ladder(lo, hi, g.cfg.Levels)
	spacing := ladder[1] - ladder[0]
	last := bars[len(bars)-1]
	pos := (last.Close - lo) / width
	band := g.cfg.EntryBand

	c := Candidate{
		Symbol:     ctx.Symbol,
		Entry:      last.Close,
		Source:     g.Name(),
		TakeProfit: mid,
	}
	switch {
	case pos <= band:
		c.Side = market.Long
		c.StopLoss = lo - spacing
		c.Confidence = g.confidence(pos / band)
		c.Reason = fmt.Sprintf("near support %.5f", lo)
	case pos >= 1-band:
		c.Side = market.Short
		c.StopLoss = hi + spacing
		c.Confidence = g.confidence((1 - pos) / band)
		c.Reason = fmt.Sprintf("near resistance %.5f", hi)
	default:
		return Candidate{}, false
	}
	if c.StopLoss <= 0 {
		return Candidate{}, false
	}
	return c, true
}

// confidence grows as price approaches the edge of the range; depth is 0
// at the edge and 1 at the inner side of the entry band.
func (g *Grid) confidence(depth float64) float64 {
	base := g.cfg.BaseConfidence
	return clamp01(base + (1-base)*(1-depth))
}
