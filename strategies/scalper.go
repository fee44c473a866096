package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/flowtrader/indicators"
	"github.com/rustyeddy/flowtrader/market"
	"github.com/rustyeddy/flowtrader/regime"
)

// Scalper takes short momentum trades off a fast/slow EMA split. It is the
// lowest priority source and only trades a bounded volatility band.
type Scalper struct {
	cfg ScalperConfig
}

func NewScalper(cfg ScalperConfig) *Scalper {
	return &Scalper{cfg: cfg}
}

func (s *Scalper) Name() string { return "scalper" }
func (s *Scalper) Kind() Kind   { return KindScalp }

func (s *Scalper) Supports(pref regime.Strategy) bool {
	return pref != regime.Avoid
}

func (s *Scalper) Propose(ctx Context) (Candidate, bool) {
	a := ctx.Regime
	if ctx.Window == nil || a.Preferred == regime.Avoid || a.Regime == regime.Volatile {
		return Candidate{}, false
	}
	if a.Volatility < s.cfg.MinVolatility || a.Volatility > s.cfg.MaxVolatility {
		return Candidate{}, false
	}

	bars := ctx.Window.Bars()
	fast, err := indicators.EMA(bars, s.cfg.FastPeriod)
	if err != nil {
		return Candidate{}, false
	}
	slow, err := indicators.EMA(bars, s.cfg.SlowPeriod)
	if err != nil {
		return Candidate{}, false
	}
	last := bars[len(bars)-1]
	spread := (fast - slow) / last.Close * 100
	if math.Abs(spread) < s.cfg.MinSpreadPct {
		return Candidate{}, false
	}

	side := market.Long
	if spread < 0 {
		side = market.Short
	}
	sign := side.Sign()
	strength := math.Min(1, math.Abs(spread)/(4*s.cfg.MinSpreadPct))
	return Candidate{
		Symbol:     ctx.Symbol,
		Side:       side,
		Entry:      last.Close,
		Confidence: clamp01(s.cfg.BaseConfidence + 0.25*strength),
		Source:     s.Name(),
		StopLoss:   last.Close * (1 - sign*s.cfg.StopLossPct/100),
		TakeProfit: last.Close * (1 + sign*s.cfg.TakeProfitPct/100),
		Reason:     fmt.Sprintf("EMA spread %.3f%%", spread),
	}, true
}
