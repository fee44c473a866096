// Package flow is the regime-adaptive decision core. It classifies the
// market, derives risk, picks a candidate from the strategy sources, runs
// it through the gates and admits or rejects it.
package flow

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/flowtrader/gate"
	"github.com/rustyeddy/flowtrader/market"
	"github.com/rustyeddy/flowtrader/regime"
	"github.com/rustyeddy/flowtrader/risk"
	"github.com/rustyeddy/flowtrader/strategies"
)

// ErrMalformedCandidate is returned when a source breaks its contract.
// It is a defect, never a rejection.
var ErrMalformedCandidate = errors.New("malformed candidate")

// Core evaluates one symbol at a time and holds no per-symbol state. The
// only mutable input is the outcome history behind the correlation gate.
type Core struct {
	cfg         Config
	estimator   *regime.Estimator
	deriver     *risk.Deriver
	sources     []strategies.Source
	correlation *gate.Correlation
	conviction  *gate.Conviction
}

// NewCore validates cfg and orders sources by priority.
func NewCore(cfg Config, sources []strategies.Source, history gate.OutcomeReader) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Core{
		cfg:         cfg,
		estimator:   regime.NewEstimator(cfg.Regime),
		deriver:     risk.NewDeriver(cfg.Risk),
		sources:     strategies.ByPriority(sources),
		correlation: gate.NewCorrelation(cfg.Correlation, history),
		conviction:  gate.NewConviction(cfg.Conviction),
	}, nil
}

func (c *Core) Config() Config { return c.cfg }

// Evaluate runs one tick for symbol. Every expected outcome is a Decision;
// the error is non-nil only for ErrMalformedCandidate, in which case the
// returned decision carries the diagnostics gathered so far.
func (c *Core) Evaluate(symbol string, w *market.PriceWindow, p market.Participation) (Decision, error) {
	d := Decision{Symbol: symbol}
	d.enter(Idle)

	if w == nil {
		d.reject(ReasonInsufficientData)
		return d, nil
	}
	if last, ok := w.Last(); ok {
		d.At = last.Time
	}

	a, err := c.estimator.Assess(w)
	if err != nil {
		d.Diagnostics.Error = err.Error()
		d.reject(ReasonInsufficientData)
		return d, nil
	}
	d.enter(RegimeClassified)
	d.Diagnostics.Regime = &a

	params := c.deriver.Derive(a)
	d.Diagnostics.Risk = &params

	cand, ok, err := c.propose(symbol, w, a)
	if err != nil {
		d.Diagnostics.Error = err.Error()
		return d, err
	}
	if !ok {
		d.reject(ReasonNoCandidate)
		return d, nil
	}
	d.enter(CandidateProposed)
	d.Diagnostics.Candidate = &cand

	corr := c.correlation.Evaluate(symbol)
	d.Diagnostics.Correlation = &corr
	if !corr.Admitted {
		d.enter(GatesEvaluated)
		d.reject(ReasonCorrelated)
		return d, nil
	}

	conv := c.conviction.Evaluate(cand, p)
	d.Diagnostics.Conviction = &conv
	d.enter(GatesEvaluated)
	if !conv.Admitted {
		d.reject(ReasonConviction)
		return d, nil
	}

	final := Combine(corr.Factor, conv.AdjustedConfidence)
	d.Diagnostics.FinalConfidence = final
	if final < c.cfg.MinConfidence {
		d.reject(ReasonLowConfidence)
		return d, nil
	}

	t := c.finalize(cand, params, final)
	d.Trade = &t
	d.Admitted = true
	d.enter(Admitted)
	return d, nil
}

// Combine multiplies the correlation factor and gate confidences, clamped
// to [0,1]. The conviction gate's confidence already carries the
// candidate's raw confidence.
func Combine(confidences ...float64) float64 {
	v := 1.0
	for _, c := range confidences {
		v *= c
	}
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// propose asks the sources in priority order and returns the first
// candidate from a source that trades the preferred strategy.
func (c *Core) propose(symbol string, w *market.PriceWindow, a regime.Assessment) (strategies.Candidate, bool, error) {
	ctx := strategies.Context{Symbol: symbol, Window: w, Regime: a}
	for _, src := range c.sources {
		if !src.Supports(a.Preferred) {
			continue
		}
		cand, ok := src.Propose(ctx)
		if !ok {
			continue
		}
		if err := cand.Validate(); err != nil {
			return cand, false, fmt.Errorf("source %s: %w: %w", src.Name(), ErrMalformedCandidate, err)
		}
		if cand.Symbol != symbol {
			return cand, false, fmt.Errorf("source %s: %w: symbol %q for %q", src.Name(), ErrMalformedCandidate, cand.Symbol, symbol)
		}
		if cand.Source == "" {
			cand.Source = src.Name()
		}
		return cand, true, nil
	}
	return strategies.Candidate{}, false, nil
}

func (c *Core) finalize(cand strategies.Candidate, params risk.Parameters, confidence float64) Trade {
	stop, take := params.Prices(cand.Entry, cand.Side)

	base := c.cfg.Sizing.BaseQuantity
	if s := c.cfg.Sizing; s.Equity > 0 && s.RiskPct > 0 {
		base = risk.Size(risk.SizeInputs{
			Equity:         s.Equity,
			RiskPct:        s.RiskPct,
			Entry:          cand.Entry,
			Stop:           stop,
			QuoteToAccount: 1,
			Step:           s.Step,
		}).Quantity
	}

	return Trade{
		Symbol:     cand.Symbol,
		Side:       cand.Side,
		Entry:      cand.Entry,
		StopLoss:   stop,
		TakeProfit: take,
		Size:       base * params.SizeMultiplier,
		Confidence: confidence,
		Source:     cand.Source,
		Risk:       params,
	}
}
