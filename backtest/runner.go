// Package backtest replays recorded bars through the flow engine and the
// position ledger.
package backtest

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/flowtrader/flow"
	"github.com/rustyeddy/flowtrader/ledger"
	"github.com/rustyeddy/flowtrader/marketdata"
)

// BarFeed yields bars one at a time, typically from a dataset.
// Implementations should be deterministic and return (ok=false, err=nil) at EOF.
type BarFeed interface {
	Next() (b marketdata.Bar, ok bool, err error)
	Close() error
}

// RunnerOptions controls how the backtest runner behaves.
type RunnerOptions struct {
	// If true, close all open positions at the last seen close.
	// Close reason will be CloseReason (or "end_of_data" if empty).
	CloseEnd    bool
	CloseReason string
}

// Runner drives the engine forward bar by bar. Store is the engine's
// market data source and Ledger its opener.
type Runner struct {
	Engine  *flow.Engine
	Store   *marketdata.Store
	Ledger  *ledger.Ledger
	Feed    BarFeed
	Options RunnerOptions
	Log     zerolog.Logger
}

// Run executes the backtest loop:
//  1. read next bar and push it into the store
//  2. apply it to the symbol's open position
//  3. evaluate the symbol when it holds no position
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Engine == nil {
		return Result{}, fmt.Errorf("backtest: Engine is required")
	}
	if r.Store == nil {
		return Result{}, fmt.Errorf("backtest: Store is required")
	}
	if r.Ledger == nil {
		return Result{}, fmt.Errorf("backtest: Ledger is required")
	}
	if r.Feed == nil {
		return Result{}, fmt.Errorf("backtest: Feed is required")
	}
	defer r.Feed.Close()

	res := Result{Reasons: make(map[string]int)}
	symbols := make(map[string]bool)

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		b, ok, err := r.Feed.Next()
		if err != nil {
			return res, err
		}
		if !ok {
			break
		}

		res.Bars++
		symbols[b.Symbol] = true
		if res.Start.IsZero() || b.Time.Before(res.Start) {
			res.Start = b.Time
		}
		if b.Time.After(res.End) {
			res.End = b.Time
		}

		if err := r.Store.Push(b.Symbol, b.Candle); err != nil {
			return res, fmt.Errorf("backtest: %s: %w", b.Symbol, err)
		}
		if _, err := r.Ledger.UpdatePrice(b.Symbol, b.Candle); err != nil {
			r.Log.Warn().Err(err).Str("symbol", b.Symbol).Msg("position update")
		}
		if _, open := r.Ledger.OpenFor(b.Symbol); open {
			continue
		}

		d, err := r.Engine.EvaluateTick(ctx, b.Symbol)
		if err != nil {
			return res, err
		}
		res.Decisions++
		if d.Admitted {
			res.Admitted++
		} else {
			res.Reasons[string(d.Reason)]++
		}
	}

	if r.Options.CloseEnd {
		reason := r.Options.CloseReason
		if reason == "" {
			reason = "end_of_data"
		}
		mark := func(symbol string) (float64, bool) {
			c, err := r.Store.Last(symbol)
			return c.Close, err == nil
		}
		if err := r.Ledger.CloseAll(mark, res.End, reason); err != nil {
			r.Log.Warn().Err(err).Msg("close at end of data")
		}
	}

	for s := range symbols {
		res.Symbols = append(res.Symbols, s)
	}
	sort.Strings(res.Symbols)

	st := r.Ledger.Stats()
	res.Trades = st.Closed
	res.Wins = st.Wins
	res.Losses = st.Losses
	res.NetPL = st.RealizedPL
	res.Open = len(r.Ledger.OpenPositions())

	r.Log.Info().Int("bars", res.Bars).Int("decisions", res.Decisions).Int("trades", res.Trades).
		Float64("net_pl", res.NetPL).Dur("span", res.End.Sub(res.Start)).Msg("backtest finished")
	return res, nil
}
