package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/flowtrader/market"
	"github.com/rustyeddy/flowtrader/marketdata"
	"github.com/rustyeddy/flowtrader/pkg/id"
)

// Opener receives admitted trades. It returns the id of the opened
// position.
type Opener interface {
	Open(t Trade, at time.Time) (string, error)
}

// Sink receives every published decision. Sinks must not block.
type Sink interface {
	Publish(d Decision)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Decision)

func (f SinkFunc) Publish(d Decision) { f(d) }

// Engine drives the core against live collaborators: it fetches data under
// a deadline, serializes evaluations per symbol, opens admitted trades and
// publishes every decision.
type Engine struct {
	core   *Core
	data   marketdata.Source
	opener Opener
	log    zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	sinks []Sink
}

func NewEngine(core *Core, data marketdata.Source, opener Opener, log zerolog.Logger) *Engine {
	return &Engine{
		core:   core,
		data:   data,
		opener: opener,
		log:    log,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// AddSink registers a decision sink.
func (e *Engine) AddSink(s Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, s)
}

func (e *Engine) lockFor(symbol string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		e.locks[symbol] = l
	}
	return l
}

type fetched struct {
	window *market.PriceWindow
	part   market.Participation
	err    error
}

// fetch abandons the collaborator when the deadline passes, even if it
// ignores ctx.
func (e *Engine) fetch(ctx context.Context, symbol string) fetched {
	ctx, cancel := context.WithTimeout(ctx, e.core.cfg.TickTimeout)
	defer cancel()

	done := make(chan fetched, 1)
	go func() {
		var f fetched
		f.window, f.err = e.data.Window(ctx, symbol, e.core.cfg.WindowLength)
		if f.err == nil {
			f.part, f.err = e.data.Participation(ctx, symbol)
		}
		done <- f
	}()

	select {
	case f := <-done:
		return f
	case <-ctx.Done():
		return fetched{err: ctx.Err()}
	}
}

// EvaluateTick evaluates symbol once. Evaluations of one symbol never
// overlap. The error is non-nil only when a strategy source broke its
// contract; the tick is then aborted and nothing is published or opened.
func (e *Engine) EvaluateTick(ctx context.Context, symbol string) (Decision, error) {
	lock := e.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()

	var d Decision
	f := e.fetch(ctx, symbol)
	if f.err != nil {
		d = Decision{Symbol: symbol, At: e.now()}
		d.enter(Idle)
		d.Diagnostics.Error = f.err.Error()
		d.reject(ReasonDataUnavailable)
	} else {
		var err error
		d, err = e.core.Evaluate(symbol, f.window, f.part)
		if err != nil {
			e.log.Error().Err(err).Str("symbol", symbol).Interface("diagnostics", d.Diagnostics).Msg("tick aborted")
			return d, err
		}
	}
	if d.At.IsZero() {
		d.At = e.now()
	}
	d.ID = id.At(d.At)

	if d.Admitted && e.opener != nil {
		pid, err := e.opener.Open(*d.Trade, d.At)
		if err != nil {
			d.Diagnostics.Error = fmt.Sprintf("open: %v", err)
			d.OpenRefused = true
			e.log.Warn().Err(err).Str("symbol", symbol).Msg("admitted trade not opened")
		} else {
			d.PositionID = pid
		}
	}

	e.logDecision(d)
	e.publish(d)
	return d, nil
}

func (e *Engine) logDecision(d Decision) {
	if d.Admitted {
		t := d.Trade
		e.log.Info().
			Str("symbol", d.Symbol).
			Str("source", t.Source).
			Stringer("side", t.Side).
			Float64("entry", t.Entry).
			Float64("stop", t.StopLoss).
			Float64("take", t.TakeProfit).
			Float64("size", t.Size).
			Float64("confidence", t.Confidence).
			Str("position", d.PositionID).
			Msg("trade admitted")
		return
	}
	ev := e.log.Debug().Str("symbol", d.Symbol).Str("reason", string(d.Reason))
	if d.Diagnostics.Regime != nil {
		ev = ev.Stringer("regime", d.Diagnostics.Regime.Regime)
	}
	if d.Diagnostics.Error != "" {
		ev = ev.Str("detail", d.Diagnostics.Error)
	}
	ev.Msg("trade rejected")
}

func (e *Engine) publish(d Decision) {
	e.mu.Lock()
	sinks := append([]Sink(nil), e.sinks...)
	e.mu.Unlock()
	for _, s := range sinks {
		s.Publish(d)
	}
}

// Tick evaluates symbols concurrently and returns their decisions in the
// order given. Aborted ticks are joined into the error.
func (e *Engine) Tick(ctx context.Context, symbols []string) ([]Decision, error) {
	out := make([]Decision, len(symbols))
	errs := make([]error, len(symbols))

	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			out[i], errs[i] = e.EvaluateTick(ctx, sym)
		}(i, sym)
	}
	wg.Wait()
	return out, errors.Join(errs...)
}

// Run ticks every TickInterval until ctx is done.
func (e *Engine) Run(ctx context.Context, symbols []string) error {
	ticker := time.NewTicker(e.core.cfg.TickInterval)
	defer ticker.Stop()

	e.log.Info().Strs("symbols", symbols).Dur("interval", e.core.cfg.TickInterval).Msg("flow engine started")
	for {
		if _, err := e.Tick(ctx, symbols); err != nil {
			e.log.Error().Err(err).Msg("tick")
		}
		select {
		case <-ctx.Done():
			e.log.Info().Msg("flow engine stopped")
			return nil
		case <-ticker.C:
		}
	}
}
