package strategies

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rustyeddy/flowtrader/market"
	"github.com/rustyeddy/flowtrader/regime"
)

// Kind tags each source variant. Lower kinds take precedence when more
// than one source could trade the current regime.
type Kind int

const (
	KindTrend Kind = iota
	KindGrid
	KindScalp
)

func (k Kind) String() string {
	switch k {
	case KindTrend:
		return "trend"
	case KindGrid:
		return "grid"
	case KindScalp:
		return "scalp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Context is everything a source may look at when proposing a trade.
type Context struct {
	Symbol string
	Window *market.PriceWindow
	Regime regime.Assessment
}

// Candidate is a proposed trade. Gates never mutate it.
type Candidate struct {
	Symbol     string      `json:"symbol"`
	Side       market.Side `json:"side"`
	Entry      float64     `json:"entry"`
	Confidence float64     `json:"confidence"`
	Source     string      `json:"source"`
	StopLoss   float64     `json:"stop_loss"`
	TakeProfit float64     `json:"take_profit"`
	Reason     string      `json:"reason,omitempty"`
}

// ErrMalformed marks a candidate that breaks the source contract.
var ErrMalformed = errors.New("malformed candidate")

// Validate checks the source contract: positive finite prices and a
// confidence in [0,1].
func (c Candidate) Validate() error {
	switch {
	case c.Symbol == "":
		return fmt.Errorf("empty symbol: %w", ErrMalformed)
	case !c.Side.Valid():
		return fmt.Errorf("invalid side %d: %w", c.Side, ErrMalformed)
	case !positive(c.Entry):
		return fmt.Errorf("entry %v: %w", c.Entry, ErrMalformed)
	case math.IsNaN(c.Confidence) || c.Confidence < 0 || c.Confidence > 1:
		return fmt.Errorf("confidence %v: %w", c.Confidence, ErrMalformed)
	case c.StopLoss != 0 && !positive(c.StopLoss):
		return fmt.Errorf("stop loss %v: %w", c.StopLoss, ErrMalformed)
	case c.TakeProfit != 0 && !positive(c.TakeProfit):
		return fmt.Errorf("take profit %v: %w", c.TakeProfit, ErrMalformed)
	}
	return nil
}

// Source proposes at most one candidate per evaluation. A source abstains
// by returning false; it is never filtered from the outside.
type Source interface {
	Name() string
	Kind() Kind

	// Supports reports whether the source trades the preferred strategy
	// family of the current regime.
	Supports(pref regime.Strategy) bool

	Propose(ctx Context) (Candidate, bool)
}

// ByPriority returns the sources ordered by kind, keeping the given order
// within a kind.
func ByPriority(sources []Source) []Source {
	out := append([]Source(nil), sources...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Kind() < out[j].Kind() })
	return out
}

// Factory builds a source from the shared strategy configuration.
type Factory func(cfg Config) (Source, error)

var registry = map[string]Factory{
	"trend":   func(cfg Config) (Source, error) { return NewTrend(cfg.Trend), nil },
	"grid":    func(cfg Config) (Source, error) { return NewGrid(cfg.Grid), nil },
	"scalper": func(cfg Config) (Source, error) { return NewScalper(cfg.Scalper), nil },
}

// Register adds a named source factory. It is meant to be called from
// init functions and panics on duplicates.
func Register(name string, f Factory) {
	name = strings.ToLower(name)
	if _, ok := registry[name]; ok {
		panic("strategies: duplicate source " + name)
	}
	registry[name] = f
}

// Names lists the registered sources.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Build instantiates the named sources in priority order.
func Build(names []string, cfg Config) ([]Source, error) {
	out := make([]Source, 0, len(names))
	for _, n := range names {
		f, ok := Lookup(n)
		if !ok {
			return nil, fmt.Errorf("unknown strategy source %q (have %s)", n, strings.Join(Names(), ", "))
		}
		s, err := f(cfg)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", n, err)
		}
		out = append(out, s)
	}
	return ByPriority(out), nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, bool) {
	f, ok := registry[strings.ToLower(name)]
	return f, ok
}
