// Package ledger holds open positions, applies exit rules and records the
// outcomes that feed the correlation gate.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/flowtrader/flow"
	"github.com/rustyeddy/flowtrader/journal"
	"github.com/rustyeddy/flowtrader/market"
	"github.com/rustyeddy/flowtrader/pkg/id"
)

var (
	ErrPositionOpen     = errors.New("position already open")
	ErrPositionNotFound = errors.New("position not found")
	ErrPositionClosed   = errors.New("position already closed")
	ErrInvalidTrade     = errors.New("invalid trade")
)

type Config struct {
	// HistoryK bounds the outcome history per symbol.
	HistoryK int `json:"history_k" yaml:"history_k" envconfig:"HISTORY_K"`

	// Groups maps a correlation group name to its symbols.
	Groups map[string][]string `json:"groups" yaml:"groups" ignored:"true"`

	// The trailing stop starts once the position gained TrailingActivation
	// percent and then follows the best price at TrailingDistance percent.
	// Zero disables it.
	TrailingActivation float64 `json:"trailing_activation" yaml:"trailing_activation" envconfig:"TRAILING_ACTIVATION"`
	TrailingDistance   float64 `json:"trailing_distance" yaml:"trailing_distance" envconfig:"TRAILING_DISTANCE"`

	// MaxHold closes positions held longer than this. Zero disables it.
	MaxHold time.Duration `json:"max_hold" yaml:"max_hold" envconfig:"MAX_HOLD"`
}

func DefaultConfig() Config {
	return Config{
		HistoryK: 10,
		Groups: map[string][]string{
			"majors": {"BTCUSDT", "ETHUSDT"},
			"alts":   {"SOLUSDT", "AVAXUSDT", "BNBUSDT"},
		},
		TrailingActivation: 0.5,
		TrailingDistance:   0.3,
		MaxHold:            4 * time.Hour,
	}
}

func (c Config) Validate() error {
	if c.HistoryK <= 0 {
		return fmt.Errorf("ledger: history_k must be positive, got %d", c.HistoryK)
	}
	if c.TrailingActivation < 0 || c.TrailingDistance < 0 {
		return fmt.Errorf("ledger: trailing settings must be >= 0")
	}
	if c.TrailingActivation > 0 && c.TrailingDistance == 0 {
		return fmt.Errorf("ledger: trailing_distance is required with trailing_activation")
	}
	if c.MaxHold < 0 {
		return fmt.Errorf("ledger: max_hold must be >= 0")
	}
	_, err := NewHistory(c.HistoryK, c.Groups)
	return err
}

// Listener is notified after a position closes, outside the ledger locks.
type Listener interface {
	OnPositionClosed(p Position)
}

type Stats struct {
	Opened     int     `json:"opened"`
	Closed     int     `json:"closed"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	RealizedPL float64 `json:"realized_pl"`
}

type entry struct {
	mu  sync.Mutex
	pos Position
}

// Ledger is safe for concurrent use. The map lock guards the position
// index; each position has its own lock for price updates and closes.
type Ledger struct {
	cfg     Config
	history *History
	journal journal.Journal
	log     zerolog.Logger

	mu        sync.RWMutex
	positions map[string]*entry
	bySymbol  map[string]string
	closed    []Position
	stats     Stats
	listeners []Listener
}

// New builds a ledger. j may be nil.
func New(cfg Config, j journal.Journal, log zerolog.Logger) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h, err := NewHistory(cfg.HistoryK, cfg.Groups)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		cfg:       cfg,
		history:   h,
		journal:   j,
		log:       log,
		positions: make(map[string]*entry),
		bySymbol:  make(map[string]string),
	}, nil
}

// History is the read view handed to the correlation gate.
func (l *Ledger) History() *History { return l.history }

// AddListener registers a close listener.
func (l *Ledger) AddListener(li Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, li)
}

// Warm seeds the history, e.g. from the journal on startup.
func (l *Ledger) Warm(outcomes []market.Outcome) {
	for _, o := range outcomes {
		l.history.Append(o)
	}
}

// Open opens a position for an admitted trade. A symbol holds at most one
// open position.
func (l *Ledger) Open(t flow.Trade, at time.Time) (string, error) {
	if !t.Side.Valid() || t.Entry <= 0 || t.Size <= 0 || !t.Risk.Valid() {
		return "", fmt.Errorf("open %s: %w", t.Symbol, ErrInvalidTrade)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if pid, ok := l.bySymbol[t.Symbol]; ok {
		return "", fmt.Errorf("open %s: %w (%s)", t.Symbol, ErrPositionOpen, pid)
	}

	pid := id.At(at)
	l.positions[pid] = &entry{pos: Position{
		ID:         pid,
		Symbol:     t.Symbol,
		Side:       t.Side,
		Source:     t.Source,
		Entry:      t.Entry,
		Quantity:   t.Size,
		Risk:       t.Risk,
		StopLoss:   t.StopLoss,
		TakeProfit: t.TakeProfit,
		OpenedAt:   at,
		Status:     Open,
		Best:       t.Entry,
	}}
	l.bySymbol[t.Symbol] = pid
	l.stats.Opened++

	l.log.Info().Str("position", pid).Str("symbol", t.Symbol).Stringer("side", t.Side).
		Float64("entry", t.Entry).Float64("quantity", t.Size).Msg("position opened")
	return pid, nil
}

// UpdatePrice applies one bar to the open position of symbol, if any, and
// reports whether it closed.
func (l *Ledger) UpdatePrice(symbol string, c market.Candle) (bool, error) {
	l.mu.RLock()
	pid, ok := l.bySymbol[symbol]
	e := l.positions[pid]
	l.mu.RUnlock()
	if !ok {
		return false, nil
	}

	e.mu.Lock()
	p := &e.pos
	if p.Status != Open {
		e.mu.Unlock()
		return false, nil
	}

	price, reason, hit := p.checkExit(c)
	if !hit && l.cfg.MaxHold > 0 && c.Time.Sub(p.OpenedAt) >= l.cfg.MaxHold {
		price, reason, hit = c.Close, ExitTimeStop, true
	}
	if !hit {
		p.trail(c, l.cfg.TrailingActivation, l.cfg.TrailingDistance)
		e.mu.Unlock()
		return false, nil
	}
	closed := l.closeLocked(p, price, c.Time, reason)
	e.mu.Unlock()

	return true, l.finish(closed)
}

// Close closes a position by id.
func (l *Ledger) Close(positionID string, price float64, at time.Time, reason string) error {
	if reason == "" {
		reason = ExitManual
	}
	l.mu.RLock()
	e, ok := l.positions[positionID]
	l.mu.RUnlock()
	if !ok {
		return fmt.Errorf("close %s: %w", positionID, ErrPositionNotFound)
	}

	e.mu.Lock()
	if e.pos.Status != Open {
		e.mu.Unlock()
		return fmt.Errorf("close %s: %w", positionID, ErrPositionClosed)
	}
	closed := l.closeLocked(&e.pos, price, at, reason)
	e.mu.Unlock()

	return l.finish(closed)
}

// CloseAll closes every open position at the price returned by mark.
// Positions without a mark stay open and are reported in the error.
func (l *Ledger) CloseAll(mark func(symbol string) (float64, bool), at time.Time, reason string) error {
	var errs []error
	for _, p := range l.OpenPositions() {
		price, ok := mark(p.Symbol)
		if !ok {
			errs = append(errs, fmt.Errorf("close all: no price for %s", p.Symbol))
			continue
		}
		if err := l.Close(p.ID, price, at, reason); err != nil && !errors.Is(err, ErrPositionClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// closeLocked settles p; the caller holds p's lock.
func (l *Ledger) closeLocked(p *Position, price float64, at time.Time, reason string) Position {
	p.ClosePrice = price
	p.ClosedAt = at
	p.RealizedPL = p.PL(price)
	p.ExitReason = reason
	p.Status = Closed
	return *p
}

// finish runs the bookkeeping of a close outside the position lock:
// index, stats, history, journal, then listeners.
func (l *Ledger) finish(p Position) error {
	l.mu.Lock()
	if l.bySymbol[p.Symbol] == p.ID {
		delete(l.bySymbol, p.Symbol)
	}
	delete(l.positions, p.ID)
	l.closed = append(l.closed, p)
	l.stats.Closed++
	l.stats.RealizedPL += p.RealizedPL
	if market.ResultOf(p.RealizedPL) == market.Win {
		l.stats.Wins++
	} else {
		l.stats.Losses++
	}
	listeners := append([]Listener(nil), l.listeners...)
	l.mu.Unlock()

	rec := journal.TradeRecord{
		PositionID: p.ID,
		Symbol:     p.Symbol,
		Side:       p.Side,
		Source:     p.Source,
		Quantity:   p.Quantity,
		EntryPrice: p.Entry,
		ExitPrice:  p.ClosePrice,
		OpenTime:   p.OpenedAt,
		CloseTime:  p.ClosedAt,
		RealizedPL: p.RealizedPL,
		Reason:     p.ExitReason,
	}
	l.history.Append(rec.Outcome())

	l.log.Info().Str("position", p.ID).Str("symbol", p.Symbol).Str("reason", p.ExitReason).
		Float64("exit", p.ClosePrice).Float64("pl", p.RealizedPL).Msg("position closed")

	var err error
	if l.journal != nil {
		if err = l.journal.RecordTrade(rec); err != nil {
			l.log.Error().Err(err).Str("position", p.ID).Msg("journal trade")
			err = fmt.Errorf("journal %s: %w", p.ID, err)
		}
	}

	for _, li := range listeners {
		li.OnPositionClosed(p)
	}
	return err
}

// Get returns a position by id, open or closed.
func (l *Ledger) Get(positionID string) (Position, error) {
	l.mu.RLock()
	e, ok := l.positions[positionID]
	if !ok {
		defer l.mu.RUnlock()
		for _, p := range l.closed {
			if p.ID == positionID {
				return p, nil
			}
		}
		return Position{}, fmt.Errorf("get %s: %w", positionID, ErrPositionNotFound)
	}
	l.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos, nil
}

// OpenFor returns the id of symbol's open position.
func (l *Ledger) OpenFor(symbol string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pid, ok := l.bySymbol[symbol]
	return pid, ok
}

// OpenPositions returns a snapshot of open positions ordered by id.
func (l *Ledger) OpenPositions() []Position {
	l.mu.RLock()
	entries := make([]*entry, 0, len(l.positions))
	for _, e := range l.positions {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	out := make([]Position, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if e.pos.Status == Open {
			out = append(out, e.pos)
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ClosedPositions returns closed positions in close order.
func (l *Ledger) ClosedPositions() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Position(nil), l.closed...)
}

func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}
