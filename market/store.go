package market

import (
	"errors"
	"sync"
)

// ErrUnknownSymbol is returned for symbols a store has never seen.
var ErrUnknownSymbol = errors.New("unknown symbol")

// WindowStore keeps one rolling window per symbol.
type WindowStore struct {
	mu       sync.RWMutex
	capacity int
	windows  map[string]*PriceWindow
}

func NewWindowStore(capacity int) *WindowStore {
	return &WindowStore{
		capacity: capacity,
		windows:  make(map[string]*PriceWindow),
	}
}

// Push appends a bar to the symbol's window, creating it on first use.
func (s *WindowStore) Push(symbol string, c Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[symbol]
	if !ok {
		w = NewPriceWindow(symbol, s.capacity)
		s.windows[symbol] = w
	}
	return w.Push(c)
}

// Snapshot returns a copy of the symbol's window holding at most length bars.
func (s *WindowStore) Snapshot(symbol string, length int) (*PriceWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.windows[symbol]
	if !ok {
		return nil, ErrUnknownSymbol
	}
	if length <= 0 || length >= w.Len() {
		return w.Clone(), nil
	}
	return WindowOf(symbol, w.Tail(length))
}

// Last returns the most recent bar for symbol.
func (s *WindowStore) Last(symbol string) (Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.windows[symbol]
	if !ok {
		return Candle{}, ErrUnknownSymbol
	}
	c, ok := w.Last()
	if !ok {
		return Candle{}, ErrUnknownSymbol
	}
	return c, nil
}

func (s *WindowStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.windows))
	for sym := range s.windows {
		out = append(out, sym)
	}
	return out
}
