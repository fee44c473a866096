package market

import (
	"errors"
	"fmt"
)

// ErrOutOfOrder is returned when a bar is not strictly later than the last
// bar already held by a window.
var ErrOutOfOrder = errors.New("bar out of order")

// PriceWindow is a fixed capacity rolling buffer of closed bars for one
// symbol. Oldest bars are evicted once the window is full.
//
// A PriceWindow is not safe for concurrent mutation; WindowStore hands out
// snapshots for concurrent readers.
type PriceWindow struct {
	Symbol string

	bars  []Candle
	start int
	n     int
}

func NewPriceWindow(symbol string, capacity int) *PriceWindow {
	if capacity <= 0 {
		capacity = 1
	}
	return &PriceWindow{
		Symbol: symbol,
		bars:   make([]Candle, capacity),
	}
}

// WindowOf builds a window sized to hold exactly the given bars.
func WindowOf(symbol string, bars []Candle) (*PriceWindow, error) {
	w := NewPriceWindow(symbol, len(bars))
	for _, c := range bars {
		if err := w.Push(c); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *PriceWindow) Cap() int { return len(w.bars) }
func (w *PriceWindow) Len() int { return w.n }

// Push appends a closed bar.
func (w *PriceWindow) Push(c Candle) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%s: %w", w.Symbol, err)
	}
	if w.n > 0 {
		last := w.At(w.n - 1)
		if !c.Time.After(last.Time) {
			return fmt.Errorf("%s %s: %w", w.Symbol, c.Time, ErrOutOfOrder)
		}
	}

	if w.n < len(w.bars) {
		w.bars[(w.start+w.n)%len(w.bars)] = c
		w.n++
		return nil
	}
	w.bars[w.start] = c
	w.start = (w.start + 1) % len(w.bars)
	return nil
}

// At returns the i-th bar, oldest first.
func (w *PriceWindow) At(i int) Candle {
	if i < 0 || i >= w.n {
		panic(fmt.Sprintf("price window index %d out of range [0,%d)", i, w.n))
	}
	return w.bars[(w.start+i)%len(w.bars)]
}

// Last returns the most recent bar.
func (w *PriceWindow) Last() (Candle, bool) {
	if w.n == 0 {
		return Candle{}, false
	}
	return w.At(w.n - 1), true
}

// Bars returns a copy of the held bars, oldest first.
func (w *PriceWindow) Bars() []Candle {
	out := make([]Candle, w.n)
	for i := range out {
		out[i] = w.At(i)
	}
	return out
}

// Tail returns a copy of at most the last n bars.
func (w *PriceWindow) Tail(n int) []Candle {
	if n > w.n {
		n = w.n
	}
	if n < 0 {
		n = 0
	}
	out := make([]Candle, n)
	off := w.n - n
	for i := range out {
		out[i] = w.At(off + i)
	}
	return out
}

func (w *PriceWindow) Closes() []float64 {
	out := make([]float64, w.n)
	for i := range out {
		out[i] = w.At(i).Close
	}
	return out
}

func (w *PriceWindow) Volumes() []float64 {
	out := make([]float64, w.n)
	for i := range out {
		out[i] = w.At(i).Volume
	}
	return out
}

// Clone returns an independent copy.
func (w *PriceWindow) Clone() *PriceWindow {
	cp := &PriceWindow{
		Symbol: w.Symbol,
		bars:   make([]Candle, len(w.bars)),
		start:  w.start,
		n:      w.n,
	}
	copy(cp.bars, w.bars)
	return cp
}
