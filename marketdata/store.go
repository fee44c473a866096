package marketdata

import (
	"context"
	"fmt"

	"github.com/rustyeddy/flowtrader/indicators"
	"github.com/rustyeddy/flowtrader/market"
)

// Store is an in-memory Source fed bar by bar, by a replay or a live
// stream. Momentum is Wilder RSI over the stored closes.
type Store struct {
	windows    *market.WindowStore
	rsiPeriod  int
	volumeBars int
}

// NewStore keeps capacity bars per symbol. Participation reports the
// last volumeBars volumes and RSI(rsiPeriod).
func NewStore(capacity, rsiPeriod, volumeBars int) *Store {
	return &Store{
		windows:    market.NewWindowStore(capacity),
		rsiPeriod:  rsiPeriod,
		volumeBars: volumeBars,
	}
}

// Push appends a bar for symbol.
func (s *Store) Push(symbol string, c market.Candle) error {
	return s.windows.Push(symbol, c)
}

func (s *Store) Symbols() []string { return s.windows.Symbols() }

// Last returns the latest bar of symbol.
func (s *Store) Last(symbol string) (market.Candle, error) {
	return s.windows.Last(symbol)
}

func (s *Store) Window(ctx context.Context, symbol string, length int) (*market.PriceWindow, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	w, err := s.windows.Snapshot(symbol, length)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return w, nil
}

// Participation reports neutral momentum (50) until enough closes exist
// for the oscillator.
func (s *Store) Participation(ctx context.Context, symbol string) (market.Participation, error) {
	if err := ctx.Err(); err != nil {
		return market.Participation{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	w, err := s.windows.Snapshot(symbol, 0)
	if err != nil {
		return market.Participation{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return participationOf(w.Bars(), s.rsiPeriod, s.volumeBars), nil
}

// participationOf reports the last volumeBars volumes and RSI(rsiPeriod)
// over all bars, with neutral momentum while the oscillator is warming up.
func participationOf(bars []market.Candle, rsiPeriod, volumeBars int) market.Participation {
	recent := bars
	if volumeBars > 0 && len(recent) > volumeBars {
		recent = recent[len(recent)-volumeBars:]
	}
	vols := make([]float64, len(recent))
	for i, c := range recent {
		vols[i] = c.Volume
	}
	momentum, err := indicators.RSIFunc(bars, rsiPeriod)
	if err != nil {
		momentum = 50
	}
	return market.Participation{Volumes: vols, Momentum: momentum}
}
