// Package marketdata supplies price windows and participation readings to
// the decision core.
package marketdata

import (
	"context"
	"errors"

	"github.com/rustyeddy/flowtrader/market"
)

// ErrUnavailable wraps every failure to produce data for a symbol.
var ErrUnavailable = errors.New("market data unavailable")

// Source is the market data collaborator. Implementations honour ctx and
// return errors wrapping ErrUnavailable when data cannot be produced.
type Source interface {
	// Window returns the latest length bars of symbol, or fewer when
	// fewer are known.
	Window(ctx context.Context, symbol string, length int) (*market.PriceWindow, error)

	// Participation returns recent volumes and the momentum oscillator.
	Participation(ctx context.Context, symbol string) (market.Participation, error)
}
