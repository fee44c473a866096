package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/flowtrader/market"
)

// ResilientOptions tune the retry and rate limit policy.
type ResilientOptions struct {
	RequestsPerSec  float64       `json:"requests_per_sec" yaml:"requests_per_sec" envconfig:"REQUESTS_PER_SEC"`
	Burst           int           `json:"burst" yaml:"burst" envconfig:"BURST"`
	InitialInterval time.Duration `json:"initial_interval" yaml:"initial_interval" envconfig:"INITIAL_INTERVAL"`
	MaxRetryTimeout time.Duration `json:"max_retry_timeout" yaml:"max_retry_timeout" envconfig:"MAX_RETRY_TIMEOUT"`
}

func DefaultResilientOptions() ResilientOptions {
	return ResilientOptions{
		RequestsPerSec:  10,
		Burst:           10,
		InitialInterval: 200 * time.Millisecond,
		MaxRetryTimeout: 5 * time.Second,
	}
}

// Resilient wraps a Source with a shared rate limit and exponential
// backoff retries. Unknown symbols are not retried.
type Resilient struct {
	src     Source
	limiter *rate.Limiter
	opts    ResilientOptions
	log     zerolog.Logger
}

func NewResilient(src Source, opts ResilientOptions, log zerolog.Logger) *Resilient {
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = DefaultResilientOptions().RequestsPerSec
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = DefaultResilientOptions().InitialInterval
	}
	return &Resilient{
		src:     src,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.Burst),
		opts:    opts,
		log:     log,
	}
}

func (r *Resilient) Window(ctx context.Context, symbol string, length int) (*market.PriceWindow, error) {
	var w *market.PriceWindow
	err := r.do(ctx, symbol, "window", func() error {
		var err error
		w, err = r.src.Window(ctx, symbol, length)
		return err
	})
	return w, err
}

func (r *Resilient) Participation(ctx context.Context, symbol string) (market.Participation, error) {
	var p market.Participation
	err := r.do(ctx, symbol, "participation", func() error {
		var err error
		p, err = r.src.Participation(ctx, symbol)
		return err
	})
	return p, err
}

func (r *Resilient) do(ctx context.Context, symbol, what string, fetch func() error) error {
	operation := func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := fetch()
		if errors.Is(err, market.ErrUnknownSymbol) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.InitialInterval
	b.MaxElapsedTime = r.opts.MaxRetryTimeout

	notify := func(err error, wait time.Duration) {
		r.log.Warn().Err(err).Str("symbol", symbol).Str("fetch", what).Dur("retry_in", wait).Msg("market data fetch failed")
	}
	err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
	if err != nil && !errors.Is(err, ErrUnavailable) {
		return errors.Join(ErrUnavailable, err)
	}
	return err
}
