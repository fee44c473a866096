// Package app assembles the flow components from a configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/flowtrader/backtest"
	"github.com/rustyeddy/flowtrader/config"
	"github.com/rustyeddy/flowtrader/flow"
	"github.com/rustyeddy/flowtrader/journal"
	"github.com/rustyeddy/flowtrader/ledger"
	"github.com/rustyeddy/flowtrader/marketdata"
	"github.com/rustyeddy/flowtrader/metrics"
	"github.com/rustyeddy/flowtrader/strategies"
	"github.com/rustyeddy/flowtrader/telemetry"
)

type Options struct {
	// Registerer enables Prometheus metrics when set.
	Registerer prometheus.Registerer
	// Telemetry enables the websocket hub.
	Telemetry bool
	// Resilient routes engine reads through the retrying rate limited
	// wrapper. Backtests read the store directly.
	Resilient bool
}

type App struct {
	Config *config.Config
	Log    zerolog.Logger

	Store   *marketdata.Store
	Ledger  *ledger.Ledger
	Core    *flow.Core
	Engine  *flow.Engine
	Journal journal.Journal
	SQLite  *journal.SQLite
	Metrics *metrics.Metrics
	Hub     *telemetry.Hub
}

func New(cfg *config.Config, log zerolog.Logger, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &App{Config: cfg, Log: log}

	j, sq, err := OpenJournal(cfg.Journal)
	if err != nil {
		return nil, err
	}
	a.Journal, a.SQLite = j, sq

	a.Ledger, err = ledger.New(cfg.Ledger, j, log.With().Str("component", "ledger").Logger())
	if err != nil {
		a.Close()
		return nil, err
	}
	if sq != nil {
		outcomes, err := sq.RecentOutcomes(cfg.Ledger.HistoryK)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("warm history: %w", err)
		}
		a.Ledger.Warm(outcomes)
		log.Debug().Int("outcomes", len(outcomes)).Msg("history warmed from journal")
	}

	sources, err := strategies.Build(cfg.Strategies.Enabled, cfg.Strategies)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Core, err = flow.NewCore(cfg.Flow, sources, a.Ledger.History())
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Store = marketdata.NewStore(cfg.MarketData.Capacity, cfg.Flow.Conviction.MomentumPeriod, cfg.MarketData.VolumeBars)
	var data marketdata.Source = a.Store
	if opts.Resilient {
		data = marketdata.NewResilient(a.Store, cfg.MarketData.Resilient, log.With().Str("component", "marketdata").Logger())
	}

	a.Engine = flow.NewEngine(a.Core, data, a.Ledger, log.With().Str("component", "flow").Logger())
	if j != nil {
		a.Engine.AddSink(journal.NewSink(j, log))
	}
	if opts.Registerer != nil {
		a.Metrics = metrics.New(opts.Registerer)
		a.Engine.AddSink(a.Metrics)
		a.Ledger.AddListener(a.Metrics)
	}
	if opts.Telemetry {
		a.Hub = telemetry.NewHub(log.With().Str("component", "telemetry").Logger())
		a.Engine.AddSink(a.Hub)
	}
	return a, nil
}

// OpenJournal opens the configured journal. The SQLite handle is also
// returned when that backend is used; both are nil for "none".
func OpenJournal(cfg config.JournalConfig) (journal.Journal, *journal.SQLite, error) {
	switch cfg.Type {
	case "both":
		sq, err := journal.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open journal %s: %w", cfg.DBPath, err)
		}
		j, err := journal.NewCSV(cfg.TradesFile, cfg.DecisionsFile)
		if err != nil {
			sq.Close()
			return nil, nil, fmt.Errorf("open csv journal: %w", err)
		}
		return journal.Multi{sq, j}, sq, nil
	case "sqlite":
		sq, err := journal.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open journal %s: %w", cfg.DBPath, err)
		}
		return sq, sq, nil
	case "csv":
		j, err := journal.NewCSV(cfg.TradesFile, cfg.DecisionsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open csv journal: %w", err)
		}
		return j, nil, nil
	case "none", "":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}

func (a *App) Close() error {
	var errs []error
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.Journal != nil {
		errs = append(errs, a.Journal.Close())
	}
	return errors.Join(errs...)
}

// Replay pushes recorded bars into the store every interval and applies
// them to open positions, standing in for a live feed. It returns nil at
// the end of data and ctx.Err() when cancelled.
func (a *App) Replay(ctx context.Context, feed backtest.BarFeed, every time.Duration) error {
	defer feed.Close()

	var tick <-chan time.Time
	if every > 0 {
		t := time.NewTicker(every)
		defer t.Stop()
		tick = t.C
	}

	for {
		b, ok, err := feed.Next()
		if err != nil {
			return err
		}
		if !ok {
			a.Log.Info().Msg("replay finished")
			return nil
		}
		if err := a.Store.Push(b.Symbol, b.Candle); err != nil {
			a.Log.Warn().Err(err).Str("symbol", b.Symbol).Msg("replay bar dropped")
			continue
		}
		if _, err := a.Ledger.UpdatePrice(b.Symbol, b.Candle); err != nil {
			a.Log.Warn().Err(err).Str("symbol", b.Symbol).Msg("position update")
		}

		if tick == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
	}
}

// Poll fetches the latest bars of every symbol from src each interval and
// stores the ones newer than what the store holds. Failed symbols are
// logged and retried on the next round. A non-positive interval uses the
// flow tick interval.
func (a *App) Poll(ctx context.Context, src marketdata.Source, every time.Duration) error {
	if every <= 0 {
		every = a.Config.Flow.TickInterval
	}
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		for _, sym := range a.Config.Symbols {
			if _, err := a.pollSymbol(ctx, src, sym); err != nil {
				a.Log.Warn().Err(err).Str("symbol", sym).Msg("poll")
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// pollSymbol stores the new bars of one symbol and returns how many.
func (a *App) pollSymbol(ctx context.Context, src marketdata.Source, symbol string) (int, error) {
	w, err := src.Window(ctx, symbol, a.Config.Flow.WindowLength)
	if err != nil {
		return 0, err
	}
	last, err := a.Store.Last(symbol)
	known := err == nil

	n := 0
	for _, c := range w.Bars() {
		if known && !c.Time.After(last.Time) {
			continue
		}
		if err := a.Store.Push(symbol, c); err != nil {
			return n, err
		}
		if _, err := a.Ledger.UpdatePrice(symbol, c); err != nil {
			a.Log.Warn().Err(err).Str("symbol", symbol).Msg("position update")
		}
		n++
	}
	return n, nil
}
