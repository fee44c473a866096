package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/flowtrader/internal/app"
	"github.com/rustyeddy/flowtrader/marketdata"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the decision engine with metrics and a websocket feed",
	Long: `Serve feeds the market data store and ticks the flow engine for every
configured symbol. Bars come from a candle CSV replayed at a fixed pace
(--data) or are polled from the REST candles API in market_data.rest.
Decisions are journaled, counted in Prometheus metrics and broadcast to
websocket clients.

Endpoints:
  /metrics    Prometheus metrics
  /ws         decision stream (JSON per decision)
  /positions  open positions (JSON)

Example:
  flowtrader serve -c flow.yaml --data data/live.csv --bar-interval 1s
  FLOW_MARKET_DATA_REST_TOKEN=... flowtrader serve -c flow.yaml`,
	RunE: runServe,
}

var (
	serveDataPath    string
	serveBarInterval time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveDataPath, "data", "", "candle CSV replayed as the live feed; polls the REST API when empty")
	serveCmd.Flags().DurationVar(&serveBarInterval, "bar-interval", time.Second, "pause between replayed bars, or between REST polls")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := app.New(cfg, log, app.Options{Registerer: reg, Telemetry: true, Resilient: true})
	if err != nil {
		return err
	}
	defer a.Close()

	feedBars, err := barSource(a)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle(cfg.Server.TelemetryPath, a.Hub)
	mux.HandleFunc("/positions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(a.Ledger.OpenPositions())
	})
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 3)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		if err := feedBars(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errc <- fmt.Errorf("market data: %w", err)
		}
	}()
	go func() {
		errc <- a.Engine.Run(ctx, cfg.Symbols)
	}()

	select {
	case <-ctx.Done():
		err = nil
	case err = <-errc:
		stop()
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdown); serr != nil {
		log.Warn().Err(serr).Msg("http shutdown")
	}

	st := a.Ledger.Stats()
	log.Info().Int("opened", st.Opened).Int("closed", st.Closed).Float64("realized_pl", st.RealizedPL).Msg("serve stopped")
	return err
}

// barSource picks the CSV replay or the REST poller.
func barSource(a *app.App) (func(context.Context) error, error) {
	if serveDataPath != "" {
		feed, err := marketdata.OpenCSV(serveDataPath, time.Time{}, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("open data: %w", err)
		}
		return func(ctx context.Context) error { return a.Replay(ctx, feed, serveBarInterval) }, nil
	}

	rc := a.Config.MarketData.REST
	if rc.BaseURL == "" {
		return nil, fmt.Errorf("serve needs --data or market_data.rest.base_url")
	}
	rest := marketdata.NewREST(rc, a.Config.Flow.Conviction.MomentumPeriod, a.Config.MarketData.VolumeBars)
	src := marketdata.NewResilient(rest, a.Config.MarketData.Resilient, a.Log.With().Str("component", "rest").Logger())
	return func(ctx context.Context) error { return a.Poll(ctx, src, serveBarInterval) }, nil
}
