package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/flowtrader/backtest"
	"github.com/rustyeddy/flowtrader/internal/app"
	"github.com/rustyeddy/flowtrader/marketdata"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay recorded bars through the decision flow",
	Long: `Backtest feeds a candle CSV (time,symbol,open,high,low,close,volume)
bar by bar into the market data store, applies each bar to open positions
and evaluates the symbol when it holds no position.

Example:
  flowtrader backtest --data data/btc_1m.csv --from 2024-03-01T00:00:00Z --org`,
	RunE: runBacktest,
}

var (
	btDataPath string
	btDBPath   string
	btFrom     string
	btTo       string
	btCloseEnd bool
	btOrg      bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&btDataPath, "data", "", "path to candle CSV (required)")
	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "", "SQLite journal path; overrides config")
	backtestCmd.Flags().StringVar(&btFrom, "from", "", "first bar time (RFC3339), inclusive")
	backtestCmd.Flags().StringVar(&btTo, "to", "", "last bar time (RFC3339), exclusive")
	backtestCmd.Flags().BoolVar(&btCloseEnd, "close-end", true, "close open positions at the end of data")
	backtestCmd.Flags().BoolVar(&btOrg, "org", false, "print an org-mode report instead of text")

	backtestCmd.MarkFlagRequired("data")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if btDBPath != "" {
		cfg.Journal.Type = "sqlite"
		cfg.Journal.DBPath = btDBPath
	}

	from, err := parseBound(btFrom)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := parseBound(btTo)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	a, err := app.New(cfg, log, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	feed, err := marketdata.OpenCSV(btDataPath, from, to)
	if err != nil {
		return fmt.Errorf("open data: %w", err)
	}

	r := &backtest.Runner{
		Engine:  a.Engine,
		Store:   a.Store,
		Ledger:  a.Ledger,
		Feed:    feed,
		Options: backtest.RunnerOptions{CloseEnd: btCloseEnd},
		Log:     log,
	}
	res, err := r.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	cfgJSON, _ := json.Marshal(cfg)
	run := res.Record(btDataPath, cfgJSON)
	if a.SQLite != nil {
		if err := a.SQLite.RecordBacktest(run); err != nil {
			return fmt.Errorf("record backtest: %w", err)
		}
	}

	if btOrg {
		return run.WriteOrg(cmd.OutOrStdout())
	}
	backtest.PrintBacktestRun(cmd.OutOrStdout(), run)
	return nil
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
