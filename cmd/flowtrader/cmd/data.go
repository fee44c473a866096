package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/flowtrader/marketdata"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Download candles for backtests",
	Long: `Fetch the latest complete candles of a symbol from the REST candles API
configured in market_data.rest and write them as feed CSV
(time,symbol,open,high,low,close,volume).

Example:
  FLOW_MARKET_DATA_REST_TOKEN=... flowtrader data -s BTCUSDT -n 2000 -o btc.csv`,
	RunE: runData,
}

var (
	dataSymbol  string
	dataCount   int
	dataOut     string
	dataTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(dataCmd)

	dataCmd.Flags().StringVarP(&dataSymbol, "symbol", "s", "", "symbol to download (required)")
	dataCmd.Flags().IntVarP(&dataCount, "count", "n", 500, "number of candles (max 5000)")
	dataCmd.Flags().StringVarP(&dataOut, "output", "o", "", "output CSV path (default stdout)")
	dataCmd.Flags().DurationVar(&dataTimeout, "timeout", 30*time.Second, "request timeout")

	dataCmd.MarkFlagRequired("symbol")
}

func runData(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if dataOut != "" {
		f, err := os.Create(dataOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), dataTimeout)
	defer cancel()

	rest := marketdata.NewREST(cfg.MarketData.REST, cfg.Flow.Conviction.MomentumPeriod, cfg.MarketData.VolumeBars)
	n, err := rest.Download(ctx, dataSymbol, dataCount, out)
	if err != nil {
		return fmt.Errorf("download %s: %w", dataSymbol, err)
	}
	log.Info().Str("symbol", dataSymbol).Int("candles", n).Str("output", dataOut).Msg("download complete")
	return nil
}
