package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/flowtrader/config"
	"github.com/rustyeddy/flowtrader/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "flowtrader",
	Short: "Regime-adaptive trade decision engine",
	Long: `Flowtrader classifies each symbol's market regime, asks the matching
strategy sources for a candidate and admits it only through the
correlation and conviction gates.

It provides tools for:
  - Backtesting the decision flow against recorded bars
  - Serving live decisions with Prometheus metrics and a websocket feed
  - Managing configuration files
  - Querying the trade and decision journal`,
	SilenceUsage: true,
}

var (
	cfgFile   string
	logLevel  string
	logPretty bool
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults plus FLOW_* environment when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides config")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", false, "human readable console logs")
}

// loadConfig reads the config and applies the global flags.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if cmd.Flags().Changed("pretty") {
		cfg.Log.Pretty = logPretty
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Pretty, cmd.ErrOrStderr()), nil
}
