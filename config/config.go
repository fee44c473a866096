// Package config loads the flowtrader configuration from a YAML or JSON
// file with environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/flowtrader/flow"
	"github.com/rustyeddy/flowtrader/ledger"
	"github.com/rustyeddy/flowtrader/marketdata"
	"github.com/rustyeddy/flowtrader/strategies"
)

// EnvPrefix prefixes every environment override, e.g. FLOW_FLOW_MIN_CONFIDENCE.
const EnvPrefix = "FLOW"

// Config represents the complete flowtrader configuration
type Config struct {
	Symbols    []string          `json:"symbols" yaml:"symbols" envconfig:"SYMBOLS"`
	Flow       flow.Config       `json:"flow" yaml:"flow" envconfig:"FLOW"`
	Strategies strategies.Config `json:"strategies" yaml:"strategies" envconfig:"STRATEGIES"`
	Ledger     ledger.Config     `json:"ledger" yaml:"ledger" envconfig:"LEDGER"`
	MarketData MarketDataConfig  `json:"market_data" yaml:"market_data" envconfig:"MARKET_DATA"`
	Journal    JournalConfig     `json:"journal" yaml:"journal" envconfig:"JOURNAL"`
	Server     ServerConfig      `json:"server" yaml:"server" envconfig:"SERVER"`
	Log        LogConfig         `json:"log" yaml:"log" envconfig:"LOG"`
}

// MarketDataConfig sizes the in-memory bar store and the retry policy
// around it.
type MarketDataConfig struct {
	Capacity   int                         `json:"capacity" yaml:"capacity" envconfig:"CAPACITY"`
	VolumeBars int                         `json:"volume_bars" yaml:"volume_bars" envconfig:"VOLUME_BARS"`
	Resilient  marketdata.ResilientOptions `json:"resilient" yaml:"resilient" envconfig:"RESILIENT"`
	REST       marketdata.RESTConfig       `json:"rest" yaml:"rest" envconfig:"REST"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type          string `json:"type" yaml:"type" envconfig:"TYPE"` // "sqlite", "csv", "both" or "none"
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty" envconfig:"DB_PATH"`
	TradesFile    string `json:"trades_file,omitempty" yaml:"trades_file,omitempty" envconfig:"TRADES_FILE"`
	DecisionsFile string `json:"decisions_file,omitempty" yaml:"decisions_file,omitempty" envconfig:"DECISIONS_FILE"`
}

type ServerConfig struct {
	Addr          string `json:"addr" yaml:"addr" envconfig:"ADDR"`
	MetricsPath   string `json:"metrics_path" yaml:"metrics_path" envconfig:"METRICS_PATH"`
	TelemetryPath string `json:"telemetry_path" yaml:"telemetry_path" envconfig:"TELEMETRY_PATH"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" envconfig:"LEVEL"`
	Pretty bool   `json:"pretty" yaml:"pretty" envconfig:"PRETTY"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Symbols:    []string{"BTCUSDT", "ETHUSDT"},
		Flow:       flow.DefaultConfig(),
		Strategies: strategies.DefaultConfig(),
		Ledger:     ledger.DefaultConfig(),
		MarketData: MarketDataConfig{
			Capacity:   500,
			VolumeBars: 50,
			Resilient:  marketdata.DefaultResilientOptions(),
			REST:       marketdata.DefaultRESTConfig(),
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./flowtrader.db",
		},
		Server: ServerConfig{
			Addr:          ":8080",
			MetricsPath:   "/metrics",
			TelemetryPath: "/ws",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (if not empty) over the defaults, then applies an
// optional .env file and FLOW_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file over the defaults
// (JSON or YAML).
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.readFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, c); err != nil {
		if jerr := json.Unmarshal(data, c); jerr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return nil
}

// LoadEnv loads .env when present and applies FLOW_* overrides.
func (c *Config) LoadEnv() error {
	_ = godotenv.Load()
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols: at least one symbol is required")
	}
	seen := make(map[string]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if s == "" || seen[s] {
			return fmt.Errorf("symbols: empty or duplicate symbol %q", s)
		}
		seen[s] = true
	}
	if err := c.Flow.Validate(); err != nil {
		return err
	}
	if err := c.Strategies.Validate(); err != nil {
		return err
	}
	if err := c.Ledger.Validate(); err != nil {
		return err
	}
	if c.MarketData.Capacity < c.Flow.WindowLength {
		return fmt.Errorf("market_data.capacity %d is below flow.window_length %d", c.MarketData.Capacity, c.Flow.WindowLength)
	}
	if c.MarketData.VolumeBars < c.Flow.Conviction.VolumeLookback {
		return fmt.Errorf("market_data.volume_bars %d is below conviction volume_lookback %d",
			c.MarketData.VolumeBars, c.Flow.Conviction.VolumeLookback)
	}
	switch c.Journal.Type {
	case "none":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.DecisionsFile == "" {
			return fmt.Errorf("journal trades_file and decisions_file required for CSV type")
		}
	case "both":
		if c.Journal.DBPath == "" || c.Journal.TradesFile == "" || c.Journal.DecisionsFile == "" {
			return fmt.Errorf("journal db_path, trades_file and decisions_file required for both type")
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv', 'both' or 'none'")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}
