package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/flowtrader/internal/fixture"
	"github.com/rustyeddy/flowtrader/marketdata"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "flowtrader version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")
	assert.FileExists(t, path)

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "BTCUSDT, ETHUSDT")

	require.NoError(t, os.WriteFile(path, []byte("symbols: []\n"), 0644))
	_, err = execute(t, "config", "validate", "-f", path)
	assert.ErrorContains(t, err, "validation failed")
}

func TestBacktestAndJournal(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	data := filepath.Join(dir, "bars.csv")
	db := filepath.Join(dir, "flow.db")

	var bars []marketdata.Bar
	for _, c := range fixture.LowVolTrend(40) {
		bars = append(bars, marketdata.Bar{Symbol: "BTCUSDT", Candle: c})
	}
	f, err := os.Create(data)
	require.NoError(t, err)
	require.NoError(t, marketdata.WriteCSV(f, bars))
	require.NoError(t, f.Close())

	out, err := execute(t, "backtest", "--data", data, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Backtest Result")
	assert.Contains(t, out, "Bars:          40")

	out, err = execute(t, "journal", "decisions", "--db", db, "--symbol", "BTCUSDT", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "| Time | Symbol |")
	assert.Contains(t, out, "BTCUSDT")

	out, err = execute(t, "journal", "reasons", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "insufficient_data")

	_, err = execute(t, "journal", "trade", "missing", "--db", db)
	assert.ErrorContains(t, err, "get trade")

	_, err = execute(t, "journal", "day", "not-a-day", "--db", db)
	assert.ErrorContains(t, err, "date")
}

func TestBacktestRequiresData(t *testing.T) {
	_, err := execute(t, "backtest", "--data", filepath.Join(t.TempDir(), "missing.csv"), "--db", filepath.Join(t.TempDir(), "x.db"))
	assert.ErrorContains(t, err, "open data")
}

func TestDayBounds(t *testing.T) {
	start, end, err := dayBounds(fixture.Start.Location(), "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, fixture.Start, start)
	assert.Equal(t, fixture.Start.AddDate(0, 0, 1), end)
}

func TestDataDownload(t *testing.T) {
	bars := fixture.Range(3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/instruments/BTCUSDT/candles", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var candles []map[string]any
		for _, c := range bars {
			candles = append(candles, map[string]any{
				"complete": true,
				"volume":   c.Volume,
				"time":     c.Time.Format("2006-01-02T15:04:05Z07:00"),
				"mid": map[string]string{
					"o": fmt.Sprint(c.Open), "h": fmt.Sprint(c.High),
					"l": fmt.Sprint(c.Low), "c": fmt.Sprint(c.Close),
				},
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"instrument": "BTCUSDT", "candles": candles})
	}))
	defer srv.Close()

	t.Setenv("FLOW_MARKET_DATA_REST_BASE_URL", srv.URL)
	t.Setenv("FLOW_MARKET_DATA_REST_TOKEN", "tok")

	out := filepath.Join(t.TempDir(), "btc.csv")
	_, err := execute(t, "data", "-s", "BTCUSDT", "-n", "3", "-o", out)
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	got, err := marketdata.ReadAll(f)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "BTCUSDT", got[0].Symbol)
	assert.Equal(t, bars[2].Close, got[2].Close)
}
