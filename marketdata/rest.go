package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/flowtrader/market"
)

// maxCount is the largest candle count one request may ask for.
const maxCount = 5000

// RESTConfig points the REST source at a v3 style candles endpoint.
type RESTConfig struct {
	BaseURL     string        `json:"base_url" yaml:"base_url" envconfig:"BASE_URL"`
	Token       string        `json:"-" yaml:"-" envconfig:"TOKEN"`
	Granularity string        `json:"granularity" yaml:"granularity" envconfig:"GRANULARITY"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout" envconfig:"TIMEOUT"`
}

func DefaultRESTConfig() RESTConfig {
	return RESTConfig{Granularity: "M1", Timeout: 30 * time.Second}
}

// REST is a Source backed by an HTTP candles API:
//
//	GET {base}/v3/instruments/{symbol}/candles?granularity=M1&price=M&count=N
//
// Only complete candles are returned. A 404 is reported as an unknown
// symbol so retrying wrappers give up on it.
type REST struct {
	cfg        RESTConfig
	httpClient *http.Client
	rsiPeriod  int
	volumeBars int
}

func NewREST(cfg RESTConfig, rsiPeriod, volumeBars int) *REST {
	if cfg.Granularity == "" {
		cfg.Granularity = DefaultRESTConfig().Granularity
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRESTConfig().Timeout
	}
	return &REST{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		rsiPeriod:  rsiPeriod,
		volumeBars: volumeBars,
	}
}

type candleData struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

type apiCandle struct {
	Complete bool       `json:"complete"`
	Volume   float64    `json:"volume"`
	Time     string     `json:"time"`
	Mid      candleData `json:"mid"`
}

type candlesResponse struct {
	Instrument  string      `json:"instrument"`
	Granularity string      `json:"granularity"`
	Candles     []apiCandle `json:"candles"`
}

// Candles fetches the latest count complete candles of symbol, oldest first.
func (c *REST) Candles(ctx context.Context, symbol string, count int) ([]market.Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("rest: symbol is required")
	}
	if c.cfg.BaseURL == "" {
		return nil, fmt.Errorf("rest: missing base url")
	}
	if count <= 0 || count > maxCount {
		return nil, fmt.Errorf("rest: count must be in [1,%d], got %d", maxCount, count)
	}

	params := url.Values{}
	params.Set("price", "M")
	params.Set("granularity", c.cfg.Granularity)
	params.Set("count", strconv.Itoa(count))
	apiURL := fmt.Sprintf("%s/v3/instruments/%s/candles?%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("rest %s: %w", symbol, market.ErrUnknownSymbol)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("rest %s: status %d: %s", symbol, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var apiResp candlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	candles := make([]market.Candle, 0, len(apiResp.Candles))
	for _, ac := range apiResp.Candles {
		if !ac.Complete {
			continue
		}
		cd, err := ac.candle()
		if err != nil {
			return nil, fmt.Errorf("rest %s: %w", symbol, err)
		}
		candles = append(candles, cd)
	}
	return candles, nil
}

func (ac apiCandle) candle() (market.Candle, error) {
	t, err := time.Parse(time.RFC3339Nano, ac.Time)
	if err != nil {
		return market.Candle{}, fmt.Errorf("parse time %q: %w", ac.Time, err)
	}
	var v [4]float64
	for i, s := range []string{ac.Mid.O, ac.Mid.H, ac.Mid.L, ac.Mid.C} {
		if v[i], err = strconv.ParseFloat(s, 64); err != nil {
			return market.Candle{}, fmt.Errorf("candle %s: parse price %q: %w", ac.Time, s, err)
		}
	}
	c := market.Candle{Time: t.UTC(), Open: v[0], High: v[1], Low: v[2], Close: v[3], Volume: ac.Volume}
	return c, c.Validate()
}

func (c *REST) Window(ctx context.Context, symbol string, length int) (*market.PriceWindow, error) {
	candles, err := c.Candles(ctx, symbol, length)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	w, err := market.WindowOf(symbol, candles)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return w, nil
}

// Participation fetches enough candles for both the volume lookback and
// the oscillator warmup.
func (c *REST) Participation(ctx context.Context, symbol string) (market.Participation, error) {
	n := max(c.volumeBars, 4*c.rsiPeriod, 1)
	candles, err := c.Candles(ctx, symbol, min(n, maxCount))
	if err != nil {
		return market.Participation{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return participationOf(candles, c.rsiPeriod, c.volumeBars), nil
}

// Download writes the latest count candles of symbol as feed CSV.
func (c *REST) Download(ctx context.Context, symbol string, count int, w io.Writer) (int, error) {
	candles, err := c.Candles(ctx, symbol, count)
	if err != nil {
		return 0, err
	}
	bars := make([]Bar, len(candles))
	for i, cd := range candles {
		bars[i] = Bar{Symbol: symbol, Candle: cd}
	}
	return len(bars), WriteCSV(w, bars)
}
