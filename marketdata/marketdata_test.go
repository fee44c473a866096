package marketdata

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/flowtrader/internal/fixture"
	"github.com/rustyeddy/flowtrader/market"
)

func TestStoreWindowAndParticipation(t *testing.T) {
	t.Parallel()

	s := NewStore(50, 14, 21)
	for _, c := range fixture.LowVolTrend(40) {
		require.NoError(t, s.Push("BTCUSDT", c))
	}
	ctx := context.Background()

	w, err := s.Window(ctx, "BTCUSDT", 30)
	require.NoError(t, err)
	assert.Equal(t, 30, w.Len())

	p, err := s.Participation(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Len(t, p.Volumes, 21)
	assert.Equal(t, 100.0, p.Momentum, "only gains")

	_, err = s.Window(ctx, "ETHUSDT", 30)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, market.ErrUnknownSymbol)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Participation(cancelled, "BTCUSDT")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStoreNeutralMomentumWhenShort(t *testing.T) {
	t.Parallel()

	s := NewStore(50, 14, 21)
	for _, c := range fixture.LowVolTrend(5) {
		require.NoError(t, s.Push("BTCUSDT", c))
	}
	p, err := s.Participation(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 50.0, p.Momentum)
	assert.Len(t, p.Volumes, 5)
}

const sample = `time,symbol,open,high,low,close,volume
2024-03-01T00:00:00Z,BTCUSDT,100,101,99,100.5,12.5

2024-03-01T00:01:00Z,ETHUSDT,10,10.2,9.9,10.1,300
1709251320,BTCUSDT,100.5,102,100,101.5,20
`

func TestCSVFeed(t *testing.T) {
	t.Parallel()

	bars, err := ReadAll(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, "BTCUSDT", bars[0].Symbol)
	assert.Equal(t, 100.5, bars[0].Close)
	assert.Equal(t, 12.5, bars[0].Volume)
	assert.Equal(t, "ETHUSDT", bars[1].Symbol)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 2, 0, 0, time.UTC), bars[2].Time)
}

func TestCSVFeedRange(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 3, 1, 0, 1, 0, 0, time.UTC)
	to := time.Date(2024, 3, 1, 0, 2, 0, 0, time.UTC)
	feed := NewCSVFeed(strings.NewReader(sample), from, to)

	b, ok, err := feed.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ETHUSDT", b.Symbol)

	_, ok, err = feed.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCSVFeedErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		row  string
		want string
	}{
		{"short row", "2024-03-01T00:00:00Z,BTCUSDT,1,2", "want 7 fields"},
		{"bad time", "yesterday,BTCUSDT,1,2,1,1,1", "bad time"},
		{"bad close", "2024-03-01T00:00:00Z,BTCUSDT,1,2,1,x,1", "bad close"},
		{"high below low", "2024-03-01T00:00:00Z,BTCUSDT,1,1,2,1,1", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadAll(strings.NewReader(tt.row + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 1")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	t.Parallel()

	var in []Bar
	for _, c := range fixture.Range(5) {
		in = append(in, Bar{Symbol: "SOLUSDT", Candle: c})
	}
	path := filepath.Join(t.TempDir(), "bars.csv")
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	feed, err := OpenCSV(path, time.Time{}, time.Time{})
	require.NoError(t, err)
	defer feed.Close()

	for i := range in {
		b, ok, err := feed.Next()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, in[i].Close, b.Close)
		assert.True(t, in[i].Time.Equal(b.Time))
	}
}

type flaky struct {
	fails int32
	calls atomic.Int32
	err   error
}

func (f *flaky) Window(ctx context.Context, symbol string, length int) (*market.PriceWindow, error) {
	if f.calls.Add(1) <= f.fails {
		return nil, f.err
	}
	return fixture.Window(symbol, fixture.Range(length)), nil
}

func (f *flaky) Participation(ctx context.Context, symbol string) (market.Participation, error) {
	if f.calls.Add(1) <= f.fails {
		return market.Participation{}, f.err
	}
	return market.Participation{Momentum: 55}, nil
}

func fastOptions() ResilientOptions {
	return ResilientOptions{RequestsPerSec: 1000, Burst: 100, InitialInterval: time.Millisecond, MaxRetryTimeout: 2 * time.Second}
}

func TestResilientRetries(t *testing.T) {
	t.Parallel()

	src := &flaky{fails: 2, err: errors.New("connection reset")}
	r := NewResilient(src, fastOptions(), zerolog.Nop())

	w, err := r.Window(context.Background(), "BTCUSDT", 25)
	require.NoError(t, err)
	assert.Equal(t, 25, w.Len())
	assert.EqualValues(t, 3, src.calls.Load())
}

func TestResilientUnknownSymbolIsPermanent(t *testing.T) {
	t.Parallel()

	src := &flaky{fails: 100, err: market.ErrUnknownSymbol}
	r := NewResilient(src, fastOptions(), zerolog.Nop())

	_, err := r.Participation(context.Background(), "DOGEUSDT")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, market.ErrUnknownSymbol)
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestResilientHonoursContext(t *testing.T) {
	t.Parallel()

	src := &flaky{fails: 1 << 30, err: errors.New("timeout")}
	r := NewResilient(src, fastOptions(), zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := r.Window(ctx, "BTCUSDT", 25)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}
