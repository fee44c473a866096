package flow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/flowtrader/internal/fixture"
	"github.com/rustyeddy/flowtrader/market"
	"github.com/rustyeddy/flowtrader/marketdata"
	"github.com/rustyeddy/flowtrader/pkg/id"
	"github.com/rustyeddy/flowtrader/strategies"
)

// fakeData serves the trend inputs for every symbol.
type fakeData struct {
	delay    time.Duration
	ignore   bool // ignore ctx while delaying
	err      error
	inFlight sync.Map // symbol -> *atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeData) Window(ctx context.Context, symbol string, length int) (*market.PriceWindow, error) {
	v, _ := f.inFlight.LoadOrStore(symbol, new(atomic.Int32))
	n := v.(*atomic.Int32).Add(1)
	defer v.(*atomic.Int32).Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	if f.delay > 0 {
		if f.ignore {
			time.Sleep(f.delay)
		} else {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	bars := fixture.WithVolume(fixture.LowVolTrend(60), 1600)
	return fixture.Window(symbol, bars), nil
}

func (f *fakeData) Participation(ctx context.Context, symbol string) (market.Participation, error) {
	bars := fixture.WithVolume(fixture.LowVolTrend(60), 1600)
	return fixture.Participation(bars, 78), nil
}

type fakeOpener struct {
	mu     sync.Mutex
	trades []Trade
	err    error
}

func (o *fakeOpener) Open(t Trade, at time.Time) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return "", o.err
	}
	o.trades = append(o.trades, t)
	return id.At(at), nil
}

type recorder struct {
	mu        sync.Mutex
	decisions []Decision
}

func (r *recorder) Publish(d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, d)
}

func newEngine(t *testing.T, data marketdata.Source, opener Opener, timeout time.Duration, sources ...strategies.Source) (*Engine, *recorder) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TickTimeout = timeout
	cfg.TickInterval = 10 * time.Millisecond
	core, err := NewCore(cfg, sources, nil)
	require.NoError(t, err)
	e := NewEngine(core, data, opener, zerolog.Nop())
	rec := &recorder{}
	e.AddSink(rec)
	return e, rec
}

func TestEvaluateTickOpensAdmittedTrades(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{}
	e, rec := newEngine(t, &fakeData{}, opener, time.Second, breakout(0.8))

	d, err := e.EvaluateTick(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, d.Admitted)
	assert.NotEmpty(t, d.ID)
	assert.NotEmpty(t, d.PositionID)
	require.Len(t, opener.trades, 1)
	assert.Equal(t, *d.Trade, opener.trades[0])
	require.Len(t, rec.decisions, 1)
	assert.Equal(t, d, rec.decisions[0])
}

func TestEvaluateTickOpenRefusal(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{err: errors.New("position already open")}
	e, _ := newEngine(t, &fakeData{}, opener, time.Second, breakout(0.8))

	d, err := e.EvaluateTick(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, d.Admitted)
	assert.Empty(t, d.PositionID)
	assert.True(t, d.OpenRefused)
	assert.Contains(t, d.Diagnostics.Error, "position already open")

	opener.err = nil
	d, err = e.EvaluateTick(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.False(t, d.OpenRefused)
}

func TestEvaluateTickDataUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data *fakeData
	}{
		{"fetch error", &fakeData{err: marketdata.ErrUnavailable}},
		{"deadline", &fakeData{delay: time.Second}},
		{"collaborator ignores deadline", &fakeData{delay: time.Second, ignore: true}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opener := &fakeOpener{}
			e, rec := newEngine(t, tt.data, opener, 20*time.Millisecond, breakout(0.8))

			start := time.Now()
			d, err := e.EvaluateTick(context.Background(), "BTCUSDT")
			require.NoError(t, err)
			assert.Less(t, time.Since(start), 500*time.Millisecond)
			assert.False(t, d.Admitted)
			assert.Equal(t, ReasonDataUnavailable, d.Reason)
			assert.Equal(t, []State{Idle, Rejected}, d.Diagnostics.States)
			assert.NotEmpty(t, d.Diagnostics.Error)
			assert.Empty(t, opener.trades)
			assert.Len(t, rec.decisions, 1)
		})
	}
}

func TestEvaluateTickMalformedAborts(t *testing.T) {
	t.Parallel()

	src := breakout(0.8)
	src.mutate = func(c *strategies.Candidate) { c.Confidence = 2 }
	opener := &fakeOpener{}
	e, rec := newEngine(t, &fakeData{}, opener, time.Second, src)

	_, err := e.EvaluateTick(context.Background(), "BTCUSDT")
	require.ErrorIs(t, err, ErrMalformedCandidate)
	assert.Empty(t, opener.trades)
	assert.Empty(t, rec.decisions)
}

func TestEvaluateTickSerializesPerSymbol(t *testing.T) {
	t.Parallel()

	data := &fakeData{delay: 5 * time.Millisecond}
	e, rec := newEngine(t, data, nil, time.Second, breakout(0.8))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.EvaluateTick(context.Background(), "BTCUSDT")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, data.maxSeen.Load())
	assert.Len(t, rec.decisions, 8)
}

func TestTickEvaluatesSymbolsInParallel(t *testing.T) {
	t.Parallel()

	data := &fakeData{delay: 50 * time.Millisecond}
	e, _ := newEngine(t, data, nil, time.Second, breakout(0.8))

	symbols := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "BNBUSDT"}
	start := time.Now()
	out, err := e.Tick(context.Background(), symbols)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 180*time.Millisecond)

	require.Len(t, out, 4)
	for i, d := range out {
		assert.Equal(t, symbols[i], d.Symbol)
		assert.True(t, d.Admitted)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	t.Parallel()

	e, rec := newEngine(t, &fakeData{}, nil, time.Second, breakout(0.8))
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Millisecond)
	defer cancel()

	require.NoError(t, e.Run(ctx, []string{"BTCUSDT"}))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.GreaterOrEqual(t, len(rec.decisions), 2)
}

func TestSinkFunc(t *testing.T) {
	t.Parallel()

	var got []Reason
	e, _ := newEngine(t, &fakeData{err: marketdata.ErrUnavailable}, nil, time.Second, breakout(0.8))
	e.AddSink(SinkFunc(func(d Decision) { got = append(got, d.Reason) }))

	_, err := e.EvaluateTick(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, []Reason{ReasonDataUnavailable}, got)
}
