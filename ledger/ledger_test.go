package ledger

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/flowtrader/flow"
	"github.com/rustyeddy/flowtrader/journal"
	"github.com/rustyeddy/flowtrader/market"
	"github.com/rustyeddy/flowtrader/risk"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type memJournal struct {
	mu     sync.Mutex
	trades []journal.TradeRecord
	err    error
}

func (m *memJournal) RecordTrade(r journal.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, r)
	return m.err
}

func (m *memJournal) RecordDecision(journal.DecisionRecord) error { return nil }
func (m *memJournal) Close() error                                { return nil }

type closeRecorder struct {
	mu     sync.Mutex
	closed []Position
}

func (c *closeRecorder) OnPositionClosed(p Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = append(c.closed, p)
}

func newLedger(t *testing.T, cfg Config, j journal.Journal) *Ledger {
	t.Helper()
	l, err := New(cfg, j, zerolog.New(io.Discard))
	require.NoError(t, err)
	return l
}

func plainConfig() Config {
	cfg := DefaultConfig()
	cfg.TrailingActivation = 0
	cfg.TrailingDistance = 0
	cfg.MaxHold = 0
	return cfg
}

func longTrade(symbol string) flow.Trade {
	return flow.Trade{
		Symbol:     symbol,
		Side:       market.Long,
		Entry:      100,
		StopLoss:   99,
		TakeProfit: 102,
		Size:       2,
		Confidence: 0.7,
		Source:     "trend",
		Risk:       risk.Parameters{StopLossPct: 1, TakeProfitPct: 2, SizeMultiplier: 1},
	}
}

func shortTrade(symbol string) flow.Trade {
	tr := longTrade(symbol)
	tr.Side = market.Short
	tr.StopLoss = 101
	tr.TakeProfit = 98
	return tr
}

func bar(at time.Time, o, h, l, c float64) market.Candle {
	return market.Candle{Time: at, Open: o, High: h, Low: l, Close: c, Volume: 100}
}

func TestOpenRejectsSecondPositionOnSymbol(t *testing.T) {
	l := newLedger(t, plainConfig(), nil)

	pid, err := l.Open(longTrade("BTCUSDT"), t0)
	require.NoError(t, err)
	assert.NotEmpty(t, pid)

	_, err = l.Open(longTrade("BTCUSDT"), t0.Add(time.Minute))
	assert.ErrorIs(t, err, ErrPositionOpen)

	_, err = l.Open(longTrade("ETHUSDT"), t0)
	assert.NoError(t, err)
	assert.Len(t, l.OpenPositions(), 2)
	assert.Equal(t, 2, l.Stats().Opened)
}

func TestOpenRejectsInvalidTrade(t *testing.T) {
	l := newLedger(t, plainConfig(), nil)

	bad := longTrade("BTCUSDT")
	bad.Size = 0
	_, err := l.Open(bad, t0)
	assert.ErrorIs(t, err, ErrInvalidTrade)

	bad = longTrade("BTCUSDT")
	bad.Risk = risk.Parameters{}
	_, err = l.Open(bad, t0)
	assert.ErrorIs(t, err, ErrInvalidTrade)
}

func TestUpdatePriceExits(t *testing.T) {
	tests := []struct {
		name   string
		trade  flow.Trade
		bar    market.Candle
		closed bool
		price  float64
		reason string
		pl     float64
	}{
		{"long inside bracket", longTrade("X"), bar(t0.Add(time.Minute), 100, 101, 99.5, 100.5), false, 0, "", 0},
		{"long take profit", longTrade("X"), bar(t0.Add(time.Minute), 100, 102.5, 99.5, 102), true, 102, ExitTakeProfit, 4},
		{"long stop loss", longTrade("X"), bar(t0.Add(time.Minute), 100, 100.5, 98.5, 99), true, 99, ExitStopLoss, -2},
		{"long stop wins over take profit", longTrade("X"), bar(t0.Add(time.Minute), 100, 103, 98, 101), true, 99, ExitStopLoss, -2},
		{"long gap through stop fills at open", longTrade("X"), bar(t0.Add(time.Minute), 98, 98.5, 97, 98), true, 98, ExitStopLoss, -4},
		{"short take profit", shortTrade("X"), bar(t0.Add(time.Minute), 100, 100.5, 97.5, 98), true, 98, ExitTakeProfit, 4},
		{"short stop loss", shortTrade("X"), bar(t0.Add(time.Minute), 100, 101.5, 99.5, 101), true, 101, ExitStopLoss, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t, plainConfig(), nil)
			pid, err := l.Open(tt.trade, t0)
			require.NoError(t, err)

			closed, err := l.UpdatePrice("X", tt.bar)
			require.NoError(t, err)
			assert.Equal(t, tt.closed, closed)

			p, err := l.Get(pid)
			require.NoError(t, err)
			if !tt.closed {
				assert.Equal(t, Open, p.Status)
				return
			}
			assert.Equal(t, Closed, p.Status)
			assert.InDelta(t, tt.price, p.ClosePrice, 1e-9)
			assert.Equal(t, tt.reason, p.ExitReason)
			assert.InDelta(t, tt.pl, p.RealizedPL, 1e-9)
			assert.Empty(t, l.OpenPositions())
		})
	}
}

func TestUpdatePriceUnknownSymbol(t *testing.T) {
	l := newLedger(t, plainConfig(), nil)
	closed, err := l.UpdatePrice("NOPE", bar(t0, 1, 1, 1, 1))
	assert.NoError(t, err)
	assert.False(t, closed)
}

func TestTrailingStopMovesOnlyInFavour(t *testing.T) {
	cfg := plainConfig()
	cfg.TrailingActivation = 0.5
	cfg.TrailingDistance = 0.3
	l := newLedger(t, cfg, nil)

	tr := longTrade("X")
	tr.TakeProfit = 110
	pid, err := l.Open(tr, t0)
	require.NoError(t, err)

	// +0.4%: below activation, stop stays.
	_, err = l.UpdatePrice("X", bar(t0.Add(time.Minute), 100, 100.4, 99.8, 100.3))
	require.NoError(t, err)
	p, _ := l.Get(pid)
	assert.Equal(t, 99.0, p.StopLoss)
	assert.False(t, p.Trailed)

	// +1%: stop trails to 101 * 0.997.
	_, err = l.UpdatePrice("X", bar(t0.Add(2*time.Minute), 100.3, 101, 100.2, 100.9))
	require.NoError(t, err)
	p, _ = l.Get(pid)
	assert.InDelta(t, 101*0.997, p.StopLoss, 1e-9)
	assert.True(t, p.Trailed)

	// A lower high never loosens the stop.
	_, err = l.UpdatePrice("X", bar(t0.Add(3*time.Minute), 100.9, 100.9, 100.8, 100.85))
	require.NoError(t, err)
	p, _ = l.Get(pid)
	assert.InDelta(t, 101*0.997, p.StopLoss, 1e-9)

	closed, err := l.UpdatePrice("X", bar(t0.Add(4*time.Minute), 100.8, 100.8, 100.5, 100.6))
	require.NoError(t, err)
	require.True(t, closed)
	p, _ = l.Get(pid)
	assert.Equal(t, ExitTrailingStop, p.ExitReason)
	assert.Greater(t, p.RealizedPL, 0.0)
}

func TestTimeStop(t *testing.T) {
	cfg := plainConfig()
	cfg.MaxHold = time.Hour
	l := newLedger(t, cfg, nil)
	pid, err := l.Open(longTrade("X"), t0)
	require.NoError(t, err)

	closed, err := l.UpdatePrice("X", bar(t0.Add(30*time.Minute), 100, 100.5, 99.5, 100.2))
	require.NoError(t, err)
	assert.False(t, closed)

	closed, err = l.UpdatePrice("X", bar(t0.Add(time.Hour), 100.2, 100.6, 99.6, 100.5))
	require.NoError(t, err)
	assert.True(t, closed)
	p, _ := l.Get(pid)
	assert.Equal(t, ExitTimeStop, p.ExitReason)
	assert.InDelta(t, 1.0, p.RealizedPL, 1e-9)
}

func TestCloseFeedsHistoryJournalAndListener(t *testing.T) {
	j := &memJournal{}
	l := newLedger(t, plainConfig(), j)
	rec := &closeRecorder{}
	l.AddListener(rec)

	pid, err := l.Open(longTrade("BTCUSDT"), t0)
	require.NoError(t, err)
	require.NoError(t, l.Close(pid, 101, t0.Add(time.Hour), ""))

	outcomes := l.History().RecentOutcomes("BTCUSDT", 10)
	require.Len(t, outcomes, 1)
	assert.Equal(t, market.Win, outcomes[0].Result)
	assert.Equal(t, "trend", outcomes[0].Source)

	require.Len(t, j.trades, 1)
	assert.Equal(t, pid, j.trades[0].PositionID)
	assert.Equal(t, ExitManual, j.trades[0].Reason)

	require.Len(t, rec.closed, 1)
	assert.Equal(t, pid, rec.closed[0].ID)

	s := l.Stats()
	assert.Equal(t, 1, s.Closed)
	assert.Equal(t, 1, s.Wins)
	assert.InDelta(t, 2.0, s.RealizedPL, 1e-9)

	assert.ErrorIs(t, l.Close(pid, 101, t0, ""), ErrPositionNotFound)
	assert.ErrorIs(t, l.Close("missing", 101, t0, ""), ErrPositionNotFound)

	// The symbol is free again.
	_, err = l.Open(longTrade("BTCUSDT"), t0.Add(2*time.Hour))
	assert.NoError(t, err)
}

func TestJournalErrorStillCloses(t *testing.T) {
	j := &memJournal{err: errors.New("disk full")}
	l := newLedger(t, plainConfig(), j)
	pid, err := l.Open(longTrade("X"), t0)
	require.NoError(t, err)

	err = l.Close(pid, 99.5, t0.Add(time.Minute), ExitManual)
	assert.ErrorContains(t, err, "disk full")

	p, err := l.Get(pid)
	require.NoError(t, err)
	assert.Equal(t, Closed, p.Status)
	assert.Equal(t, 1, l.History().Len("X"))
}

func TestCloseAll(t *testing.T) {
	l := newLedger(t, plainConfig(), nil)
	_, err := l.Open(longTrade("A"), t0)
	require.NoError(t, err)
	_, err = l.Open(shortTrade("B"), t0)
	require.NoError(t, err)
	_, err = l.Open(longTrade("C"), t0)
	require.NoError(t, err)

	marks := map[string]float64{"A": 101, "B": 101}
	err = l.CloseAll(func(s string) (float64, bool) {
		p, ok := marks[s]
		return p, ok
	}, t0.Add(time.Hour), "end_of_data")
	assert.ErrorContains(t, err, "no price for C")

	open := l.OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, "C", open[0].Symbol)

	s := l.Stats()
	assert.Equal(t, 2, s.Closed)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, 0.0, s.RealizedPL, 1e-9)
}

func TestConcurrentOpenAndUpdate(t *testing.T) {
	l := newLedger(t, plainConfig(), &memJournal{})
	symbols := []string{"A", "B", "C", "D", "E", "F"}

	var wg sync.WaitGroup
	for _, s := range symbols {
		wg.Add(1)
		go func(s string) {
			defer wg.Done()
			_, err := l.Open(longTrade(s), t0)
			assert.NoError(t, err)
			for i := 1; i <= 5; i++ {
				_, err := l.UpdatePrice(s, bar(t0.Add(time.Duration(i)*time.Minute), 100, 100.5, 99.5, 100))
				assert.NoError(t, err)
			}
			_, err = l.UpdatePrice(s, bar(t0.Add(time.Hour), 100, 103, 99.5, 102.5))
			assert.NoError(t, err)
		}(s)
	}
	wg.Wait()

	assert.Empty(t, l.OpenPositions())
	assert.Len(t, l.ClosedPositions(), len(symbols))
	assert.Equal(t, len(symbols), l.Stats().Wins)
}

func TestWarm(t *testing.T) {
	l := newLedger(t, plainConfig(), nil)
	l.Warm([]market.Outcome{
		{Symbol: "ETHUSDT", Result: market.Loss, ClosedAt: t0},
		{Symbol: "BTCUSDT", Result: market.Win, ClosedAt: t0.Add(time.Minute)},
	})
	// Both are in the majors group.
	assert.Len(t, l.History().RecentOutcomes("BTCUSDT", 10), 2)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.HistoryK = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.TrailingDistance = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Groups = map[string][]string{"a": {"X"}, "b": {"X"}}
	assert.Error(t, cfg.Validate())
}
