package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func bar(i int, close float64) Candle {
	return Candle{
		Time:   t0.Add(time.Duration(i) * time.Minute),
		Open:   close,
		High:   close + 1,
		Low:    close - 1,
		Close:  close,
		Volume: 100,
	}
}

func TestPriceWindowRolls(t *testing.T) {
	t.Parallel()

	w := NewPriceWindow("BTCUSDT", 3)
	assert.Equal(t, 3, w.Cap())
	_, ok := w.Last()
	assert.False(t, ok)

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Push(bar(i, 100+float64(i))))
	}

	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []float64{102, 103, 104}, w.Closes())
	assert.Equal(t, []float64{100, 100, 100}, w.Volumes())

	last, ok := w.Last()
	require.True(t, ok)
	assert.Equal(t, 104.0, last.Close)

	tail := w.Tail(2)
	require.Len(t, tail, 2)
	assert.Equal(t, 103.0, tail[0].Close)
	assert.Len(t, w.Tail(10), 3)
}

func TestPriceWindowRejectsOutOfOrder(t *testing.T) {
	t.Parallel()

	w := NewPriceWindow("ETHUSDT", 5)
	require.NoError(t, w.Push(bar(1, 100)))

	err := w.Push(bar(1, 101))
	assert.ErrorIs(t, err, ErrOutOfOrder)

	err = w.Push(bar(0, 101))
	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.Equal(t, 1, w.Len())
}

func TestPriceWindowRejectsBadBars(t *testing.T) {
	t.Parallel()

	w := NewPriceWindow("ETHUSDT", 5)
	bad := bar(0, 100)
	bad.High = bad.Low - 1
	assert.Error(t, w.Push(bad))

	neg := bar(0, 100)
	neg.Close = -1
	assert.Error(t, w.Push(neg))
	assert.Equal(t, 0, w.Len())
}

func TestPriceWindowCloneIsIndependent(t *testing.T) {
	t.Parallel()

	w, err := WindowOf("SOLUSDT", []Candle{bar(0, 10), bar(1, 11)})
	require.NoError(t, err)

	cp := w.Clone()
	require.NoError(t, w.Push(bar(2, 12)))

	assert.Equal(t, 2, cp.Len())
	assert.Equal(t, []float64{11, 12}, w.Closes())
	assert.Equal(t, []float64{10, 11}, cp.Closes())
}

func TestWindowStore(t *testing.T) {
	t.Parallel()

	s := NewWindowStore(10)
	_, err := s.Snapshot("BTCUSDT", 5)
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	for i := 0; i < 8; i++ {
		require.NoError(t, s.Push("BTCUSDT", bar(i, 100+float64(i))))
	}

	snap, err := s.Snapshot("BTCUSDT", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Len())
	assert.Equal(t, 107.0, snap.Closes()[4])

	all, err := s.Snapshot("BTCUSDT", 0)
	require.NoError(t, err)
	assert.Equal(t, 8, all.Len())

	last, err := s.Last("BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 107.0, last.Close)
	assert.Equal(t, []string{"BTCUSDT"}, s.Symbols())
}

func TestSideAndResult(t *testing.T) {
	t.Parallel()

	s, err := ParseSide("BUY")
	require.NoError(t, err)
	assert.Equal(t, Long, s)
	assert.Equal(t, -1.0, Short.Sign())
	assert.False(t, Side(0).Valid())

	_, err = ParseSide("hold")
	assert.Error(t, err)

	assert.Equal(t, Win, ResultOf(0.01))
	assert.Equal(t, Loss, ResultOf(0))
	assert.Equal(t, "loss", Loss.String())
}
