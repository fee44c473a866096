package risk

import (
	"math"
	"testing"

	"github.com/rustyeddy/flowtrader/market"
	"github.com/rustyeddy/flowtrader/regime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		a      regime.Assessment
		sl, tp float64
	}{
		{
			name: "trending low vol",
			a:    regime.Assessment{Regime: regime.Trending, Direction: regime.Up, Preferred: regime.Pullback, Volatility: 0.6},
			sl:   0.24, tp: 2.0,
		},
		{
			name: "trending high vol",
			a:    regime.Assessment{Regime: regime.Trending, Direction: regime.Up, Preferred: regime.Breakout, Volatility: 1.9},
			sl:   0.3, tp: 1.44,
		},
		{
			name: "ranging",
			a:    regime.Assessment{Regime: regime.Ranging, Preferred: regime.SupportResistance, Volatility: 0.8},
			sl:   0.3, tp: 0.8,
		},
		{
			name: "volatile with extra scaling",
			a:    regime.Assessment{Regime: regime.Volatile, Preferred: regime.Avoid, Volatility: 3.1},
			sl:   0.3 * 1.5 * 1.3, tp: 0.8 * 1.2 * 1.4,
		},
		{
			name: "trending high vol with extra scaling",
			a:    regime.Assessment{Regime: regime.Trending, Preferred: regime.Breakout, Volatility: 2.2},
			sl:   0.3 * 1.3, tp: 1.44 * 1.4,
		},
	}

	d := NewDeriver(DefaultConfig())
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := d.Derive(tt.a)
			assert.InDelta(t, tt.sl, p.StopLossPct, 1e-9)
			assert.InDelta(t, tt.tp, p.TakeProfitPct, 1e-9)
			assert.True(t, p.Valid())
		})
	}
}

func TestDerivePositiveAndTrendSkew(t *testing.T) {
	t.Parallel()

	d := NewDeriver(DefaultConfig())
	regimes := []regime.Regime{regime.Trending, regime.Ranging, regime.Volatile}
	prefs := []regime.Strategy{regime.Pullback, regime.Breakout, regime.SupportResistance, regime.Avoid}
	vols := []float64{-1, 0, 0.01, 0.5, 1, 2, 2.0001, 2.5, 5, 50, math.NaN()}

	for _, r := range regimes {
		for _, pref := range prefs {
			for _, v := range vols {
				p := d.Derive(regime.Assessment{Regime: r, Preferred: pref, Volatility: v})
				require.True(t, p.Valid(), "%s/%s/%v", r, pref, v)
				if r == regime.Trending {
					assert.GreaterOrEqual(t, p.RR(), 1.0, "%s/%s/%v", r, pref, v)
				}
			}
		}
	}
}

func TestSizeMultiplierDecreasesWithVolatility(t *testing.T) {
	t.Parallel()

	d := NewDeriver(DefaultConfig())
	prev := math.Inf(1)
	for _, v := range []float64{0, 0.5, 1, 1.5, 2, 3, 4, 5, 10, 100} {
		m := d.Derive(regime.Assessment{Regime: regime.Ranging, Volatility: v}).SizeMultiplier
		assert.LessOrEqual(t, m, prev, "vol=%v", v)
		assert.GreaterOrEqual(t, m, 0.2)
		assert.LessOrEqual(t, m, 1.0)
		prev = m
	}
	assert.Equal(t, 1.0, d.Derive(regime.Assessment{}).SizeMultiplier)
	assert.Equal(t, 0.2, d.Derive(regime.Assessment{Volatility: 100}).SizeMultiplier)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.TrendingHighVol = Bracket{StopLoss: 3, TakeProfit: 1}
	assert.Error(t, bad.Validate())

	skew := DefaultConfig()
	skew.Extra = Bracket{StopLoss: 10, TakeProfit: 1}
	assert.Error(t, skew.Validate())

	floor := DefaultConfig()
	floor.MinSizeMultiplier = 0
	assert.Error(t, floor.Validate())
}

func TestParametersPrices(t *testing.T) {
	t.Parallel()

	p := Parameters{StopLossPct: 0.24, TakeProfitPct: 2.0, SizeMultiplier: 1}

	sl, tp := p.Prices(100, market.Long)
	assert.InDelta(t, 99.76, sl, 1e-9)
	assert.InDelta(t, 102.0, tp, 1e-9)

	sl, tp = p.Prices(100, market.Short)
	assert.InDelta(t, 100.24, sl, 1e-9)
	assert.InDelta(t, 98.0, tp, 1e-9)

	assert.InDelta(t, 2.0/0.24, p.RR(), 1e-9)
	assert.Equal(t, 0.0, Parameters{}.RR())
}
