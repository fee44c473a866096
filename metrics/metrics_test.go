package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/flowtrader/flow"
	"github.com/rustyeddy/flowtrader/gate"
	"github.com/rustyeddy/flowtrader/ledger"
	"github.com/rustyeddy/flowtrader/regime"
)

func TestPublishCountsDecisions(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := New(reg)

	a := regime.Assessment{Regime: regime.Trending, Preferred: regime.Pullback}
	m.Publish(flow.Decision{
		Admitted:   true,
		PositionID: "p1",
		Diagnostics: flow.Diagnostics{
			Regime:          &a,
			Correlation:     &gate.CorrelationResult{},
			Conviction:      &gate.ConvictionResult{},
			FinalConfidence: 0.72,
		},
	})
	m.Publish(flow.Decision{Reason: flow.ReasonNoCandidate, Diagnostics: flow.Diagnostics{Regime: &a}})
	m.Publish(flow.Decision{Reason: flow.ReasonNoCandidate})
	m.Publish(flow.Decision{Admitted: true, OpenRefused: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("true", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("true", flow.OpenRefused)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("false", "no_candidate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.regimes.WithLabelValues("trending", "pullback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.open))

	n, err := testutil.GatherAndCount(reg, "flow_final_confidence")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOnPositionClosed(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())

	m.Publish(flow.Decision{Admitted: true, PositionID: "a"})
	m.Publish(flow.Decision{Admitted: true, PositionID: "b"})
	m.OnPositionClosed(ledger.Position{RealizedPL: 3, ExitReason: ledger.ExitTakeProfit})
	m.OnPositionClosed(ledger.Position{RealizedPL: -1, ExitReason: ledger.ExitStopLoss})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.open))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.closed.WithLabelValues("win", "take_profit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.closed.WithLabelValues("loss", "stop_loss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.realized))
}
