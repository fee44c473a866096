// Package metrics exposes Prometheus instrumentation for flow decisions and
// ledger positions.
//
//   - flow_decisions_total{admitted,reason}   decisions by outcome
//   - flow_final_confidence                   final confidence of proposed candidates
//   - flow_regime_total{regime,strategy}      regime classifications
//   - flow_positions_open                     open positions (gauge)
//   - flow_positions_closed_total{result,reason}
//   - flow_realized_pl                        cumulative realized P/L (gauge)
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rustyeddy/flowtrader/flow"
	"github.com/rustyeddy/flowtrader/ledger"
	"github.com/rustyeddy/flowtrader/market"
)

// Metrics implements flow.Sink and ledger.Listener.
type Metrics struct {
	decisions  *prometheus.CounterVec
	confidence prometheus.Histogram
	regimes    *prometheus.CounterVec
	open       prometheus.Gauge
	closed     *prometheus.CounterVec
	realized   prometheus.Gauge
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flow_decisions_total",
				Help: "Flow decisions by admission and rejection reason",
			},
			[]string{"admitted", "reason"},
		),
		confidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "flow_final_confidence",
				Help:    "Final confidence of candidates that reached the gates",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		regimes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flow_regime_total",
				Help: "Regime classifications by regime and preferred strategy",
			},
			[]string{"regime", "strategy"},
		),
		open: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "flow_positions_open",
				Help: "Open positions held by the ledger",
			},
		),
		closed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flow_positions_closed_total",
				Help: "Closed positions by result (win|loss) and exit reason",
			},
			[]string{"result", "reason"},
		),
		realized: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "flow_realized_pl",
				Help: "Cumulative realized profit and loss",
			},
		),
	}
	reg.MustRegister(m.decisions, m.confidence, m.regimes, m.open, m.closed, m.realized)
	return m
}

func (m *Metrics) Publish(d flow.Decision) {
	reason := string(d.Reason)
	switch {
	case d.Admitted && d.OpenRefused:
		reason = flow.OpenRefused
	case d.Admitted:
		reason = "none"
	}
	m.decisions.WithLabelValues(strconv.FormatBool(d.Admitted), reason).Inc()

	if r := d.Diagnostics.Regime; r != nil {
		m.regimes.WithLabelValues(r.Regime.String(), r.Preferred.String()).Inc()
	}
	if d.Diagnostics.Correlation != nil && d.Diagnostics.Conviction != nil {
		m.confidence.Observe(d.Diagnostics.FinalConfidence)
	}
	if d.PositionID != "" {
		m.open.Inc()
	}
}

func (m *Metrics) OnPositionClosed(p ledger.Position) {
	m.open.Dec()
	m.closed.WithLabelValues(market.ResultOf(p.RealizedPL).String(), p.ExitReason).Inc()
	m.realized.Add(p.RealizedPL)
}
