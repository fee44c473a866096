// Package journal persists closed trades and flow decisions.
package journal

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/flowtrader/flow"
	"github.com/rustyeddy/flowtrader/market"
)

// TradeRecord is one closed position.
type TradeRecord struct {
	PositionID string
	Symbol     string
	Side       market.Side
	Source     string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	Reason     string
}

// Outcome is the correlation history entry of the trade.
func (t TradeRecord) Outcome() market.Outcome {
	return market.Outcome{
		Symbol:   t.Symbol,
		Source:   t.Source,
		Result:   market.ResultOf(t.RealizedPL),
		ClosedAt: t.CloseTime,
	}
}

// DecisionRecord is the flattened form of a flow decision. Diagnostics
// holds the full decision as JSON.
type DecisionRecord struct {
	ID          string
	Symbol      string
	At          time.Time
	Admitted    bool
	Reason      string
	Regime      string
	Source      string
	Confidence  float64
	PositionID  string
	Diagnostics []byte
}

// DecisionRecordOf flattens d.
func DecisionRecordOf(d flow.Decision) DecisionRecord {
	rec := DecisionRecord{
		ID:         d.ID,
		Symbol:     d.Symbol,
		At:         d.At,
		Admitted:   d.Admitted,
		Reason:     string(d.Reason),
		Confidence: d.Diagnostics.FinalConfidence,
		PositionID: d.PositionID,
	}
	if r := d.Diagnostics.Regime; r != nil {
		rec.Regime = r.Regime.String()
	}
	if c := d.Diagnostics.Candidate; c != nil {
		rec.Source = c.Source
	}
	if d.OpenRefused {
		rec.Reason = flow.OpenRefused
	}
	rec.Diagnostics, _ = json.Marshal(d)
	return rec
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordDecision(DecisionRecord) error
	Close() error
}

// Sink publishes flow decisions into a journal. Write failures are logged
// and never stop the engine.
type Sink struct {
	j   Journal
	log zerolog.Logger
}

func NewSink(j Journal, log zerolog.Logger) *Sink {
	return &Sink{j: j, log: log}
}

func (s *Sink) Publish(d flow.Decision) {
	if err := s.j.RecordDecision(DecisionRecordOf(d)); err != nil {
		s.log.Error().Err(err).Str("decision", d.ID).Msg("journal decision")
	}
}

// Multi fans records out to several journals. Every journal is written
// even when an earlier one fails; the errors are joined.
type Multi []Journal

func (m Multi) RecordTrade(t TradeRecord) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordTrade(t))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordDecision(d DecisionRecord) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordDecision(d))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.Close())
	}
	return errors.Join(errs...)
}
