package flow

import (
	"time"

	"github.com/rustyeddy/flowtrader/gate"
	"github.com/rustyeddy/flowtrader/market"
	"github.com/rustyeddy/flowtrader/regime"
	"github.com/rustyeddy/flowtrader/risk"
	"github.com/rustyeddy/flowtrader/strategies"
)

// Trade is an admitted candidate with the regime's bracket applied.
type Trade struct {
	Symbol     string          `json:"symbol"`
	Side       market.Side     `json:"side"`
	Entry      float64         `json:"entry"`
	StopLoss   float64         `json:"stop_loss"`
	TakeProfit float64         `json:"take_profit"`
	Size       float64         `json:"size"`
	Confidence float64         `json:"confidence"`
	Source     string          `json:"source"`
	Risk       risk.Parameters `json:"risk"`
}

// Diagnostics is everything the core looked at. Fields stay nil for the
// steps that did not run.
type Diagnostics struct {
	Regime          *regime.Assessment      `json:"regime,omitempty"`
	Risk            *risk.Parameters        `json:"risk,omitempty"`
	Candidate       *strategies.Candidate   `json:"candidate,omitempty"`
	Correlation     *gate.CorrelationResult `json:"correlation,omitempty"`
	Conviction      *gate.ConvictionResult  `json:"conviction,omitempty"`
	FinalConfidence float64                 `json:"final_confidence"`
	States          []State                 `json:"states"`
	Error           string                  `json:"error,omitempty"`
}

// Decision is the result of one evaluation tick for one symbol.
type Decision struct {
	ID         string    `json:"id,omitempty"`
	Symbol     string    `json:"symbol"`
	At         time.Time `json:"at"`
	Admitted   bool      `json:"admitted"`
	Reason     Reason    `json:"reason,omitempty"`
	Trade      *Trade    `json:"trade,omitempty"`
	PositionID string    `json:"position_id,omitempty"`
	// OpenRefused is set when the decision was admitted but the opener
	// returned an error; Diagnostics.Error holds it.
	OpenRefused bool        `json:"open_refused,omitempty"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// State is the terminal state of the decision.
func (d Decision) State() State {
	if n := len(d.Diagnostics.States); n > 0 {
		return d.Diagnostics.States[n-1]
	}
	return Idle
}

func (d *Decision) enter(s State) {
	d.Diagnostics.States = append(d.Diagnostics.States, s)
}

func (d *Decision) reject(r Reason) {
	d.Admitted = false
	d.Reason = r
	d.enter(Rejected)
}
