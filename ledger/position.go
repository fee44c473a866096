package ledger

import (
	"time"

	"github.com/rustyeddy/flowtrader/market"
	"github.com/rustyeddy/flowtrader/risk"
)

type Status int

const (
	Open Status = iota + 1
	Closed
)

func (s Status) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Exit reasons.
const (
	ExitStopLoss     = "stop_loss"
	ExitTakeProfit   = "take_profit"
	ExitTrailingStop = "trailing_stop"
	ExitTimeStop     = "time_stop"
	ExitManual       = "manual"
)

// Position is one trade held by the ledger. Risk is fixed at open; only
// the trailing rule moves StopLoss, and only in the position's favour.
type Position struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Side       market.Side     `json:"side"`
	Source     string          `json:"source"`
	Entry      float64         `json:"entry"`
	Quantity   float64         `json:"quantity"`
	Risk       risk.Parameters `json:"risk"`
	StopLoss   float64         `json:"stop_loss"`
	TakeProfit float64         `json:"take_profit"`
	OpenedAt   time.Time       `json:"opened_at"`
	Status     Status          `json:"status"`

	ClosePrice float64   `json:"close_price,omitempty"`
	ClosedAt   time.Time `json:"closed_at,omitempty"`
	RealizedPL float64   `json:"realized_pl,omitempty"`
	ExitReason string    `json:"exit_reason,omitempty"`

	// Best is the most favourable price seen while open.
	Best    float64 `json:"best"`
	Trailed bool    `json:"trailed"`
}

// PL is the profit of closing the whole position at price.
func (p Position) PL(price float64) float64 {
	return p.Side.Sign() * (price - p.Entry) * p.Quantity
}

// checkExit evaluates one bar against the bracket. The stop is checked
// first, so a bar touching both counts as a stop.
func (p *Position) checkExit(c market.Candle) (price float64, reason string, hit bool) {
	if p.Side == market.Long {
		if c.Low <= p.StopLoss {
			return p.stopFill(c), p.stopReason(), true
		}
		if c.High >= p.TakeProfit {
			return p.TakeProfit, ExitTakeProfit, true
		}
		return 0, "", false
	}
	if c.High >= p.StopLoss {
		return p.stopFill(c), p.stopReason(), true
	}
	if c.Low <= p.TakeProfit {
		return p.TakeProfit, ExitTakeProfit, true
	}
	return 0, "", false
}

// stopFill is the stop price, or the open when the bar gapped through it.
func (p *Position) stopFill(c market.Candle) float64 {
	if p.Side == market.Long && c.Open < p.StopLoss {
		return c.Open
	}
	if p.Side == market.Short && c.Open > p.StopLoss {
		return c.Open
	}
	return p.StopLoss
}

func (p *Position) stopReason() string {
	if p.Trailed {
		return ExitTrailingStop
	}
	return ExitStopLoss
}

// trail moves the stop behind the best price once the position is
// activation percent in profit.
func (p *Position) trail(c market.Candle, activation, distance float64) {
	if p.Side == market.Long {
		if c.High > p.Best {
			p.Best = c.High
		}
	} else if c.Low < p.Best {
		p.Best = c.Low
	}
	if activation <= 0 || distance <= 0 {
		return
	}

	gain := p.Side.Sign() * (p.Best - p.Entry) / p.Entry * 100
	if gain < activation {
		return
	}
	stop := p.Best * (1 - p.Side.Sign()*distance/100)
	if (stop-p.StopLoss)*p.Side.Sign() > 0 {
		p.StopLoss = stop
		p.Trailed = true
	}
}
