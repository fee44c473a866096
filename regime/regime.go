// Package regime classifies the recent behaviour of a symbol as trending,
// ranging or volatile and names the strategy family that suits it.
package regime

import (
	"encoding/json"
)

// Regime is the qualitative classification of recent price behaviour.
type Regime int

const (
	Ranging Regime = iota
	Trending
	Volatile
)

func (r Regime) String() string {
	switch r {
	case Trending:
		return "trending"
	case Volatile:
		return "volatile"
	default:
		return "ranging"
	}
}

func (r Regime) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

// Direction of a trend. Only meaningful for Trending.
type Direction int

const (
	Flat Direction = iota
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "flat"
	}
}

func (d Direction) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// Strategy is the strategy family preferred for a regime.
type Strategy int

const (
	Avoid Strategy = iota
	Pullback
	Breakout
	SupportResistance
)

func (s Strategy) String() string {
	switch s {
	case Pullback:
		return "pullback"
	case Breakout:
		return "breakout"
	case SupportResistance:
		return "support_resistance"
	default:
		return "avoid"
	}
}

func (s Strategy) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// Assessment is the output of one classification. It is a value type and
// is never mutated after Assess returns it.
type Assessment struct {
	Regime        Regime    `json:"regime"`
	Direction     Direction `json:"direction"`
	TrendStrength float64   `json:"trend_strength"` // ADX/100, 0..1
	Volatility    float64   `json:"volatility"`     // ATR as percent of the last close
	Favorable     bool      `json:"favorable"`
	Preferred     Strategy  `json:"preferred_strategy"`
}

// Trending reports whether the assessment is a trending regime.
func (a Assessment) Trending() bool { return a.Regime == Trending }
