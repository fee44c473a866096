package market

import (
	"encoding/json"
	"time"
)

// Result is the sign of a closed trade's realized P/L.
type Result int

const (
	Win Result = iota + 1
	Loss
)

func (r Result) String() string {
	switch r {
	case Win:
		return "win"
	case Loss:
		return "loss"
	default:
		return "unknown"
	}
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// ResultOf classifies realized P/L; break-even counts as a loss.
func ResultOf(pl float64) Result {
	if pl > 0 {
		return Win
	}
	return Loss
}

// Outcome is the record emitted when a position closes.
type Outcome struct {
	Symbol   string    `json:"symbol"`
	Source   string    `json:"source"`
	Result   Result    `json:"result"`
	ClosedAt time.Time `json:"closed_at"`
}

// Participation is the volume and momentum evidence for one symbol.
type Participation struct {
	Volumes  []float64 `json:"volumes"`
	Momentum float64   `json:"momentum"`
}
