// Package gate holds the veto filters a trade candidate must pass before
// it is admitted: the correlation gate and the conviction gate.
package gate

// Rejection reasons reported by the gates.
const (
	ReasonCorrelated = "correlated_symbol_underperforming"
	ReasonConviction = "insufficient_conviction"
)

// Result is the verdict of one gate. AdjustedConfidence is always in
// [0,1].
type Result struct {
	Admitted           bool    `json:"admitted"`
	Reason             string  `json:"reason,omitempty"`
	AdjustedConfidence float64 `json:"adjusted_confidence"`
}

func admit(conf float64) Result {
	return Result{Admitted: true, AdjustedConfidence: conf}
}

func reject(reason string, conf float64) Result {
	return Result{Reason: reason, AdjustedConfidence: conf}
}

func clamp01(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
