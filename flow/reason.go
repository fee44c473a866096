package flow

import "github.com/rustyeddy/flowtrader/gate"

// Reason explains a rejection. Rejections are normal outcomes, not errors.
type Reason string

const (
	ReasonInsufficientData Reason = "insufficient_data"
	ReasonNoCandidate      Reason = "no_candidate"
	ReasonCorrelated       Reason = gate.ReasonCorrelated
	ReasonConviction       Reason = gate.ReasonConviction
	ReasonLowConfidence    Reason = "confidence_below_threshold"
	ReasonDataUnavailable  Reason = "data_unavailable"
)

// OpenRefused labels an admitted decision whose trade the ledger would
// not open. It is not a rejection reason.
const OpenRefused = "open_refused"

// Reasons lists every rejection reason.
var Reasons = []Reason{
	ReasonInsufficientData,
	ReasonNoCandidate,
	ReasonCorrelated,
	ReasonConviction,
	ReasonLowConfidence,
	ReasonDataUnavailable,
}

// State is a step of one symbol's evaluation.
type State int

const (
	Idle State = iota
	RegimeClassified
	CandidateProposed
	GatesEvaluated
	Admitted
	Rejected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RegimeClassified:
		return "regime_classified"
	case CandidateProposed:
		return "candidate_proposed"
	case GatesEvaluated:
		return "gates_evaluated"
	case Admitted:
		return "admitted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
