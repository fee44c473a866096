package risk

import "math"

// SizeInputs describe an account-risk based position size.
type SizeInputs struct {
	Equity         float64
	RiskPct        float64 // fraction of equity at risk, 0.005
	Entry          float64
	Stop           float64
	QuoteToAccount float64 // 1.0 when the quote currency is the account currency
	Step           float64 // quantity increment; 0 leaves the size unrounded
}

type SizeResult struct {
	Quantity     float64
	StopDistance float64
	RiskAmount   float64
}

// Size computes the quantity whose stop-out loses RiskPct of equity.
// It returns a zero quantity when the stop distance is zero.
func Size(in SizeInputs) SizeResult {
	rate := in.QuoteToAccount
	if rate <= 0 {
		rate = 1
	}
	dist := math.Abs(in.Entry - in.Stop)
	riskAmt := in.Equity * in.RiskPct

	res := SizeResult{StopDistance: dist, RiskAmount: riskAmt}
	if dist == 0 || riskAmt <= 0 {
		return res
	}

	q := riskAmt / (dist * rate)
	if in.Step > 0 {
		q = math.Floor(q/in.Step) * in.Step
	}
	res.Quantity = q
	return res
}
