package engine

import "fmt"

// BinomialInput is the one-period binomial model: spot S, strike K, up/down
// multipliers u and d, and the per-period risk-free rate r.
type BinomialInput struct {
	S float64 `json:"s"`
	K float64 `json:"k"`
	U float64 `json:"u"`
	D float64 `json:"d"`
	R float64 `json:"r"`
}

// BinomialResult is the risk-neutral measure and the call valued under it.
type BinomialResult struct {
	S              float64 `json:"s"`
	K              float64 `json:"k"`
	U              float64 `json:"u"`
	D              float64 `json:"d"`
	R              float64 `json:"r"`
	PQ             float64 `json:"p_q"`
	SUp            float64 `json:"s_up"`
	SDown          float64 `json:"s_down"`
	CallUp         float64 `json:"call_up"`
	CallDown       float64 `json:"call_down"`
	CallPrice      float64 `json:"call_price"`
	Interpretation string  `json:"interpretation"`
}

// PriceBinomial computes the risk-neutral probability p^Q = ((1+r)-d)/(u-d)
// and the discounted expected call payoff. The no-arbitrage condition
// d < 1+r < u must hold, equivalently p^Q in [0,1]; violations are rejected
// rather than clamped.
func PriceBinomial(in BinomialInput) (*BinomialResult, error) {
	if in.S <= 0 {
		return nil, errf(KindInvalidParameter, "spot must be positive, got %g", in.S)
	}
	if in.K < 0 {
		return nil, errf(KindInvalidParameter, "strike must be non-negative, got %g", in.K)
	}
	if in.D <= 0 || in.U <= in.D {
		return nil, errf(KindNoArbitrageViolation,
			"up/down multipliers must satisfy u > d > 0, got u=%g d=%g", in.U, in.D)
	}

	gross := 1 + in.R
	pq := (gross - in.D) / (in.U - in.D)
	if pq < 0 || pq > 1 {
		return nil, errf(KindNoArbitrageViolation,
			"no-arbitrage condition d < 1+r < u fails (d=%g, 1+r=%g, u=%g)", in.D, gross, in.U)
	}

	sUp := in.S * in.U
	sDown := in.S * in.D
	callUp := maxPayoff(sUp - in.K)
	callDown := maxPayoff(sDown - in.K)
	callPrice := (pq*callUp + (1-pq)*callDown) / gross

	interpretation := fmt.Sprintf(
		"Under risk-neutral measure Q, expected return equals risk-free rate. Risk-neutral probability p^Q = %.4f differs from real-world probability. This adjustment prices the option by discounting risk-neutral expected payoff at r_f. The call option is worth $%.2f, replicating the payoff structure.",
		pq, callPrice)

	return &BinomialResult{
		S:              in.S,
		K:              in.K,
		U:              in.U,
		D:              in.D,
		R:              in.R,
		PQ:             pq,
		SUp:            sUp,
		SDown:          sDown,
		CallUp:         callUp,
		CallDown:       callDown,
		CallPrice:      callPrice,
		Interpretation: interpretation,
	}, nil
}

func maxPayoff(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

// BondSensitivity is a bond's duration-convexity price response to parallel
// rate shocks of ±100 basis points, in percent of price.
type BondSensitivity struct {
	Bond              string  `json:"bond"`
	Maturity          float64 `json:"maturity"`
	Coupon            float64 `json:"coupon"`
	Yield             float64 `json:"yield"`
	Duration          float64 `json:"duration"`
	Convexity         float64 `json:"convexity"`
	PriceChangeNeg100 float64 `json:"price_change_neg100"`
	PriceChangePos100 float64 `json:"price_change_pos100"`
}

// RateShock applies the second-order duration-convexity approximation
// dP/P = -D*dy + 0.5*C*dy^2 for a yield shift in decimal terms, returning
// the move in percent.
func RateShock(duration, convexity, deltaY float64) float64 {
	return (-duration*deltaY + 0.5*convexity*deltaY*deltaY) * 100
}
