package engine

import (
	"math"
	"testing"
)

func TestPriceBinomial_Canonical(t *testing.T) {
	// s=100, k=100, u=1.1, d=0.9, r=0.03:
	// p^Q = (1.03-0.9)/(1.1-0.9) = 0.65
	// call_up = max(110-100,0) = 10, call_down = 0
	// call = 0.65*10/1.03 ≈ 6.3107
	res, err := PriceBinomial(BinomialInput{S: 100, K: 100, U: 1.1, D: 0.9, R: 0.03})
	if err != nil {
		t.Fatalf("PriceBinomial: %v", err)
	}
	if math.Abs(res.PQ-0.65) > 1e-12 {
		t.Errorf("p_q = %v, want 0.65", res.PQ)
	}
	if res.SUp != 110 || res.SDown != 90 {
		t.Errorf("states = %v/%v, want 110/90", res.SUp, res.SDown)
	}
	if res.CallUp != 10 || res.CallDown != 0 {
		t.Errorf("payoffs = %v/%v, want 10/0", res.CallUp, res.CallDown)
	}
	want := 0.65 * 10 / 1.03
	if math.Abs(res.CallPrice-want) > 1e-12 {
		t.Errorf("call price = %v, want %v", res.CallPrice, want)
	}
	if res.Interpretation == "" {
		t.Error("interpretation must not be empty")
	}
}

func TestPriceBinomial_ProbabilityBounds(t *testing.T) {
	// Whenever d < 1+r < u holds, p^Q must land in [0,1].
	cases := []BinomialInput{
		{S: 100, K: 90, U: 1.2, D: 0.8, R: 0.05},
		{S: 50, K: 60, U: 1.01, D: 0.99, R: 0.0},
		{S: 200, K: 150, U: 2.0, D: 0.5, R: 0.10},
	}
	for _, in := range cases {
		res, err := PriceBinomial(in)
		if err != nil {
			t.Fatalf("PriceBinomial(%+v): %v", in, err)
		}
		if res.PQ < 0 || res.PQ > 1 {
			t.Errorf("p_q = %v outside [0,1] for %+v", res.PQ, in)
		}
	}
}

func TestPriceBinomial_NoArbitrageViolations(t *testing.T) {
	tests := []struct {
		name string
		in   BinomialInput
	}{
		// 1+r above u: risk-free dominates the stock.
		{"rate above up", BinomialInput{S: 100, K: 100, U: 1.05, D: 0.95, R: 0.10}},
		// 1+r below d: stock dominates the risk-free asset.
		{"rate below down", BinomialInput{S: 100, K: 100, U: 1.2, D: 1.05, R: 0.0}},
		{"u below d", BinomialInput{S: 100, K: 100, U: 0.9, D: 1.1, R: 0.03}},
		{"non-positive d", BinomialInput{S: 100, K: 100, U: 1.1, D: 0, R: 0.03}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PriceBinomial(tt.in); KindOf(err) != KindNoArbitrageViolation {
				t.Errorf("kind = %q, want %q", KindOf(err), KindNoArbitrageViolation)
			}
		})
	}
}

func TestPriceBinomial_InvalidInputs(t *testing.T) {
	if _, err := PriceBinomial(BinomialInput{S: 0, K: 100, U: 1.1, D: 0.9, R: 0.03}); KindOf(err) != KindInvalidParameter {
		t.Errorf("zero spot: kind = %q", KindOf(err))
	}
	if _, err := PriceBinomial(BinomialInput{S: 100, K: -5, U: 1.1, D: 0.9, R: 0.03}); KindOf(err) != KindInvalidParameter {
		t.Errorf("negative strike: kind = %q", KindOf(err))
	}
}

func TestRateShock(t *testing.T) {
	// Duration 5, convexity 80, dy=+100bp:
	// (-5*0.01 + 0.5*80*0.0001)*100 = (-0.05+0.004)*100 = -4.6%.
	got := RateShock(5, 80, 0.01)
	if math.Abs(got-(-4.6)) > 1e-9 {
		t.Errorf("RateShock(+100bp) = %v, want -4.6", got)
	}
	// Falling rates help: -100bp gives (0.05+0.004)*100 = +5.4%.
	got = RateShock(5, 80, -0.01)
	if math.Abs(got-5.4) > 1e-9 {
		t.Errorf("RateShock(-100bp) = %v, want 5.4", got)
	}
}
