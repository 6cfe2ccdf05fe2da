package engine

import (
	"math/rand"
	"testing"
)

func grsWorld(seed int64, n, k, t int, alpha float64) (portfolios, factors [][]float64) {
	rng := rand.New(rand.NewSource(seed))
	factors = make([][]float64, k)
	for j := range factors {
		factors[j] = make([]float64, t)
		for i := 0; i < t; i++ {
			factors[j][i] = 0.005 + 0.04*rng.NormFloat64()
		}
	}
	portfolios = make([][]float64, n)
	for p := range portfolios {
		beta := 0.5 + rng.Float64()
		portfolios[p] = make([]float64, t)
		for i := 0; i < t; i++ {
			r := alpha
			for j := range factors {
				r += beta * factors[j][i]
			}
			portfolios[p][i] = r + 0.02*rng.NormFloat64()
		}
	}
	return portfolios, factors
}

func TestGRSTest_ZeroAlphasNotRejected(t *testing.T) {
	// Alphas are exactly zero by construction; across seeds the test should
	// reject at 5% no more often than its nominal size allows. With 8
	// trials, seeing a majority of rejections would indicate a broken
	// statistic.
	rejections := 0
	trials := 8
	for s := 0; s < trials; s++ {
		ports, facs := grsWorld(int64(100+s), 5, 1, 120, 0)
		res, err := GRSTest(ports, facs)
		if err != nil {
			t.Fatalf("GRSTest seed %d: %v", s, err)
		}
		if res.PValue < 0.05 {
			rejections++
		}
		if res.NumPortfolios != 5 || res.NumFactors != 1 || res.Observations != 120 {
			t.Errorf("dimensions = %d/%d/%d, want 5/1/120", res.NumPortfolios, res.NumFactors, res.Observations)
		}
	}
	if rejections > trials/2 {
		t.Errorf("zero-alpha worlds rejected %d/%d times at 5%%", rejections, trials)
	}
}

func TestGRSTest_LargeAlphasRejected(t *testing.T) {
	// A 2% per-period alpha on every portfolio is enormous relative to the
	// 2% idiosyncratic noise; the joint test must reject decisively.
	ports, facs := grsWorld(42, 5, 1, 120, 0.02)
	res, err := GRSTest(ports, facs)
	if err != nil {
		t.Fatalf("GRSTest: %v", err)
	}
	if res.PValue > 0.01 {
		t.Errorf("p-value = %v, want < 0.01 for large alphas", res.PValue)
	}
	if res.Interpretation == "" {
		t.Error("interpretation must not be empty")
	}
}

func TestGRSTest_InterpretationBands(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0.005, "Strong evidence against the model (p < 0.01). The model fails to explain asset returns."},
		{0.03, "Moderate evidence against the model (p < 0.05). The model has some pricing errors."},
		{0.07, "Weak evidence against the model (p < 0.10). The model explains returns reasonably well."},
		{0.5, "Model cannot be rejected (p >= 0.10). The model prices assets well."},
	}
	for _, tt := range tests {
		if got := grsInterpretation(tt.p); got != tt.want {
			t.Errorf("grsInterpretation(%v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestGRSTest_DegreesOfFreedom(t *testing.T) {
	// N=5 portfolios, K=1 factor needs T >= 7; give 6.
	ports, facs := grsWorld(9, 5, 1, 6, 0)
	_, err := GRSTest(ports, facs)
	if KindOf(err) != KindDegreesOfFreedom {
		t.Errorf("T < N+K+1: kind = %q, want %q", KindOf(err), KindDegreesOfFreedom)
	}
}

func TestGRSTest_EmptyInputs(t *testing.T) {
	if _, err := GRSTest(nil, [][]float64{{1}}); KindOf(err) != KindInsufficientData {
		t.Errorf("no portfolios: kind = %q", KindOf(err))
	}
	if _, err := GRSTest([][]float64{{1}}, nil); KindOf(err) != KindInsufficientData {
		t.Errorf("no factors: kind = %q", KindOf(err))
	}
}
