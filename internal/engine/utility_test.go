package engine

import (
	"math"
	"testing"
)

func TestUtilityCurves_CRRA(t *testing.T) {
	curves, err := UtilityCurves(UtilityCurveParams{
		Type: UtilityCRRA, Gamma: 3, XMin: 0.5, XMax: 5, Points: 10,
	})
	if err != nil {
		t.Fatalf("UtilityCurves: %v", err)
	}
	if len(curves) != 10 {
		t.Fatalf("got %d points, want 10", len(curves))
	}
	for _, p := range curves {
		// U(x) = (x^-2 - 1)/(-2), U'(x) = x^-3, A = 3/x, R = 3.
		wantU := (math.Pow(p.X, -2) - 1) / -2
		if math.Abs(p.U-wantU) > 1e-12 {
			t.Errorf("U(%v) = %v, want %v", p.X, p.U, wantU)
		}
		if math.Abs(p.UPrime-math.Pow(p.X, -3)) > 1e-12 {
			t.Errorf("U'(%v) = %v, want x^-3", p.X, p.UPrime)
		}
		if math.Abs(p.A-3/p.X) > 1e-12 {
			t.Errorf("A(%v) = %v, want %v", p.X, p.A, 3/p.X)
		}
		if p.R != 3 {
			t.Errorf("R(%v) = %v, want constant 3", p.X, p.R)
		}
	}
}

func TestUtilityCurves_CRRALogLimit(t *testing.T) {
	// Within 1e-6 of gamma=1 the log-utility limit applies: U(x) = ln x.
	curves, err := UtilityCurves(UtilityCurveParams{
		Type: UtilityCRRA, Gamma: 1 + 1e-9, XMin: 1, XMax: 4, Points: 7,
	})
	if err != nil {
		t.Fatalf("UtilityCurves: %v", err)
	}
	for _, p := range curves {
		if math.Abs(p.U-math.Log(p.X)) > 1e-12 {
			t.Errorf("U(%v) = %v, want ln(x) = %v", p.X, p.U, math.Log(p.X))
		}
		if math.Abs(p.UPrime-1/p.X) > 1e-12 {
			t.Errorf("U'(%v) = %v, want 1/x", p.X, p.UPrime)
		}
	}

	// Just outside the limit window the power form must converge to ln(x).
	near, err := UtilityCurves(UtilityCurveParams{
		Type: UtilityCRRA, Gamma: 1.001, XMin: 2, XMax: 2, Points: 1,
	})
	if err != nil {
		t.Fatalf("UtilityCurves: %v", err)
	}
	if math.Abs(near[0].U-math.Log(2)) > 1e-3 {
		t.Errorf("U(2) at gamma=1.001 = %v, want near ln(2) = %v", near[0].U, math.Log(2))
	}
}

func TestUtilityCurves_CARAConstantA(t *testing.T) {
	b := 0.002
	curves, err := UtilityCurves(UtilityCurveParams{
		Type: UtilityCARA, B: b, XMin: 1, XMax: 1000, Points: 50,
	})
	if err != nil {
		t.Fatalf("UtilityCurves: %v", err)
	}
	for _, p := range curves {
		if math.Abs(p.A-b) > 1e-15 {
			t.Errorf("A(%v) = %v, want constant %v", p.X, p.A, b)
		}
		if math.Abs(p.R-b*p.X) > 1e-12 {
			t.Errorf("R(%v) = %v, want b*x = %v", p.X, p.R, b*p.X)
		}
		if math.Abs(p.U-(-math.Exp(-b*p.X))) > 1e-12 {
			t.Errorf("U(%v) = %v, want -exp(-bx)", p.X, p.U)
		}
	}
}

func TestUtilityCurves_DARADecreasingAversion(t *testing.T) {
	curves, err := UtilityCurves(UtilityCurveParams{
		Type: UtilityDARA, XMin: 1.5, XMax: 10, Points: 20,
	})
	if err != nil {
		t.Fatalf("UtilityCurves: %v", err)
	}
	for i := 1; i < len(curves); i++ {
		if curves[i].A >= curves[i-1].A {
			t.Errorf("A not strictly decreasing at x=%v: %v >= %v", curves[i].X, curves[i].A, curves[i-1].A)
		}
		if curves[i].R >= curves[i-1].R {
			t.Errorf("R not strictly decreasing at x=%v: %v >= %v", curves[i].X, curves[i].R, curves[i-1].R)
		}
	}
}

func TestUtilityCurves_InvalidParams(t *testing.T) {
	tests := []struct {
		name string
		p    UtilityCurveParams
	}{
		{"negative gamma", UtilityCurveParams{Type: UtilityCRRA, Gamma: -1, XMin: 1, XMax: 2}},
		{"zero b", UtilityCurveParams{Type: UtilityCARA, B: 0, XMin: 1, XMax: 2}},
		{"non-positive wealth", UtilityCurveParams{Type: UtilityCRRA, Gamma: 2, XMin: -1, XMax: 2}},
		{"inverted grid", UtilityCurveParams{Type: UtilityCRRA, Gamma: 2, XMin: 5, XMax: 1}},
		{"unknown type", UtilityCurveParams{Type: "quadratic", XMin: 1, XMax: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UtilityCurves(tt.p); KindOf(err) != KindInvalidParameter {
				t.Errorf("kind = %q, want %q", KindOf(err), KindInvalidParameter)
			}
		})
	}
}

func TestSDFCurve_CRRAPowerForm(t *testing.T) {
	res, err := SDFCurve(SDFParams{Type: UtilityCRRA, Gamma: 3, Beta: 1, Points: 21})
	if err != nil {
		t.Fatalf("SDFCurve: %v", err)
	}
	if len(res.Points) != 21 {
		t.Fatalf("got %d points, want 21", len(res.Points))
	}
	// With beta=1 the CRRA SDF is exactly the power form (1+dc)^(-gamma).
	for _, p := range res.Points {
		want := math.Pow(1+p.DeltaC, -3)
		if math.Abs(p.M-want) > 1e-12 {
			t.Errorf("m(%v) = %v, want %v", p.DeltaC, p.M, want)
		}
	}
	// Grid spans [-0.10, 0.10] inclusive.
	if res.Points[0].DeltaC != -0.10 || res.Points[20].DeltaC != 0.10 {
		t.Errorf("grid ends = %v..%v, want -0.10..0.10", res.Points[0].DeltaC, res.Points[20].DeltaC)
	}
}

func TestSDFCurve_CAPMAffine(t *testing.T) {
	res, err := SDFCurve(SDFParams{Type: SDFCAPM, Beta: 0.99, Points: 11})
	if err != nil {
		t.Fatalf("SDFCurve: %v", err)
	}
	for _, p := range res.Points {
		want := 1 - 3*p.DeltaC
		if math.Abs(p.M-want) > 1e-12 {
			t.Errorf("capm m(%v) = %v, want %v", p.DeltaC, p.M, want)
		}
	}
}

func TestSDFCurve_InvalidParams(t *testing.T) {
	if _, err := SDFCurve(SDFParams{Type: UtilityCRRA, Gamma: 0, Beta: 0.99}); KindOf(err) != KindInvalidParameter {
		t.Errorf("gamma 0: kind = %q", KindOf(err))
	}
	if _, err := SDFCurve(SDFParams{Type: UtilityCARA, B: -0.1, Beta: 0.99}); KindOf(err) != KindInvalidParameter {
		t.Errorf("negative b: kind = %q", KindOf(err))
	}
	if _, err := SDFCurve(SDFParams{Type: UtilityCRRA, Gamma: 3, Beta: 0}); KindOf(err) != KindInvalidParameter {
		t.Errorf("beta 0: kind = %q", KindOf(err))
	}
	if _, err := SDFCurve(SDFParams{Type: UtilityDARA, Beta: 0.99}); KindOf(err) != KindInvalidParameter {
		t.Errorf("dara sdf: kind = %q", KindOf(err))
	}
}
