package engine

import (
	"fmt"
	"math"
)

// UtilityType names a utility specification.
type UtilityType string

const (
	UtilityCRRA UtilityType = "CRRA"
	UtilityCARA UtilityType = "CARA"
	UtilityDARA UtilityType = "DARA"
	// SDFCAPM is the linear-SDF specification, valid for the SDF grid only.
	SDFCAPM UtilityType = "CAPM"
)

// UtilityCurvePoint samples a utility function at one wealth level:
// the utility U, marginal utility U', absolute risk aversion A = -U''/U'
// and relative risk aversion R = x*A.
type UtilityCurvePoint struct {
	X      float64 `json:"x"`
	U      float64 `json:"U"`
	UPrime float64 `json:"U_prime"`
	A      float64 `json:"A"`
	R      float64 `json:"R"`
}

// UtilityCurveParams is the wealth grid and risk-aversion settings.
type UtilityCurveParams struct {
	Type   UtilityType
	Gamma  float64 // CRRA curvature
	B      float64 // CARA curvature
	XMin   float64
	XMax   float64
	Points int
}

// UtilityCurves evaluates a utility specification over a positive wealth
// grid. CRRA uses the log-utility limit when gamma is within 1e-6 of 1.
func UtilityCurves(p UtilityCurveParams) ([]UtilityCurvePoint, error) {
	if p.Points <= 0 {
		p.Points = 100
	}
	if p.XMin <= 0 || p.XMax <= 0 {
		return nil, errf(KindInvalidParameter, "wealth grid must be positive (got [%g, %g])", p.XMin, p.XMax)
	}
	if p.XMax < p.XMin {
		return nil, errf(KindInvalidParameter, "x_max %g below x_min %g", p.XMax, p.XMin)
	}

	switch p.Type {
	case UtilityCRRA:
		if p.Gamma <= 0 {
			return nil, errf(KindInvalidParameter, "gamma must be positive, got %g", p.Gamma)
		}
	case UtilityCARA:
		if p.B <= 0 {
			return nil, errf(KindInvalidParameter, "b must be positive, got %g", p.B)
		}
	case UtilityDARA:
	default:
		return nil, errf(KindInvalidParameter, "unknown utility type %q", p.Type)
	}

	out := make([]UtilityCurvePoint, 0, p.Points)
	for i := 0; i < p.Points; i++ {
		x := gridValue(p.XMin, p.XMax, i, p.Points)
		if x <= 0 {
			continue
		}
		var pt UtilityCurvePoint
		pt.X = x
		switch p.Type {
		case UtilityCRRA:
			if math.Abs(p.Gamma-1) < 1e-6 {
				pt.U = math.Log(x)
				pt.UPrime = 1 / x
			} else {
				pt.U = (math.Pow(x, 1-p.Gamma) - 1) / (1 - p.Gamma)
				pt.UPrime = math.Pow(x, -p.Gamma)
			}
			pt.A = p.Gamma / x
			pt.R = p.Gamma
		case UtilityCARA:
			pt.U = -math.Exp(-p.B * x)
			pt.UPrime = p.B * math.Exp(-p.B*x)
			pt.A = p.B
			pt.R = p.B * x
		case UtilityDARA:
			lx := math.Log(x)
			pt.U = lx - 0.5*math.Log(1+lx*lx)
			pt.UPrime = 1 / (x * (1 + lx*lx))
			pt.A = 1 / (x * (1 + lx))
			pt.R = 1 / (1 + lx)
		}
		out = append(out, pt)
	}
	return out, nil
}

// SDFPoint is one sample of a stochastic discount factor over a
// consumption-growth grid.
type SDFPoint struct {
	DeltaC float64 `json:"delta_c"`
	M      float64 `json:"m"`
}

// SDFParams selects the SDF specification. Beta is the subjective discount
// factor; Gamma and B are the CRRA/CARA curvatures.
type SDFParams struct {
	Type   UtilityType
	Gamma  float64
	B      float64
	Beta   float64
	Points int
}

// SDFResult carries the sampled SDF and a reading of its shape.
type SDFResult struct {
	Points         []SDFPoint `json:"sdf_points"`
	Interpretation string     `json:"interpretation"`
}

// SDFCurve samples the stochastic discount factor over consumption growth
// in [-10%, +10%]. CRRA gives m = beta*g^(-gamma); CARA an exponential in
// the growth rate; CAPM the affine first-order approximation.
func SDFCurve(p SDFParams) (*SDFResult, error) {
	if p.Points <= 0 {
		p.Points = 100
	}
	if p.Beta <= 0 {
		return nil, errf(KindInvalidParameter, "discount factor beta must be positive, got %g", p.Beta)
	}

	var (
		eval           func(dc float64) float64
		interpretation string
	)
	switch p.Type {
	case UtilityCRRA:
		if p.Gamma <= 0 {
			return nil, errf(KindInvalidParameter, "gamma must be positive, got %g", p.Gamma)
		}
		eval = func(dc float64) float64 { return p.Beta * math.Pow(1+dc, -p.Gamma) }
		interpretation = fmt.Sprintf(
			"CRRA SDF with γ=%.2f: Higher consumption growth reduces SDF (states with high consumption are less valuable). The convex shape shows risk aversion - downside states get exponentially higher weights.",
			p.Gamma)
	case UtilityCARA:
		if p.B <= 0 {
			return nil, errf(KindInvalidParameter, "b must be positive, got %g", p.B)
		}
		// Growth is scaled to percentage points so the curvature is visible
		// at typical b values.
		eval = func(dc float64) float64 { return p.Beta * math.Exp(-p.B*dc*100) }
		interpretation = fmt.Sprintf(
			"CARA SDF with b=%.4f: Exponentially declining with consumption growth. Constant absolute risk aversion means SDF slope is independent of wealth level.",
			p.B)
	case SDFCAPM:
		eval = func(dc float64) float64 { return 1 - 3*dc }
		interpretation = "CAPM linear SDF: Simplified affine form m = a + b*R_m. This is a first-order approximation to CRRA. The linear relationship makes asset pricing tractable but misses higher-order risk aversion effects."
	default:
		return nil, errf(KindInvalidParameter, "unknown SDF type %q", p.Type)
	}

	points := make([]SDFPoint, p.Points)
	for i := 0; i < p.Points; i++ {
		dc := gridValue(-0.10, 0.10, i, p.Points)
		points[i] = SDFPoint{DeltaC: dc, M: eval(dc)}
	}
	return &SDFResult{Points: points, Interpretation: interpretation}, nil
}
