package engine

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// LPM computes the lower partial moment of order n at threshold tau:
// the mean of |min(r - tau, 0)|^n over the observations.
func LPM(returns []float64, tau, n float64) (float64, error) {
	if len(returns) == 0 {
		return 0, errf(KindInsufficientData, "empty return series")
	}
	if n <= 0 {
		return 0, errf(KindInvalidParameter, "moment order must be positive, got %g", n)
	}
	total := 0.0
	for _, r := range returns {
		short := r - tau
		if short < 0 {
			total += math.Pow(-short, n)
		}
	}
	return total / float64(len(returns)), nil
}

// LPMFrontierPoint is one portfolio on the downside-risk frontier.
type LPMFrontierPoint struct {
	TargetReturn float64            `json:"targetReturn"`
	LPM          float64            `json:"lpm"`
	Weights      map[string]float64 `json:"weights"`
}

// LPMFrontierParams mirrors the mean-variance constraints; Tau and Order
// parameterize the downside measure being minimized.
type LPMFrontierParams struct {
	Tau         float64
	Order       float64
	AllowShort  bool
	MaxWeight   float64
	CapAbsolute bool
	GridPoints  int
}

// ComputeLPMFrontier sweeps target expected returns between the lowest and
// highest asset mean, minimizing the portfolio's lower partial moment at
// each target instead of its variance. Infeasible targets are omitted.
func ComputeLPMFrontier(ctx context.Context, ar *AlignedReturns, p LPMFrontierParams) ([]LPMFrontierPoint, error) {
	k := len(ar.Tickers)
	if k == 0 {
		return nil, errf(KindInsufficientData, "no tickers in aligned return set")
	}
	if p.Order <= 0 {
		return nil, errf(KindInvalidParameter, "moment order must be positive, got %g", p.Order)
	}
	if p.GridPoints <= 0 {
		p.GridPoints = 30
	}
	if p.MaxWeight > 0 && p.MaxWeight*float64(k) < 1-1e-12 {
		return nil, errf(KindConstraintInfeasible,
			"max weight %.4f across %d assets cannot reach a fully invested portfolio", p.MaxWeight, k)
	}

	n := len(ar.Dates)
	cols := make([][]float64, k)
	means := make([]float64, k)
	for j, t := range ar.Tickers {
		cols[j] = ar.Series[t]
		means[j] = stat.Mean(cols[j], nil)
	}

	portfolio := make([]float64, n)
	objective := func(w []float64) float64 {
		for i := 0; i < n; i++ {
			acc := 0.0
			for j := 0; j < k; j++ {
				acc += w[j] * cols[j][i]
			}
			portfolio[i] = acc
		}
		v, _ := LPM(portfolio, p.Tau, p.Order)
		return v
	}

	lower, upper := weightBounds(k, FrontierParams{
		AllowShort:  p.AllowShort,
		MaxWeight:   p.MaxWeight,
		CapAbsolute: p.CapAbsolute,
	})

	lo, hi := minFloat(means), maxFloat(means)
	points := make([]LPMFrontierPoint, 0, p.GridPoints)
	for g := 0; g < p.GridPoints; g++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target := gridValue(lo, hi, g, p.GridPoints)
		w, ok := penaltySolve(ctx, objective, means, target, lower, upper)
		if !ok {
			continue
		}
		lpmVal := objective(w)
		weights := make(map[string]float64, k)
		for j, t := range ar.Tickers {
			weights[t] = w[j]
		}
		points = append(points, LPMFrontierPoint{TargetReturn: target, LPM: lpmVal, Weights: weights})
	}
	if len(points) == 0 {
		return nil, errf(KindConstraintInfeasible, "no feasible downside-frontier point under the given constraints")
	}
	sort.Slice(points, func(i, j int) bool { return points[i].TargetReturn < points[j].TargetReturn })
	return points, nil
}
