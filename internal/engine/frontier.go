package engine

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// FrontierPoint is one efficient-frontier portfolio.
type FrontierPoint struct {
	Risk    float64            `json:"risk"`
	Return  float64            `json:"return"`
	Weights map[string]float64 `json:"weights"`
}

// TangencyPortfolio is the frontier portfolio with the highest Sharpe ratio.
type TangencyPortfolio struct {
	Risk    float64            `json:"risk"`
	Return  float64            `json:"return"`
	Sharpe  float64            `json:"sharpe"`
	Weights map[string]float64 `json:"weights"`
}

// CMLPoint is one sample of the capital market line.
type CMLPoint struct {
	Risk   float64 `json:"risk"`
	Return float64 `json:"return"`
}

// FrontierResult is the full mean-variance optimization answer.
type FrontierResult struct {
	Frontier []FrontierPoint    `json:"frontier"`
	Tangency *TangencyPortfolio `json:"tangency"`
	CML      []CMLPoint         `json:"cml"`
	// Regularized reports that the covariance needed a ridge fallback,
	// which changes the optimization answer.
	Regularized bool `json:"regularized,omitempty"`
}

// FrontierParams selects the solve path and its constraints.
type FrontierParams struct {
	RF         float64
	AllowShort bool
	// MaxWeight caps each asset's weight; 0 disables the cap.
	MaxWeight float64
	// CapAbsolute applies MaxWeight to |w| (shorts down to -cap) instead of
	// long exposure only.
	CapAbsolute bool
	GridPoints  int
	CMLPoints   int
	RidgeEps    float64
}

const (
	weightSumTol = 1e-4
	penaltyW     = 1e4
)

// ComputeFrontier builds the efficient frontier, tangency portfolio and CML
// for a MomentSet. Constrained requests (no shorting and/or a weight cap)
// use a numerical per-target solve; otherwise the closed-form two-constraint
// Lagrangian applies. Infeasible grid points are omitted, never fatal;
// a globally infeasible constraint set is.
func ComputeFrontier(ctx context.Context, m *MomentSet, p FrontierParams) (*FrontierResult, error) {
	k := len(m.Tickers)
	if k == 0 {
		return nil, errf(KindInsufficientData, "no assets in moment set")
	}
	if p.GridPoints <= 0 {
		p.GridPoints = 30
	}
	if p.CMLPoints <= 0 {
		p.CMLPoints = 50
	}
	if p.RidgeEps <= 0 {
		p.RidgeEps = 1e-8
	}

	if p.MaxWeight > 0 && p.MaxWeight*float64(k) < 1-1e-12 {
		return nil, errf(KindConstraintInfeasible,
			"max weight %.4f across %d assets cannot reach a fully invested portfolio", p.MaxWeight, k)
	}

	if k == 1 {
		return singleAssetFrontier(m, p), nil
	}

	constrained := !p.AllowShort || p.MaxWeight > 0

	var (
		frontier    []FrontierPoint
		regularized bool
		err         error
	)
	if constrained {
		frontier, err = constrainedFrontier(ctx, m, p)
	} else {
		frontier, regularized, err = closedFormFrontier(ctx, m, p)
	}
	if err != nil {
		return nil, err
	}
	if len(frontier) == 0 {
		return nil, errf(KindConstraintInfeasible, "no feasible frontier point under the given constraints")
	}

	sort.Slice(frontier, func(i, j int) bool { return frontier[i].Risk < frontier[j].Risk })

	tangency := pickTangency(frontier, p.RF)
	cml := buildCML(frontier, tangency, p.RF, p.CMLPoints)

	return &FrontierResult{
		Frontier:    frontier,
		Tangency:    tangency,
		CML:         cml,
		Regularized: regularized,
	}, nil
}

func singleAssetFrontier(m *MomentSet, p FrontierParams) *FrontierResult {
	t := m.Tickers[0]
	risk := math.Sqrt(math.Max(m.Cov.At(0, 0), 0))
	ret := m.Mean[0]
	point := FrontierPoint{Risk: risk, Return: ret, Weights: map[string]float64{t: 1}}

	sharpe := 0.0
	if risk > 0 {
		sharpe = (ret - p.RF) / risk
	}
	tan := &TangencyPortfolio{Risk: risk, Return: ret, Sharpe: sharpe, Weights: point.Weights}
	return &FrontierResult{
		Frontier: []FrontierPoint{point},
		Tangency: tan,
		CML:      buildCML([]FrontierPoint{point}, tan, p.RF, p.CMLPoints),
	}
}

// closedFormFrontier evaluates the two-constraint Lagrangian solution on a
// target-return grid from the global-minimum-variance return up to the
// highest single-asset mean.
func closedFormFrontier(ctx context.Context, m *MomentSet, p FrontierParams) ([]FrontierPoint, bool, error) {
	k := len(m.Tickers)
	inv, regularized, err := invertCov(m.Cov, p.RidgeEps)
	if err != nil {
		return nil, regularized, err
	}

	ones := make([]float64, k)
	for i := range ones {
		ones[i] = 1
	}
	sigInvOnes := matVec(inv, ones)
	sigInvMu := matVec(inv, m.Mean)

	A := dot(ones, sigInvOnes)
	B := dot(ones, sigInvMu)
	C := dot(m.Mean, sigInvMu)
	D := A*C - B*B

	if A <= 0 {
		return nil, regularized, errf(KindNumericalInstability, "ill-conditioned covariance: 1'Σ⁻¹1 = %g", A)
	}

	gmvRet := B / A
	if D < 1e-18 {
		// Degenerate frontier (e.g. identical means): only the GMV portfolio.
		w := scale(sigInvOnes, 1/A)
		return []FrontierPoint{frontierPointAt(m, w, gmvRet)}, regularized, nil
	}

	lo, hi := gmvRet, maxFloat(m.Mean)
	if hi < lo {
		lo, hi = hi, lo
	}

	points := make([]FrontierPoint, 0, p.GridPoints)
	for g := 0; g < p.GridPoints; g++ {
		if err := ctx.Err(); err != nil {
			return nil, regularized, err
		}
		target := gridValue(lo, hi, g, p.GridPoints)
		lambda := (C - B*target) / D
		gamma := (A*target - B) / D
		w := make([]float64, k)
		for i := 0; i < k; i++ {
			w[i] = lambda*sigInvOnes[i] + gamma*sigInvMu[i]
		}
		points = append(points, frontierPointAt(m, w, target))
	}
	return points, regularized, nil
}

// constrainedFrontier solves each target-return grid point as an
// independent box-constrained quadratic minimization. Infeasible targets
// are skipped.
func constrainedFrontier(ctx context.Context, m *MomentSet, p FrontierParams) ([]FrontierPoint, error) {
	k := len(m.Tickers)
	lower, upper := weightBounds(k, p)

	varObj := func(w []float64) float64 {
		return quadForm(m.Cov, w)
	}

	// GMV first: it anchors the bottom of the target grid.
	gmv, ok := penaltySolve(ctx, varObj, nil, 0, lower, upper)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lo := minFloat(m.Mean)
	if ok {
		lo = dot(gmv, m.Mean)
	}
	hi := maxTargetUnderCap(m.Mean, upper)
	if hi < lo {
		lo, hi = hi, lo
	}

	points := make([]FrontierPoint, 0, p.GridPoints)
	for g := 0; g < p.GridPoints; g++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target := gridValue(lo, hi, g, p.GridPoints)
		w, ok := penaltySolve(ctx, varObj, m.Mean, target, lower, upper)
		if !ok {
			continue // infeasible at this target; omit, not fatal
		}
		points = append(points, frontierPointAt(m, w, dot(w, m.Mean)))
	}
	return points, nil
}

// weightBounds derives the per-asset box from the short-sale flag and cap.
func weightBounds(k int, p FrontierParams) (lower, upper []float64) {
	lo, hi := 0.0, 1.0
	if p.AllowShort {
		lo = -1
		if p.MaxWeight > 0 && p.CapAbsolute {
			lo = -p.MaxWeight
		}
	}
	if p.MaxWeight > 0 {
		hi = p.MaxWeight
	}
	lower = make([]float64, k)
	upper = make([]float64, k)
	for i := 0; i < k; i++ {
		lower[i] = lo
		upper[i] = hi
	}
	return lower, upper
}

// maxTargetUnderCap is the highest expected return reachable by a fully
// invested long portfolio under per-asset upper bounds: fill the best
// assets to their bound until the budget is spent.
func maxTargetUnderCap(mean, upper []float64) float64 {
	type asset struct{ mu, cap float64 }
	assets := make([]asset, len(mean))
	for i := range mean {
		assets[i] = asset{mean[i], upper[i]}
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].mu > assets[j].mu })

	budget := 1.0
	total := 0.0
	for _, a := range assets {
		w := math.Min(a.cap, budget)
		total += w * a.mu
		budget -= w
		if budget <= 0 {
			break
		}
	}
	return total
}

// penaltySolve minimizes objective(w) subject to Σw=1, optionally w'μ=target
// (when mean is non-nil), and the box [lower, upper], via projection plus
// quadratic penalties. Returns ok=false when the solve does not reach a
// feasible point.
func penaltySolve(ctx context.Context, objective func([]float64) float64, mean []float64, target float64, lower, upper []float64) ([]float64, bool) {
	n := len(lower)
	project := func(x []float64) []float64 {
		out := make([]float64, n)
		for i := range x {
			out[i] = math.Max(lower[i], math.Min(upper[i], x[i]))
		}
		return out
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w := project(x)
			obj := objective(w)
			sum := 0.0
			for _, v := range w {
				sum += v
			}
			obj += penaltyW * (sum - 1) * (sum - 1)
			if mean != nil {
				ret := dot(w, mean)
				obj += penaltyW * (ret - target) * (ret - target)
			}
			return obj
		},
	}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1 / float64(n)
	}

	okStatus := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
		optimize.FunctionThreshold:   true,
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err != nil || !okStatus[result.Status] {
		if ctx.Err() != nil {
			return nil, false
		}
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
		if err != nil || !okStatus[result.Status] {
			return nil, false
		}
	}

	w := project(result.X)
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if math.Abs(sum-1) > weightSumTol {
		return nil, false
	}
	// Renormalize the projection residue, then re-check the box.
	for i := range w {
		w[i] /= sum
		if w[i] < lower[i]-1e-6 || w[i] > upper[i]+1e-6 {
			return nil, false
		}
	}
	if mean != nil {
		ret := dot(w, mean)
		tol := math.Max(1e-6, 1e-3*math.Abs(target))
		if math.Abs(ret-target) > tol {
			return nil, false
		}
	}
	return w, true
}

func pickTangency(frontier []FrontierPoint, rf float64) *TangencyPortfolio {
	best := -1
	bestSharpe := math.Inf(-1)
	for i, fp := range frontier {
		if fp.Risk <= 0 {
			continue
		}
		s := (fp.Return - rf) / fp.Risk
		// Ties break toward lower risk; frontier is already risk-ascending.
		if s > bestSharpe+1e-12 {
			best = i
			bestSharpe = s
		}
	}
	if best < 0 {
		best = 0
		fp := frontier[0]
		if fp.Risk > 0 {
			bestSharpe = (fp.Return - rf) / fp.Risk
		} else {
			bestSharpe = 0
		}
	}
	fp := frontier[best]
	return &TangencyPortfolio{Risk: fp.Risk, Return: fp.Return, Sharpe: bestSharpe, Weights: fp.Weights}
}

func buildCML(frontier []FrontierPoint, tan *TangencyPortfolio, rf float64, points int) []CMLPoint {
	maxRisk := tan.Risk * 2
	for _, fp := range frontier {
		if fp.Risk > maxRisk {
			maxRisk = fp.Risk
		}
	}
	slope := 0.0
	if tan.Risk > 0 {
		slope = (tan.Return - rf) / tan.Risk
	}
	out := make([]CMLPoint, points)
	for i := 0; i < points; i++ {
		risk := gridValue(0, maxRisk, i, points)
		out[i] = CMLPoint{Risk: risk, Return: rf + slope*risk}
	}
	return out
}

func frontierPointAt(m *MomentSet, w []float64, ret float64) FrontierPoint {
	weights := make(map[string]float64, len(w))
	for i, t := range m.Tickers {
		weights[t] = w[i]
	}
	return FrontierPoint{
		Risk:    math.Sqrt(math.Max(quadForm(m.Cov, w), 0)),
		Return:  ret,
		Weights: weights,
	}
}

// --- small vector helpers ---

func matVec(a *mat.Dense, x []float64) []float64 {
	r, _ := a.Dims()
	out := make([]float64, r)
	v := mat.NewVecDense(len(x), x)
	res := mat.NewVecDense(r, out)
	res.MulVec(a, v)
	return out
}

func quadForm(cov *mat.SymDense, w []float64) float64 {
	var total float64
	k := len(w)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			total += w[i] * w[j] * cov.At(i, j)
		}
	}
	return total
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func scale(a []float64, c float64) []float64 {
	out := make([]float64, len(a))
	for i, v := range a {
		out[i] = v * c
	}
	return out
}

func maxFloat(a []float64) float64 {
	m := a[0]
	for _, v := range a[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minFloat(a []float64) float64 {
	m := a[0]
	for _, v := range a[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// gridValue returns the i-th of n evenly spaced samples on [lo, hi],
// inclusive of both ends.
func gridValue(lo, hi float64, i, n int) float64 {
	if n <= 1 {
		return lo
	}
	return lo + (hi-lo)*float64(i)/float64(n-1)
}
