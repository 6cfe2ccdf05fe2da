package engine

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// RegressionFit is an ordinary least squares fit. With an intercept,
// Coef[0] is the intercept and Coef[1:] follow the factor order the caller
// passed in; without one, Coef aligns with the factors directly. Inference
// uses the two-sided Student-t distribution with n-p degrees of freedom,
// p the number of estimated coefficients.
type RegressionFit struct {
	Coef        []float64 `json:"coef"`
	StdErr      []float64 `json:"stdErr"`
	TStat       []float64 `json:"tStat"`
	PValue      []float64 `json:"pValue"`
	R2          float64   `json:"r2"`
	AdjR2       float64   `json:"adjR2"`
	ResidualStd float64   `json:"residualStd"`
	Obs         int       `json:"obs"`
	DF          int       `json:"df"`

	Residuals []float64 `json:"-"`
	Fitted    []float64 `json:"-"`
}

// Regress fits y = a + b1*f1 + ... + bk*fk by OLS. factors holds one slice
// per regressor, each the same length as y.
func Regress(y []float64, factors [][]float64) (*RegressionFit, error) {
	return fitOLS(y, factors, true)
}

// RegressThroughOrigin fits y = b1*f1 + ... + bk*fk with no intercept.
func RegressThroughOrigin(y []float64, factors [][]float64) (*RegressionFit, error) {
	return fitOLS(y, factors, false)
}

func fitOLS(y []float64, factors [][]float64, intercept bool) (*RegressionFit, error) {
	n := len(y)
	k := len(factors)
	if n == 0 {
		return nil, errf(KindInsufficientData, "empty dependent series")
	}
	for i, f := range factors {
		if len(f) != n {
			return nil, errf(KindInsufficientData,
				"factor %d has %d observations, dependent series has %d", i, len(f), n)
		}
	}
	p := k
	if intercept {
		p = k + 1
	}
	if p == 0 {
		return nil, errf(KindInvalidParameter, "no regressors")
	}
	df := n - p
	if df < 1 {
		if intercept {
			return nil, errf(KindInsufficientObservations,
				"%d observations cannot identify %d coefficients plus an intercept", n, k)
		}
		return nil, errf(KindInsufficientObservations,
			"%d observations cannot identify %d coefficients", n, k)
	}

	x := mat.NewDense(n, p, nil)
	off := 0
	if intercept {
		off = 1
		for i := 0; i < n; i++ {
			x.Set(i, 0, 1)
		}
	}
	for i := 0; i < n; i++ {
		for j, f := range factors {
			x.Set(i, j+off, f[i])
		}
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, errf(KindNumericalInstability, "collinear design matrix: %v", err)
	}

	yv := mat.NewVecDense(n, y)
	var xty mat.VecDense
	xty.MulVec(x.T(), yv)
	var coefVec mat.VecDense
	coefVec.MulVec(&xtxInv, &xty)

	coef := make([]float64, p)
	copy(coef, coefVec.RawVector().Data)

	fitted := make([]float64, n)
	resid := make([]float64, n)
	rss := 0.0
	for i := 0; i < n; i++ {
		f := 0.0
		for j := 0; j < p; j++ {
			f += coef[j] * x.At(i, j)
		}
		fitted[i] = f
		resid[i] = y[i] - f
		rss += resid[i] * resid[i]
	}

	yMean := stat.Mean(y, nil)
	tss := 0.0
	for _, v := range y {
		d := v - yMean
		tss += d * d
	}

	r2 := 0.0
	if tss > 0 {
		r2 = 1 - rss/tss
	}
	adjR2 := 1 - (1-r2)*float64(n-1)/float64(df)

	sigma2 := rss / float64(df)
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}

	stdErr := make([]float64, p)
	tStat := make([]float64, p)
	pValue := make([]float64, p)
	for j := 0; j < p; j++ {
		se := math.Sqrt(sigma2 * xtxInv.At(j, j))
		stdErr[j] = se
		if se > 0 {
			tStat[j] = coef[j] / se
			pValue[j] = 2 * tDist.Survival(math.Abs(tStat[j]))
		} else {
			tStat[j] = 0
			pValue[j] = 1
		}
	}

	return &RegressionFit{
		Coef:        coef,
		StdErr:      stdErr,
		TStat:       tStat,
		PValue:      pValue,
		R2:          r2,
		AdjR2:       adjR2,
		ResidualStd: populationStd(resid),
		Obs:         n,
		DF:          df,
		Residuals:   resid,
		Fitted:      fitted,
	}, nil
}

// populationStd is the uncorrected (divide-by-n) standard deviation.
func populationStd(a []float64) float64 {
	n := len(a)
	if n == 0 {
		return 0
	}
	m := stat.Mean(a, nil)
	ss := 0.0
	for _, v := range a {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n))
}
