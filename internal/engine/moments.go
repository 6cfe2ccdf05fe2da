package engine

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"investlab/internal/logger"
)

// MomentSet holds the mean vector and Bessel-corrected sample covariance of
// an aligned return set, in the set's canonical ticker order. Statistics are
// in the returns' native frequency; annualization is the caller's concern.
type MomentSet struct {
	Tickers []string
	Mean    []float64
	Cov     *mat.SymDense
	Obs     int

	// RankDeficient is set when observations <= tickers, in which case Cov
	// cannot be inverted without regularization.
	RankDeficient bool
}

// EstimateMoments computes per-ticker arithmetic means and the sample
// covariance matrix of an aligned return set.
func EstimateMoments(ar *AlignedReturns) (*MomentSet, error) {
	k := len(ar.Tickers)
	n := len(ar.Dates)
	if k == 0 {
		return nil, errf(KindInsufficientData, "no tickers in aligned return set")
	}
	if n < 2 {
		return nil, errf(KindInsufficientData, "%d observations; need at least 2 for a covariance", n)
	}

	data := mat.NewDense(n, k, nil)
	meanVec := make([]float64, k)
	for j, t := range ar.Tickers {
		col := ar.Series[t]
		for i, v := range col {
			data.Set(i, j, v)
		}
		meanVec[j] = stat.Mean(col, nil)
	}

	cov := mat.NewSymDense(k, nil)
	stat.CovarianceMatrix(cov, data, nil)

	return &MomentSet{
		Tickers:       ar.Tickers,
		Mean:          meanVec,
		Cov:           cov,
		Obs:           n,
		RankDeficient: n <= k,
	}, nil
}

// Annualize scales the moments from their native frequency to annual terms
// (mean x periods, covariance x periods). Returns a new MomentSet.
func (m *MomentSet) Annualize(periodsPerYear float64) *MomentSet {
	k := len(m.Tickers)
	mean := make([]float64, k)
	for i, v := range m.Mean {
		mean[i] = v * periodsPerYear
	}
	cov := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			cov.SetSym(i, j, m.Cov.At(i, j)*periodsPerYear)
		}
	}
	return &MomentSet{Tickers: m.Tickers, Mean: mean, Cov: cov, Obs: m.Obs, RankDeficient: m.RankDeficient}
}

// invertCov inverts the covariance matrix, falling back to a ridge-
// regularized solve (Cov + eps*I) when the plain inversion fails. The
// fallback is logged because it changes downstream optimization answers.
// The second return reports whether regularization was applied.
func invertCov(cov *mat.SymDense, ridgeEps float64) (*mat.Dense, bool, error) {
	k := cov.SymmetricDim()

	inv := mat.NewDense(k, k, nil)
	if err := inv.Inverse(cov); err == nil {
		return inv, false, nil
	}

	logger.Warn("Moments", fmt.Sprintf("covariance singular, retrying with ridge eps=%g", ridgeEps))
	ridged := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			v := cov.At(i, j)
			if i == j {
				v += ridgeEps
			}
			ridged.SetSym(i, j, v)
		}
	}
	if err := inv.Inverse(ridged); err != nil {
		return nil, true, errf(KindNumericalInstability,
			"covariance matrix not invertible even after ridge regularization: %v", err)
	}
	return inv, true, nil
}

// Correlation returns the correlation matrix implied by the covariance.
func (m *MomentSet) Correlation() [][]float64 {
	k := len(m.Tickers)
	out := make([][]float64, k)
	for i := 0; i < k; i++ {
		out[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			denom := sqrtAt(m.Cov, i) * sqrtAt(m.Cov, j)
			if denom == 0 {
				out[i][j] = 0
				continue
			}
			out[i][j] = m.Cov.At(i, j) / denom
		}
	}
	return out
}

func sqrtAt(cov *mat.SymDense, i int) float64 {
	v := cov.At(i, i)
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}
