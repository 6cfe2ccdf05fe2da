package engine

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// GRSResult is the Gibbons-Ross-Shanken joint test that every portfolio
// alpha in a factor model is zero.
type GRSResult struct {
	Statistic      float64 `json:"grsStatistic"`
	PValue         float64 `json:"pValue"`
	NumPortfolios  int     `json:"numPortfolios"`
	NumFactors     int     `json:"numFactors"`
	Observations   int     `json:"numObservations"`
	Interpretation string  `json:"interpretation"`
}

// GRSTest runs the joint alpha test over N excess portfolio return columns
// against K factor columns, each of length T.
//
//	GRS = (T/N) * ((T-N-K)/(N*(K+1))) * (α'Σ⁻¹α) / (1 + μf'Σf⁻¹μf)
//
// with Σ the residual covariance and (μf, Σf) the factor moments. The
// statistic follows F(N, T-N-K) under the null.
func GRSTest(portfolios [][]float64, factors [][]float64) (*GRSResult, error) {
	n := len(portfolios)
	k := len(factors)
	if n == 0 {
		return nil, errf(KindInsufficientData, "no portfolios supplied")
	}
	if k == 0 {
		return nil, errf(KindInsufficientData, "no factor series supplied")
	}
	t := len(portfolios[0])
	for _, p := range portfolios {
		if len(p) != t {
			return nil, errf(KindInsufficientData, "portfolio series lengths differ")
		}
	}
	for _, f := range factors {
		if len(f) != t {
			return nil, errf(KindInsufficientData, "factor series length differs from portfolios")
		}
	}
	if t < n+k+1 {
		return nil, errf(KindDegreesOfFreedom,
			"need at least %d observations for %d portfolios under %d factors, have %d", n+k+1, n, k, t)
	}

	alphas := make([]float64, n)
	residCols := make([][]float64, n)
	for i, p := range portfolios {
		fit, err := Regress(p, factors)
		if err != nil {
			return nil, err
		}
		alphas[i] = fit.Coef[0]
		residCols[i] = fit.Residuals
	}

	resCov, err := sampleCov(residCols, t)
	if err != nil {
		return nil, err
	}
	facCov, err := sampleCov(factors, t)
	if err != nil {
		return nil, err
	}

	muF := make([]float64, k)
	for j, f := range factors {
		muF[j] = stat.Mean(f, nil)
	}

	numerator, err := quadInverse(resCov, alphas)
	if err != nil {
		return nil, err
	}
	facQuad, err := quadInverse(facCov, muF)
	if err != nil {
		return nil, err
	}

	tf, nf, kf := float64(t), float64(n), float64(k)
	statVal := (tf / nf) * ((tf - nf - kf) / (nf * (kf + 1))) * (numerator / (1 + facQuad))

	fDist := distuv.F{D1: nf, D2: tf - nf - kf}
	pValue := fDist.Survival(statVal)

	return &GRSResult{
		Statistic:      statVal,
		PValue:         pValue,
		NumPortfolios:  n,
		NumFactors:     k,
		Observations:   t,
		Interpretation: grsInterpretation(pValue),
	}, nil
}

func grsInterpretation(p float64) string {
	switch {
	case p < 0.01:
		return "Strong evidence against the model (p < 0.01). The model fails to explain asset returns."
	case p < 0.05:
		return "Moderate evidence against the model (p < 0.05). The model has some pricing errors."
	case p < 0.10:
		return "Weak evidence against the model (p < 0.10). The model explains returns reasonably well."
	default:
		return "Model cannot be rejected (p >= 0.10). The model prices assets well."
	}
}

// sampleCov builds the Bessel-corrected covariance of column series.
func sampleCov(cols [][]float64, t int) (*mat.SymDense, error) {
	k := len(cols)
	data := mat.NewDense(t, k, nil)
	for j, c := range cols {
		for i, v := range c {
			data.Set(i, j, v)
		}
	}
	cov := mat.NewSymDense(k, nil)
	stat.CovarianceMatrix(cov, data, nil)
	return cov, nil
}

// quadInverse computes x' A⁻¹ x.
func quadInverse(a *mat.SymDense, x []float64) (float64, error) {
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return 0, errf(KindNumericalInstability, "singular matrix in joint alpha test: %v", err)
	}
	ax := matVec(&inv, x)
	return dot(x, ax), nil
}
