package engine

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// PerformanceParams selects optional inputs for the metric set.
type PerformanceParams struct {
	RF             float64
	PeriodsPerYear float64
	// Benchmark enables the relative metrics (Treynor, information ratio,
	// Jensen's alpha, M2) when non-nil.
	Benchmark []float64
	// LPMTau/LPMOrder enable the downside metric when LPMOrder > 0. Tau is
	// annual and de-annualized to the series frequency internally.
	LPMTau   float64
	LPMOrder float64
}

// PerformanceResult carries annualized headline ratios plus the raw
// distribution-shape statistics of the per-period series. Pointer fields
// are nil when their input (benchmark, LPM parameters) was absent.
type PerformanceResult struct {
	Sharpe           float64  `json:"sharpe"`
	Treynor          *float64 `json:"treynor,omitempty"`
	InformationRatio *float64 `json:"informationRatio,omitempty"`
	JensenAlpha      *float64 `json:"jensenAlpha,omitempty"`
	M2               *float64 `json:"m2,omitempty"`
	Skew             float64  `json:"skew"`
	Kurtosis         float64  `json:"kurtosis"`
	JarqueBera       float64  `json:"jb"`
	LPM              *float64 `json:"lpm,omitempty"`
}

// ComputePerformance evaluates the performance metric set on a per-period
// return series. Moment-based shape statistics use population (divide-by-n)
// estimators; the beta used by Treynor and Jensen mixes a Bessel-corrected
// covariance with a population benchmark variance, matching the usual
// numpy-style estimator pairing.
func ComputePerformance(returns []float64, p PerformanceParams) (*PerformanceResult, error) {
	n := len(returns)
	if n < 2 {
		return nil, errf(KindInsufficientData, "%d observations; need at least 2 for performance metrics", n)
	}
	if p.PeriodsPerYear <= 0 {
		p.PeriodsPerYear = 252
	}

	meanAnnual := stat.Mean(returns, nil) * p.PeriodsPerYear
	stdAnnual := populationStd(returns) * math.Sqrt(p.PeriodsPerYear)

	sharpe := 0.0
	if stdAnnual > 0 {
		sharpe = (meanAnnual - p.RF) / stdAnnual
	}

	skew, kurt := shapeMoments(returns)
	jb := float64(n) / 6 * (skew*skew + kurt*kurt/4)

	out := &PerformanceResult{
		Sharpe:     sharpe,
		Skew:       skew,
		Kurtosis:   kurt,
		JarqueBera: jb,
	}

	if len(p.Benchmark) > 0 {
		m := n
		if len(p.Benchmark) < m {
			m = len(p.Benchmark)
		}
		port := returns[:m]
		bench := p.Benchmark[:m]

		cov := stat.Covariance(port, bench, nil)
		benchVar := populationVar(bench)
		beta := 1.0
		if benchVar > 0 {
			beta = cov / benchVar
		}

		treynor := 0.0
		if beta != 0 {
			treynor = (meanAnnual - p.RF) / beta
		}
		out.Treynor = &treynor

		active := make([]float64, m)
		for i := range active {
			active[i] = port[i] - bench[i]
		}
		te := populationStd(active) * math.Sqrt(p.PeriodsPerYear)
		ir := 0.0
		if te > 0 {
			ir = stat.Mean(active, nil) * p.PeriodsPerYear / te
		}
		out.InformationRatio = &ir

		benchMean := stat.Mean(bench, nil) * p.PeriodsPerYear
		jensen := meanAnnual - (p.RF + beta*(benchMean-p.RF))
		out.JensenAlpha = &jensen

		if stdAnnual > 0 {
			benchStd := populationStd(bench) * math.Sqrt(p.PeriodsPerYear)
			m2 := p.RF + sharpe*benchStd - benchMean
			out.M2 = &m2
		}
	}

	if p.LPMOrder > 0 {
		tauPeriod := p.LPMTau / p.PeriodsPerYear
		v, err := LPM(returns, tauPeriod, p.LPMOrder)
		if err != nil {
			return nil, err
		}
		out.LPM = &v
	}

	return out, nil
}

// shapeMoments returns population skewness and excess kurtosis.
func shapeMoments(a []float64) (skew, kurt float64) {
	n := float64(len(a))
	m := stat.Mean(a, nil)
	var m2, m3, m4 float64
	for _, v := range a {
		d := v - m
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	m2 /= n
	m3 /= n
	m4 /= n
	if m2 <= 0 {
		return 0, 0
	}
	skew = m3 / math.Pow(m2, 1.5)
	kurt = m4/(m2*m2) - 3
	return skew, kurt
}

func populationVar(a []float64) float64 {
	s := populationStd(a)
	return s * s
}
