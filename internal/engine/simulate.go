package engine

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// CAPMWorldParams configures a synthetic single-factor market where every
// asset follows CAPM exactly, with known betas. Annual inputs are converted
// to monthly internally.
type CAPMWorldParams struct {
	NumAssets      int     `json:"num_assets"`
	SampleLength   int     `json:"sample_length"`
	RF             float64 `json:"rf"`
	MuMarket       float64 `json:"mu_market"`
	SigmaMarket    float64 `json:"sigma_market"`
	BetaDispersion float64 `json:"beta_dispersion"`
	IdioVolMin     float64 `json:"idio_vol_min"`
	IdioVolMax     float64 `json:"idio_vol_max"`
	Seed           int64   `json:"seed"`
}

// DefaultCAPMWorldParams mirrors the canonical teaching setup: 25 assets,
// ten years of monthly data.
func DefaultCAPMWorldParams() CAPMWorldParams {
	return CAPMWorldParams{
		NumAssets:      25,
		SampleLength:   120,
		RF:             0.02,
		MuMarket:       0.06,
		SigmaMarket:    0.16,
		BetaDispersion: 0.4,
		IdioVolMin:     0.10,
		IdioVolMax:     0.25,
		Seed:           42,
	}
}

// SimulatedAsset is one synthetic asset with the beta(s) it was generated
// under, so a regression's recovery can be checked against truth.
type SimulatedAsset struct {
	Ticker    string             `json:"ticker"`
	Returns   []float64          `json:"returns"`
	TrueBeta  float64            `json:"true_beta,omitempty"`
	TrueBetas map[string]float64 `json:"true_betas,omitempty"`
}

// CAPMWorld is a simulated single-factor economy.
type CAPMWorld struct {
	Assets    []SimulatedAsset `json:"assets"`
	Market    []float64        `json:"market"`
	RFMonthly float64          `json:"rf_monthly"`
	Dates     []string         `json:"dates"`
}

// SimulateCAPMWorld draws T monthly market returns and K assets with
// r_i = rf + beta_i*f_M + eps_i. The seed makes the draw reproducible.
func SimulateCAPMWorld(p CAPMWorldParams) (*CAPMWorld, error) {
	if p.NumAssets <= 0 || p.SampleLength <= 0 {
		return nil, errf(KindInvalidParameter,
			"num_assets and sample_length must be positive, got %d and %d", p.NumAssets, p.SampleLength)
	}
	if p.SigmaMarket <= 0 {
		return nil, errf(KindInvalidParameter, "sigma_market must be positive, got %g", p.SigmaMarket)
	}
	if p.IdioVolMin < 0 || p.IdioVolMax < p.IdioVolMin {
		return nil, errf(KindInvalidParameter,
			"idiosyncratic vol range [%g, %g] is invalid", p.IdioVolMin, p.IdioVolMax)
	}

	rng := rand.New(rand.NewSource(p.Seed))
	T, K := p.SampleLength, p.NumAssets

	rfMonthly := p.RF / 12
	muMonthly := p.MuMarket / 12
	sigmaMonthly := p.SigmaMarket / math.Sqrt(12)

	market := make([]float64, T)
	for t := range market {
		market[t] = muMonthly + sigmaMonthly*rng.NormFloat64()
	}

	assets := make([]SimulatedAsset, K)
	for i := 0; i < K; i++ {
		beta := 1 + p.BetaDispersion*rng.NormFloat64()
		idio := (p.IdioVolMin + rng.Float64()*(p.IdioVolMax-p.IdioVolMin)) / math.Sqrt(12)
		returns := make([]float64, T)
		for t := 0; t < T; t++ {
			returns[t] = rfMonthly + beta*market[t] + idio*rng.NormFloat64()
		}
		assets[i] = SimulatedAsset{
			Ticker:   fmt.Sprintf("Asset_%d", i+1),
			Returns:  returns,
			TrueBeta: beta,
		}
	}

	return &CAPMWorld{
		Assets:    assets,
		Market:    market,
		RFMonthly: rfMonthly,
		Dates:     monthEndDates(T),
	}, nil
}

// FFWorldParams configures a synthetic multi-factor economy with
// moderately correlated factors.
type FFWorldParams struct {
	NumAssets      int                `json:"num_assets"`
	SampleLength   int                `json:"sample_length"`
	RF             float64            `json:"rf"`
	FactorMeans    map[string]float64 `json:"factor_means"`
	IncludeFactors []string           `json:"include_factors"`
	Seed           int64              `json:"seed"`
}

// DefaultFFWorldParams is a three-factor world over twenty years of
// monthly data.
func DefaultFFWorldParams() FFWorldParams {
	return FFWorldParams{
		NumAssets:    25,
		SampleLength: 240,
		RF:           0.02,
		FactorMeans: map[string]float64{
			"MKT": 0.06,
			"SMB": 0.02,
			"HML": 0.03,
			"RMW": 0.02,
			"CMA": 0.02,
		},
		IncludeFactors: []string{"MKT", "SMB", "HML"},
		Seed:           43,
	}
}

// SimulatedFactor is one factor's drawn return series.
type SimulatedFactor struct {
	Name    string    `json:"name"`
	Returns []float64 `json:"returns"`
}

// FFWorld is a simulated multi-factor economy.
type FFWorld struct {
	Assets    []SimulatedAsset  `json:"assets"`
	Factors   []SimulatedFactor `json:"factors"`
	RFMonthly float64           `json:"rf_monthly"`
	Dates     []string          `json:"dates"`
}

// SimulateFFWorld draws correlated factor returns (pairwise correlation
// 0.3, MKT at 16% annual vol, other factors at 10%) and K assets loading
// on them with dispersed betas plus idiosyncratic noise.
func SimulateFFWorld(p FFWorldParams) (*FFWorld, error) {
	if p.NumAssets <= 0 || p.SampleLength <= 0 {
		return nil, errf(KindInvalidParameter,
			"num_assets and sample_length must be positive, got %d and %d", p.NumAssets, p.SampleLength)
	}
	if len(p.IncludeFactors) == 0 {
		return nil, errf(KindInvalidParameter, "include_factors must name at least one factor")
	}
	for _, name := range p.IncludeFactors {
		if _, ok := p.FactorMeans[name]; !ok {
			return nil, errf(KindInvalidParameter, "factor %q has no mean in factor_means", name)
		}
	}

	rng := rand.New(rand.NewSource(p.Seed))
	T, K := p.SampleLength, p.NumAssets
	nf := len(p.IncludeFactors)
	rfMonthly := p.RF / 12

	means := make([]float64, nf)
	vols := make([]float64, nf)
	for i, name := range p.IncludeFactors {
		means[i] = p.FactorMeans[name] / 12
		if name == "MKT" {
			vols[i] = 0.16 / math.Sqrt(12)
		} else {
			vols[i] = 0.10 / math.Sqrt(12)
		}
	}

	cov := mat.NewSymDense(nf, nil)
	for i := 0; i < nf; i++ {
		for j := i; j < nf; j++ {
			corr := 0.3
			if i == j {
				corr = 1
			}
			cov.SetSym(i, j, vols[i]*vols[j]*corr)
		}
	}

	normal, ok := distmv.NewNormal(means, cov, rng)
	if !ok {
		return nil, errf(KindNumericalInstability, "factor covariance is not positive definite")
	}

	factorDraws := make([][]float64, T)
	for t := 0; t < T; t++ {
		factorDraws[t] = normal.Rand(nil)
	}

	factors := make([]SimulatedFactor, nf)
	for j, name := range p.IncludeFactors {
		col := make([]float64, T)
		for t := 0; t < T; t++ {
			col[t] = factorDraws[t][j]
		}
		factors[j] = SimulatedFactor{Name: name, Returns: col}
	}

	idioVol := 0.05 / math.Sqrt(12)
	assets := make([]SimulatedAsset, K)
	for i := 0; i < K; i++ {
		betas := make([]float64, nf)
		betaMap := make(map[string]float64, nf)
		for j, name := range p.IncludeFactors {
			var b float64
			switch name {
			case "MKT":
				b = 1 + 0.4*rng.NormFloat64()
			case "SMB", "HML":
				b = 0.5 * rng.NormFloat64()
			default:
				b = 0.3 * rng.NormFloat64()
			}
			betas[j] = b
			betaMap[name] = b
		}

		returns := make([]float64, T)
		for t := 0; t < T; t++ {
			r := rfMonthly + idioVol*rng.NormFloat64()
			for j := 0; j < nf; j++ {
				r += betas[j] * factorDraws[t][j]
			}
			returns[t] = r
		}
		assets[i] = SimulatedAsset{Ticker: fmt.Sprintf("Asset_%d", i+1), Returns: returns, TrueBetas: betaMap}
	}

	return &FFWorld{
		Assets:    assets,
		Factors:   factors,
		RFMonthly: rfMonthly,
		Dates:     monthEndDates(T),
	}, nil
}

// monthEndDates generates T consecutive month-end dates starting with
// January 2020.
func monthEndDates(t int) []string {
	out := make([]string, t)
	cur := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < t; i++ {
		endOfMonth := cur.AddDate(0, 1, -1)
		out[i] = endOfMonth.Format("2006-01-02")
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}
