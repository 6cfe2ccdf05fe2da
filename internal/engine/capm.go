package engine

import (
	"gonum.org/v1/gonum/stat"
)

// CAPMResult is a single-asset CAPM fit against a market series, with
// per-period inference and annualized headline numbers.
type CAPMResult struct {
	Beta  float64 `json:"beta"`
	Alpha float64 `json:"alpha"` // per-period intercept
	// AlphaAnnual scales the intercept to annual terms.
	AlphaAnnual float64 `json:"alphaAnnual"`

	BetaStdErr float64 `json:"betaStdErr"`
	BetaT      float64 `json:"betaT"`
	BetaP      float64 `json:"betaP"`
	AlphaT     float64 `json:"alphaT"`
	AlphaP     float64 `json:"alphaP"`

	R2          float64 `json:"r2"`
	AdjR2       float64 `json:"adjR2"`
	ResidualStd float64 `json:"residualStd"`
	Obs         int     `json:"obs"`

	// ExpectedReturn is the annualized SML prediction rf + beta*(E[Rm]-rf).
	ExpectedReturn float64 `json:"expectedReturn"`
	// MarketPremium is the annualized mean excess market return.
	MarketPremium float64 `json:"marketPremium"`

	SML []SMLPoint `json:"sml"`
}

// SMLPoint samples the security market line in (beta, expected return) space.
type SMLPoint struct {
	Beta           float64 `json:"beta"`
	ExpectedReturn float64 `json:"expectedReturn"`
}

// CAPMRegression regresses an asset's excess returns on the market's excess
// returns. rfAnnual is de-annualized to the series frequency before the
// excess returns are formed; alpha and the SML come back annualized.
func CAPMRegression(asset, market []float64, rfAnnual, periodsPerYear float64, smlPoints int) (*CAPMResult, error) {
	if len(asset) != len(market) {
		return nil, errf(KindInsufficientData,
			"asset series has %d observations, market has %d", len(asset), len(market))
	}
	if smlPoints <= 0 {
		smlPoints = 50
	}

	rfPeriod := rfAnnual / periodsPerYear
	exAsset := make([]float64, len(asset))
	exMarket := make([]float64, len(market))
	for i := range asset {
		exAsset[i] = asset[i] - rfPeriod
		exMarket[i] = market[i] - rfPeriod
	}

	fit, err := Regress(exAsset, [][]float64{exMarket})
	if err != nil {
		return nil, err
	}

	beta := fit.Coef[1]
	premium := stat.Mean(exMarket, nil) * periodsPerYear
	expected := rfAnnual + beta*premium

	sml := make([]SMLPoint, smlPoints)
	maxBeta := 2.0
	if beta > maxBeta {
		maxBeta = beta * 1.25
	}
	for i := 0; i < smlPoints; i++ {
		b := gridValue(0, maxBeta, i, smlPoints)
		sml[i] = SMLPoint{Beta: b, ExpectedReturn: rfAnnual + b*premium}
	}

	return &CAPMResult{
		Beta:           beta,
		Alpha:          fit.Coef[0],
		AlphaAnnual:    fit.Coef[0] * periodsPerYear,
		BetaStdErr:     fit.StdErr[1],
		BetaT:          fit.TStat[1],
		BetaP:          fit.PValue[1],
		AlphaT:         fit.TStat[0],
		AlphaP:         fit.PValue[0],
		R2:             fit.R2,
		AdjR2:          fit.AdjR2,
		ResidualStd:    fit.ResidualStd,
		Obs:            fit.Obs,
		ExpectedReturn: expected,
		MarketPremium:  premium,
		SML:            sml,
	}, nil
}

// FactorFit is a multi-factor OLS fit of one asset's excess returns,
// reported per named factor.
type FactorFit struct {
	Alpha       float64            `json:"alpha"`
	AlphaAnnual float64            `json:"alphaAnnual"`
	AlphaT      float64            `json:"alphaT"`
	AlphaP      float64            `json:"alphaP"`
	Betas       map[string]float64 `json:"betas"`
	BetaT       map[string]float64 `json:"betaT"`
	BetaP       map[string]float64 `json:"betaP"`
	R2          float64            `json:"r2"`
	AdjR2       float64            `json:"adjR2"`
	ResidualStd float64            `json:"residualStd"`
	Obs         int                `json:"obs"`

	fit *RegressionFit
}

// Residuals exposes the underlying fit residuals (used by the GRS test).
func (f *FactorFit) Residuals() []float64 { return f.fit.Residuals }

// FactorRegression fits excess returns on a named factor set. The factor
// columns must already be in excess form where the model demands it (the
// market factor); excess conversion of the asset series is the caller's
// choice via rfPeriod.
func FactorRegression(asset []float64, factorNames []string, factorCols [][]float64, rfPeriod, periodsPerYear float64) (*FactorFit, error) {
	ex := make([]float64, len(asset))
	for i, v := range asset {
		ex[i] = v - rfPeriod
	}
	fit, err := Regress(ex, factorCols)
	if err != nil {
		return nil, err
	}

	betas := make(map[string]float64, len(factorNames))
	betaT := make(map[string]float64, len(factorNames))
	betaP := make(map[string]float64, len(factorNames))
	for i, name := range factorNames {
		betas[name] = fit.Coef[i+1]
		betaT[name] = fit.TStat[i+1]
		betaP[name] = fit.PValue[i+1]
	}

	return &FactorFit{
		Alpha:       fit.Coef[0],
		AlphaAnnual: fit.Coef[0] * periodsPerYear,
		AlphaT:      fit.TStat[0],
		AlphaP:      fit.PValue[0],
		Betas:       betas,
		BetaT:       betaT,
		BetaP:       betaP,
		R2:          fit.R2,
		AdjR2:       fit.AdjR2,
		ResidualStd: fit.ResidualStd,
		Obs:         fit.Obs,
		fit:         fit,
	}, nil
}
