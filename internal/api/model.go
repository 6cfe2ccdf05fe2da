package api

import (
	"fmt"
	"math"
	"net/http"
	"sort"

	"gonum.org/v1/gonum/stat"

	"investlab/internal/engine"
)

type capmRequest struct {
	Tickers      []string `json:"tickers"`
	MarketTicker string   `json:"market_ticker"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Interval     string   `json:"interval"`
	ReturnType   string   `json:"return_type"`
	RF           *float64 `json:"rf"`
}

// handleCAPM fits each requested asset against the market proxy and builds
// one security market line over the fitted betas. Assets with too short an
// overlapping history are skipped, not fatal.
func (s *Server) handleCAPM(w http.ResponseWriter, r *http.Request) {
	var req capmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	market := req.MarketTicker
	if market == "" {
		market = "^GSPC"
	}
	if req.Interval == "" {
		req.Interval = "1wk"
	}

	all := append([]string{}, req.Tickers...)
	all = append(all, market)
	series, interval := s.resolveSeries(w, pricesRequest{
		Tickers:   all,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Interval:  req.Interval,
	})
	if series == nil {
		return
	}
	rf := s.rfOrDefault(req.RF)
	ppy := interval.PeriodsPerYear()
	logReturns := req.ReturnType == "log"

	results := make(map[string]*engine.CAPMResult)
	skipped := []string{}
	minBeta, maxBeta := math.Inf(1), math.Inf(-1)
	for _, t := range req.Tickers {
		if t == market {
			continue
		}
		pair, err := engine.BuildAlignedReturns(map[string][]engine.PricePoint{
			t:      series[t],
			market: series[market],
		}, engine.Daily, logReturns) // already resampled; no second pass
		if err != nil || len(pair.Dates) < 10 {
			skipped = append(skipped, t)
			continue
		}
		res, err := engine.CAPMRegression(pair.Series[t], pair.Series[market], rf, ppy, s.cfg.SMLPoints)
		if err != nil {
			skipped = append(skipped, t)
			continue
		}
		res.SML = nil // one endpoint-level SML below instead of per asset
		results[t] = res
		minBeta = math.Min(minBeta, res.Beta)
		maxBeta = math.Max(maxBeta, res.Beta)
	}
	if len(results) == 0 {
		writeEngineError(w, &engine.Error{
			Kind:    engine.KindInsufficientData,
			Message: fmt.Sprintf("no asset had 10 overlapping observations with %s", market),
		})
		return
	}

	mktAligned, err := engine.BuildAlignedReturns(
		map[string][]engine.PricePoint{market: series[market]}, engine.Daily, logReturns)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	mktReturns := mktAligned.Series[market]
	marketReturn := stat.Mean(mktReturns, nil) * ppy
	marketVol := popStd(mktReturns) * math.Sqrt(ppy)
	premium := marketReturn - rf

	n := s.cfg.SMLPoints
	sml := make([]engine.SMLPoint, n)
	lo, hi := minBeta-0.5, maxBeta+0.5
	for i := 0; i < n; i++ {
		b := lo + (hi-lo)*float64(i)/float64(n-1)
		sml[i] = engine.SMLPoint{Beta: b, ExpectedReturn: rf + b*premium}
	}

	writeJSON(w, map[string]interface{}{
		"results": results,
		"skipped": skipped,
		"sml":     sml,
		"summary": map[string]float64{
			"market_return":     marketReturn,
			"market_volatility": marketVol,
			"risk_free_rate":    rf,
			"market_premium":    premium,
		},
	})
}

// factorOrder fixes the reporting order of the recognized inline factors.
var factorOrder = []string{"MKT_RF", "SMB", "HML", "MOM", "RMW", "CMA", "TERM", "CREDIT"}

type modelFactorsRequest struct {
	Points   []map[string]float64 `json:"points"`
	RF       *float64             `json:"rf"`
	Interval string               `json:"interval"`
}

type factorLoading struct {
	Factor string  `json:"factor"`
	Beta   float64 `json:"beta"`
	T      float64 `json:"t"`
}

// handleModelFactors runs a multi-factor regression on an inline panel:
// each point carries the asset return under "ret" plus any subset of the
// recognized factor columns.
func (s *Server) handleModelFactors(w http.ResponseWriter, r *http.Request) {
	var req modelFactorsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Points) == 0 {
		writeError(w, 400, "points is required")
		return
	}
	if req.Interval == "" {
		req.Interval = "1mo"
	}
	interval, err := engine.ParseInterval(req.Interval)
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	ppy := interval.PeriodsPerYear()

	asset := make([]float64, len(req.Points))
	for i, p := range req.Points {
		v, ok := p["ret"]
		if !ok {
			writeError(w, 400, fmt.Sprintf("point %d is missing \"ret\"", i))
			return
		}
		asset[i] = v
	}

	var names []string
	var cols [][]float64
	for _, name := range factorOrder {
		if _, ok := req.Points[0][name]; !ok {
			continue
		}
		col := make([]float64, len(req.Points))
		for i, p := range req.Points {
			v, ok := p[name]
			if !ok {
				writeError(w, 400, fmt.Sprintf("point %d is missing factor %q", i, name))
				return
			}
			col[i] = v
		}
		names = append(names, name)
		cols = append(cols, col)
	}
	if len(names) == 0 {
		writeError(w, 400, "points carry no recognized factor columns")
		return
	}

	rfPeriod := 0.0
	if req.RF != nil {
		rfPeriod = *req.RF / ppy
	}
	fit, err := engine.FactorRegression(asset, names, cols, rfPeriod, ppy)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	loadings := make([]factorLoading, len(names))
	corr := make(map[string]float64, len(names))
	factorMeans := make(map[string]float64, len(names))
	for i, name := range names {
		loadings[i] = factorLoading{Factor: name, Beta: fit.Betas[name], T: fit.BetaT[name]}
		corr[name] = stat.Correlation(asset, cols[i], nil)
		factorMeans[name] = stat.Mean(cols[i], nil)
	}

	writeJSON(w, map[string]interface{}{
		"alpha":        fit.Alpha,
		"alpha_annual": fit.AlphaAnnual,
		"alpha_t":      fit.AlphaT,
		"loadings":     loadings,
		"r2":           fit.R2,
		"adj_r2":       fit.AdjR2,
		"corr":         corr,
		"factor_means": factorMeans,
		"observations": fit.Obs,
	})
}

type factorModelRequest struct {
	Returns          []float64            `json:"returns"`
	Factors          map[string][]float64 `json:"factors"`
	IncludeIntercept *bool                `json:"include_intercept"`
}

type factorModelLoading struct {
	Factor     string  `json:"factor"`
	Beta       float64 `json:"beta"`
	TStat      float64 `json:"t_stat"`
	PValue     float64 `json:"p_value"`
	MeanReturn float64 `json:"mean_return"`
}

// handleFactorModel is the generic factor-model fit: named factor series,
// full per-coefficient inference, optional intercept suppression.
func (s *Server) handleFactorModel(w http.ResponseWriter, r *http.Request) {
	var req factorModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Returns) == 0 {
		writeError(w, 400, "returns is required")
		return
	}
	if len(req.Factors) == 0 {
		writeError(w, 400, "factors is required")
		return
	}

	names := make([]string, 0, len(req.Factors))
	for name := range req.Factors {
		names = append(names, name)
	}
	sort.Strings(names)
	cols := make([][]float64, len(names))
	for i, name := range names {
		if len(req.Factors[name]) != len(req.Returns) {
			writeError(w, 400, fmt.Sprintf("factor %q has %d observations, returns has %d",
				name, len(req.Factors[name]), len(req.Returns)))
			return
		}
		cols[i] = req.Factors[name]
	}

	intercept := req.IncludeIntercept == nil || *req.IncludeIntercept
	var fit *engine.RegressionFit
	var err error
	if intercept {
		fit, err = engine.Regress(req.Returns, cols)
	} else {
		fit, err = engine.RegressThroughOrigin(req.Returns, cols)
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}

	off := 0
	if intercept {
		off = 1
	}
	loadings := make([]factorModelLoading, len(names))
	for i, name := range names {
		loadings[i] = factorModelLoading{
			Factor:     name,
			Beta:       fit.Coef[i+off],
			TStat:      fit.TStat[i+off],
			PValue:     fit.PValue[i+off],
			MeanReturn: stat.Mean(cols[i], nil),
		}
	}

	resp := map[string]interface{}{
		"loadings":     loadings,
		"r2":           fit.R2,
		"adj_r2":       fit.AdjR2,
		"residual_std": fit.ResidualStd,
		"observations": fit.Obs,
	}
	if intercept {
		resp["alpha"] = fit.Coef[0]
		resp["alpha_t"] = fit.TStat[0]
		resp["alpha_p"] = fit.PValue[0]
	}
	writeJSON(w, resp)
}

func popStd(a []float64) float64 {
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
