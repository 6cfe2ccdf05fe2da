package api

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"investlab/internal/db"
	"investlab/internal/engine"
)

// ffRow is the wire form of one factor month, using the Ken French column
// names. RMW and CMA only appear for the five-factor panel.
type ffRow struct {
	Date  string   `json:"date"`
	MktRF float64  `json:"Mkt-RF"`
	SMB   float64  `json:"SMB"`
	HML   float64  `json:"HML"`
	RMW   *float64 `json:"RMW,omitempty"`
	CMA   *float64 `json:"CMA,omitempty"`
	RF    float64  `json:"RF"`
}

type columnStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

func ffColumns(model string) []string {
	if model == "FF5" {
		return []string{"Mkt-RF", "SMB", "HML", "RMW", "CMA"}
	}
	return []string{"Mkt-RF", "SMB", "HML"}
}

func ffColumnData(rows []db.FactorRow, col string) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		switch col {
		case "Mkt-RF":
			out[i] = r.MktRF
		case "SMB":
			out[i] = r.SMB
		case "HML":
			out[i] = r.HML
		case "RMW":
			out[i] = r.RMW
		case "CMA":
			out[i] = r.CMA
		case "RF":
			out[i] = r.RF
		}
	}
	return out
}

// ffPanel packages one model's rows with descriptive statistics and the
// factor correlation matrix.
func ffPanel(model string, rows []db.FactorRow) map[string]interface{} {
	wire := make([]ffRow, len(rows))
	for i, r := range rows {
		wire[i] = ffRow{Date: r.Date, MktRF: r.MktRF, SMB: r.SMB, HML: r.HML, RF: r.RF}
		if model == "FF5" {
			rmw, cma := r.RMW, r.CMA
			wire[i].RMW, wire[i].CMA = &rmw, &cma
		}
	}

	cols := ffColumns(model)
	stats := make(map[string]columnStats, len(cols)+1)
	for _, c := range append(append([]string{}, cols...), "RF") {
		data := ffColumnData(rows, c)
		if len(data) == 0 {
			continue
		}
		mn, mx := data[0], data[0]
		for _, v := range data {
			mn = math.Min(mn, v)
			mx = math.Max(mx, v)
		}
		stats[c] = columnStats{
			Mean: stat.Mean(data, nil),
			Std:  popStd(data),
			Min:  mn,
			Max:  mx,
		}
	}

	corr := make(map[string]map[string]float64, len(cols))
	if len(rows) >= 2 {
		for _, a := range cols {
			corr[a] = make(map[string]float64, len(cols))
			da := ffColumnData(rows, a)
			for _, b := range cols {
				corr[a][b] = stat.Correlation(da, ffColumnData(rows, b), nil)
			}
		}
	}

	return map[string]interface{}{
		"factors":     wire,
		"stats":       stats,
		"correlation": corr,
		"months":      len(rows),
	}
}

func (s *Server) handleFFData(w http.ResponseWriter, r *http.Request) {
	d := s.datasetOrError(w)
	if d == nil {
		return
	}
	q := r.URL.Query()
	start, end := q.Get("start_date"), q.Get("end_date")

	filter := func(rows []db.FactorRow) []db.FactorRow {
		if start == "" && end == "" {
			return rows
		}
		out := make([]db.FactorRow, 0, len(rows))
		for _, row := range rows {
			if start != "" && row.Date < start {
				continue
			}
			if end != "" && row.Date > end {
				continue
			}
			out = append(out, row)
		}
		return out
	}

	writeJSON(w, map[string]interface{}{
		"ff3": ffPanel("FF3", filter(d.FF3)),
		"ff5": ffPanel("FF5", filter(d.FF5)),
	})
}

type ffAnalyzeRequest struct {
	Portfolios map[string][]engine.ReturnPoint `json:"portfolios"`
}

type ffModelSummary struct {
	AvgR2                float64 `json:"avg_r2"`
	NumSignificantAlphas int     `json:"num_significant_alphas"`
	Portfolios           int     `json:"portfolios"`
}

// handleFFAnalyze regresses each submitted portfolio's monthly excess
// returns on the FF3 and FF5 factor panels. Portfolio observations are
// matched to factor months by YYYY-MM key; the excess return subtracts
// that month's risk-free rate.
func (s *Server) handleFFAnalyze(w http.ResponseWriter, r *http.Request) {
	d := s.datasetOrError(w)
	if d == nil {
		return
	}
	var req ffAnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Portfolios) == 0 {
		writeError(w, 400, "portfolios is required")
		return
	}

	models := map[string][]db.FactorRow{}
	if len(d.FF3) > 0 {
		models["ff3"] = d.FF3
	}
	if len(d.FF5) > 0 {
		models["ff5"] = d.FF5
	}
	if len(models) == 0 {
		writeError(w, 503, "factor datasets not loaded")
		return
	}

	names := make([]string, 0, len(req.Portfolios))
	for name := range req.Portfolios {
		names = append(names, name)
	}
	sort.Strings(names)

	var mu sync.Mutex
	results := make(map[string]map[string]*engine.FactorFit, len(names))

	g, _ := errgroup.WithContext(r.Context())
	for _, name := range names {
		name := name
		points := req.Portfolios[name]
		g.Go(func() error {
			fits := make(map[string]*engine.FactorFit, len(models))
			for model, rows := range models {
				fit, err := fitPortfolioOnFactors(points, model, rows)
				if err != nil {
					return fmt.Errorf("portfolio %s (%s): %w", name, model, err)
				}
				fits[model] = fit
			}
			mu.Lock()
			results[name] = fits
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writeEngineError(w, err)
		return
	}

	summary := make(map[string]ffModelSummary, len(models))
	for model := range models {
		var sumR2 float64
		var significant int
		for _, name := range names {
			fit := results[name][model]
			sumR2 += fit.R2
			if fit.AlphaP < 0.05 {
				significant++
			}
		}
		summary[model] = ffModelSummary{
			AvgR2:                sumR2 / float64(len(names)),
			NumSignificantAlphas: significant,
			Portfolios:           len(names),
		}
	}

	writeJSON(w, map[string]interface{}{
		"results": results,
		"summary": summary,
	})
}

// fitPortfolioOnFactors joins a portfolio's return points with a factor
// panel month by month and fits the excess returns.
func fitPortfolioOnFactors(points []engine.ReturnPoint, model string, rows []db.FactorRow) (*engine.FactorFit, error) {
	byMonth := make(map[string]db.FactorRow, len(rows))
	for _, row := range rows {
		if len(row.Date) >= 7 {
			byMonth[row.Date[:7]] = row
		}
	}

	factorNames := []string{"MKT_RF", "SMB", "HML"}
	if model == "ff5" {
		factorNames = append(factorNames, "RMW", "CMA")
	}

	var excess []float64
	cols := make([][]float64, len(factorNames))
	for _, p := range points {
		if len(p.Date) < 7 {
			continue
		}
		row, ok := byMonth[p.Date[:7]]
		if !ok {
			continue
		}
		excess = append(excess, p.Ret-row.RF)
		vals := []float64{row.MktRF, row.SMB, row.HML}
		if model == "ff5" {
			vals = append(vals, row.RMW, row.CMA)
		}
		for i, v := range vals {
			cols[i] = append(cols[i], v)
		}
	}
	if len(excess) == 0 {
		return nil, &engine.Error{
			Kind:    engine.KindInsufficientData,
			Message: "no portfolio months overlap the factor panel",
		}
	}
	return engine.FactorRegression(excess, factorNames, cols, 0, 12)
}

type grsRequest struct {
	Portfolios [][]float64 `json:"portfolios"`
	Factors    [][]float64 `json:"factors"`
}

func (s *Server) handleGRS(w http.ResponseWriter, r *http.Request) {
	var req grsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Portfolios) == 0 {
		writeError(w, 400, "portfolios is required")
		return
	}
	if len(req.Factors) == 0 {
		writeError(w, 400, "factors is required")
		return
	}
	result, err := engine.GRSTest(req.Portfolios, req.Factors)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, result)
}
