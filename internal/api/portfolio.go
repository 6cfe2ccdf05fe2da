package api

import (
	"net/http"

	"investlab/internal/config"
	"investlab/internal/engine"
)

type frontierRequest struct {
	pricesRequest

	RF         *float64 `json:"rf"`
	AllowShort bool     `json:"allow_short"`
	MaxWeight  float64  `json:"max_weight"`
	CapMode    string   `json:"cap_mode"`
	Points     int      `json:"points"`
}

func (s *Server) rfOrDefault(rf *float64) float64 {
	if rf != nil {
		return *rf
	}
	return s.cfg.DefaultRF
}

// capAbsolute resolves the cap interpretation: an explicit request value
// wins over the configured mode.
func (s *Server) capAbsolute(w http.ResponseWriter, mode string) (bool, bool) {
	if mode == "" {
		mode = s.cfg.CapMode
	}
	switch mode {
	case config.CapModeLong:
		return false, true
	case config.CapModeAbsolute:
		return true, true
	default:
		writeError(w, 400, "cap_mode must be \"long\" or \"absolute\"")
		return false, false
	}
}

func (s *Server) handleEfficientFrontier(w http.ResponseWriter, r *http.Request) {
	var req frontierRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	series, interval := s.resolveSeries(w, req.pricesRequest)
	if series == nil {
		return
	}
	capAbs, ok := s.capAbsolute(w, req.CapMode)
	if !ok {
		return
	}

	ar, err := engine.BuildAlignedReturns(series, interval, req.ReturnType == "log")
	if err != nil {
		writeEngineError(w, err)
		return
	}
	moments, err := engine.EstimateMoments(ar)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	ppy := interval.PeriodsPerYear()

	points := req.Points
	if points <= 0 {
		points = s.cfg.FrontierPoints
	}
	result, err := engine.ComputeFrontier(r.Context(), moments.Annualize(ppy), engine.FrontierParams{
		RF:          s.rfOrDefault(req.RF),
		AllowShort:  req.AllowShort,
		MaxWeight:   req.MaxWeight,
		CapAbsolute: capAbs,
		GridPoints:  points,
		CMLPoints:   s.cfg.CMLPoints,
		RidgeEps:    s.cfg.RidgeEpsilon,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, map[string]interface{}{
		"tickers":      ar.Tickers,
		"observations": len(ar.Dates),
		"frontier":     result.Frontier,
		"tangency":     result.Tangency,
		"cml":          result.CML,
		"regularized":  result.Regularized,
	})
}

type lpmFrontierRequest struct {
	pricesRequest

	Tau        float64 `json:"tau"`
	Order      float64 `json:"order"`
	AllowShort bool    `json:"allow_short"`
	MaxWeight  float64 `json:"max_weight"`
	CapMode    string  `json:"cap_mode"`
	Points     int     `json:"points"`
}

func (s *Server) handleLPMFrontier(w http.ResponseWriter, r *http.Request) {
	var req lpmFrontierRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	series, interval := s.resolveSeries(w, req.pricesRequest)
	if series == nil {
		return
	}
	capAbs, ok := s.capAbsolute(w, req.CapMode)
	if !ok {
		return
	}
	order := req.Order
	if order == 0 {
		order = 2
	}

	ar, err := engine.BuildAlignedReturns(series, interval, req.ReturnType == "log")
	if err != nil {
		writeEngineError(w, err)
		return
	}
	points := req.Points
	if points <= 0 {
		points = s.cfg.FrontierPoints
	}
	frontier, err := engine.ComputeLPMFrontier(r.Context(), ar, engine.LPMFrontierParams{
		Tau:         req.Tau,
		Order:       order,
		AllowShort:  req.AllowShort,
		MaxWeight:   req.MaxWeight,
		CapAbsolute: capAbs,
		GridPoints:  points,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, map[string]interface{}{
		"tickers":      ar.Tickers,
		"observations": len(ar.Dates),
		"tau":          req.Tau,
		"order":        order,
		"frontier":     frontier,
	})
}

type performanceRequest struct {
	Returns   []float64 `json:"returns"`
	Benchmark []float64 `json:"benchmark"`
	RF        *float64  `json:"rf"`
	Interval  string    `json:"interval"`
	LPMTau    float64   `json:"lpm_tau"`
	LPMOrder  float64   `json:"lpm_order"`
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	var req performanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Returns) == 0 {
		writeError(w, 400, "returns is required")
		return
	}
	interval, err := engine.ParseInterval(req.Interval)
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}

	result, err := engine.ComputePerformance(req.Returns, engine.PerformanceParams{
		RF:             s.rfOrDefault(req.RF),
		PeriodsPerYear: interval.PeriodsPerYear(),
		Benchmark:      req.Benchmark,
		LPMTau:         req.LPMTau,
		LPMOrder:       req.LPMOrder,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, result)
}
