package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"investlab/internal/config"
	"investlab/internal/engine"
	"investlab/internal/logger"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.ready
	var tickers int
	if s.data != nil {
		tickers = len(s.data.Tickers)
	}
	s.mu.RUnlock()

	writeJSON(w, map[string]interface{}{
		"status":  "healthy",
		"message": "investlab calculation engine is running",
		"ready":   ready,
		"tickers": tickers,
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.cfg)
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, 400, "invalid json")
		return
	}

	if v, ok := patch["frontier_points"]; ok {
		json.Unmarshal(v, &s.cfg.FrontierPoints)
	}
	if v, ok := patch["cml_points"]; ok {
		json.Unmarshal(v, &s.cfg.CMLPoints)
	}
	if v, ok := patch["sml_points"]; ok {
		json.Unmarshal(v, &s.cfg.SMLPoints)
	}
	if v, ok := patch["request_timeout_sec"]; ok {
		json.Unmarshal(v, &s.cfg.RequestTimeoutSec)
	}
	if v, ok := patch["cap_mode"]; ok {
		var mode string
		json.Unmarshal(v, &mode)
		if mode == config.CapModeLong || mode == config.CapModeAbsolute {
			s.cfg.CapMode = mode
		}
	}
	if v, ok := patch["ridge_epsilon"]; ok {
		json.Unmarshal(v, &s.cfg.RidgeEpsilon)
	}
	if v, ok := patch["default_rf"]; ok {
		json.Unmarshal(v, &s.cfg.DefaultRF)
	}

	// Validate bounds
	if s.cfg.FrontierPoints < 2 {
		s.cfg.FrontierPoints = 2
	} else if s.cfg.FrontierPoints > 500 {
		s.cfg.FrontierPoints = 500
	}
	if s.cfg.CMLPoints < 2 {
		s.cfg.CMLPoints = 2
	} else if s.cfg.CMLPoints > 500 {
		s.cfg.CMLPoints = 500
	}
	if s.cfg.SMLPoints < 2 {
		s.cfg.SMLPoints = 2
	} else if s.cfg.SMLPoints > 500 {
		s.cfg.SMLPoints = 500
	}
	if s.cfg.RequestTimeoutSec < 1 {
		s.cfg.RequestTimeoutSec = 1
	} else if s.cfg.RequestTimeoutSec > 600 {
		s.cfg.RequestTimeoutSec = 600
	}
	if s.cfg.RidgeEpsilon <= 0 {
		s.cfg.RidgeEpsilon = config.Default().RidgeEpsilon
	}

	if s.store != nil {
		if err := s.store.SaveConfig(s.cfg); err != nil {
			logger.Error("Config", fmt.Sprintf("persist failed: %v", err))
		}
	}
	writeJSON(w, s.cfg)
}

func (s *Server) handleTickers(w http.ResponseWriter, r *http.Request) {
	d := s.datasetOrError(w)
	if d == nil {
		return
	}
	writeJSON(w, map[string]interface{}{"tickers": d.Tickers})
}

type pricesRequest struct {
	Tickers    []string `json:"tickers"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	Interval   string   `json:"interval"`
	ReturnType string   `json:"return_type"` // "simple" (default) or "log"
}

// resolveSeries validates the requested tickers against the dataset and
// returns their resampled, date-filtered price series. Writes the error
// response itself; nil means the caller must return.
func (s *Server) resolveSeries(w http.ResponseWriter, req pricesRequest) (map[string][]engine.PricePoint, engine.Interval) {
	d := s.datasetOrError(w)
	if d == nil {
		return nil, ""
	}
	if len(req.Tickers) == 0 {
		writeError(w, 400, "tickers is required")
		return nil, ""
	}
	_, invalid := d.ValidateTickers(req.Tickers)
	if len(invalid) > 0 {
		writeError(w, 400, fmt.Sprintf("invalid tickers: %s (available: %s)",
			strings.Join(invalid, ", "), strings.Join(d.Tickers, ", ")))
		return nil, ""
	}
	interval, err := engine.ParseInterval(req.Interval)
	if err != nil {
		writeError(w, 400, err.Error())
		return nil, ""
	}

	out := make(map[string][]engine.PricePoint, len(req.Tickers))
	for _, t := range req.Tickers {
		points := filterDates(d.PricesFor(t), req.StartDate, req.EndDate)
		out[t] = engine.Resample(points, interval)
	}
	return out, interval
}

func filterDates(points []engine.PricePoint, start, end string) []engine.PricePoint {
	if start == "" && end == "" {
		return points
	}
	out := make([]engine.PricePoint, 0, len(points))
	for _, p := range points {
		if start != "" && p.Date < start {
			continue
		}
		if end != "" && p.Date > end {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	var req pricesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	series, _ := s.resolveSeries(w, req)
	if series == nil {
		return
	}
	logReturns := req.ReturnType == "log"

	returns := make(map[string][]engine.ReturnPoint, len(series))
	for t, points := range series {
		prices := make([]float64, len(points))
		for i, p := range points {
			prices[i] = p.AdjClose
		}
		rets := engine.PriceReturns(prices, logReturns)
		rp := make([]engine.ReturnPoint, len(rets))
		for i, v := range rets {
			rp[i] = engine.ReturnPoint{Date: points[i+1].Date, Ret: v}
		}
		returns[t] = rp
	}

	writeJSON(w, map[string]interface{}{
		"prices":  series,
		"returns": returns,
	})
}
