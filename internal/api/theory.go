package api

import (
	"net/http"

	"investlab/internal/engine"
)

type utilityCurvesRequest struct {
	Type   string  `json:"type"`
	Gamma  float64 `json:"gamma"`
	B      float64 `json:"b"`
	XMin   float64 `json:"x_min"`
	XMax   float64 `json:"x_max"`
	Points int     `json:"points"`
}

func (s *Server) handleUtilityCurves(w http.ResponseWriter, r *http.Request) {
	req := utilityCurvesRequest{Type: "CRRA", Gamma: 2, B: 0.002, XMin: 0.5, XMax: 10, Points: 100}
	if !decodeJSON(w, r, &req) {
		return
	}
	points, err := engine.UtilityCurves(engine.UtilityCurveParams{
		Type:   engine.UtilityType(req.Type),
		Gamma:  req.Gamma,
		B:      req.B,
		XMin:   req.XMin,
		XMax:   req.XMax,
		Points: req.Points,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"type":   req.Type,
		"points": points,
	})
}

type sdfRequest struct {
	Type   string  `json:"type"`
	Gamma  float64 `json:"gamma"`
	B      float64 `json:"b"`
	Beta   float64 `json:"beta"`
	Points int     `json:"points"`
}

func (s *Server) handleSDF(w http.ResponseWriter, r *http.Request) {
	req := sdfRequest{Type: "CRRA", Gamma: 2, B: 0.002, Beta: 0.99, Points: 100}
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := engine.SDFCurve(engine.SDFParams{
		Type:   engine.UtilityType(req.Type),
		Gamma:  req.Gamma,
		B:      req.B,
		Beta:   req.Beta,
		Points: req.Points,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleRiskNeutral(w http.ResponseWriter, r *http.Request) {
	// Canonical one-period classroom example as defaults.
	in := engine.BinomialInput{S: 100, K: 100, U: 1.1, D: 0.9, R: 0.03}
	if !decodeJSON(w, r, &in) {
		return
	}
	result, err := engine.PriceBinomial(in)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleBonds(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, 503, "reference store unavailable")
		return
	}
	bonds, err := s.store.ListBonds()
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"bonds": bonds})
}

func (s *Server) handleCAPMWorld(w http.ResponseWriter, r *http.Request) {
	// Omitted fields keep the canonical defaults, including the seed.
	params := engine.DefaultCAPMWorldParams()
	if !decodeJSON(w, r, &params) {
		return
	}
	world, err := engine.SimulateCAPMWorld(params)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"params": params,
		"world":  world,
	})
}

func (s *Server) handleFFWorld(w http.ResponseWriter, r *http.Request) {
	params := engine.DefaultFFWorldParams()
	if !decodeJSON(w, r, &params) {
		return
	}
	world, err := engine.SimulateFFWorld(params)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"params": params,
		"world":  world,
	})
}
