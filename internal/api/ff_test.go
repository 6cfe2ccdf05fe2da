package api

import (
	"math"
	"testing"
	"time"

	"investlab/internal/engine"
)

func TestFFData(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := doJSON(t, h, "GET", "/api/ff/data", nil)
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		FF3 struct {
			Months      int                           `json:"months"`
			Stats       map[string]columnStats        `json:"stats"`
			Correlation map[string]map[string]float64 `json:"correlation"`
		} `json:"ff3"`
		FF5 struct {
			Months int `json:"months"`
		} `json:"ff5"`
	}
	decodeBody(t, rec, &body)

	if body.FF3.Months != 36 {
		t.Errorf("ff3 months = %d, want 36", body.FF3.Months)
	}
	if body.FF5.Months != 0 {
		t.Errorf("ff5 months = %d, want 0 (panel absent in fixture)", body.FF5.Months)
	}
	if _, ok := body.FF3.Stats["Mkt-RF"]; !ok {
		t.Error("stats missing Mkt-RF column")
	}
	if rfStats, ok := body.FF3.Stats["RF"]; !ok || math.Abs(rfStats.Mean-0.003) > 1e-12 {
		t.Errorf("RF stats = %+v, want mean 0.003", body.FF3.Stats["RF"])
	}
	if c := body.FF3.Correlation["Mkt-RF"]["Mkt-RF"]; math.Abs(c-1) > 1e-9 {
		t.Errorf("self-correlation = %v, want 1", c)
	}
}

func TestFFData_DateFilter(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := doJSON(t, h, "GET", "/api/ff/data?start_date=2021-06-01&end_date=2021-12-31", nil)
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		FF3 struct {
			Months int `json:"months"`
		} `json:"ff3"`
	}
	decodeBody(t, rec, &body)
	if body.FF3.Months != 7 {
		t.Errorf("filtered months = %d, want 7 (Jun..Dec 2021)", body.FF3.Months)
	}
}

func TestFFAnalyze(t *testing.T) {
	h := newTestServer(t).Handler()

	// Build a portfolio directly from the fixture panel so the loadings
	// are known: excess = 1.1*MktRF + 0.4*SMB, so ret = that + RF.
	var points []engine.ReturnPoint
	for i := 0; i < 36; i++ {
		month := time.Date(2021, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
		mkt := 0.01 * math.Sin(float64(i))
		smb := 0.004 * math.Cos(float64(i))
		points = append(points, engine.ReturnPoint{
			Date: month.Format("2006-01-02"),
			Ret:  0.003 + 1.1*mkt + 0.4*smb,
		})
	}

	rec := doJSON(t, h, "POST", "/api/ff/analyze", map[string]interface{}{
		"portfolios": map[string]interface{}{"value_tilt": points},
	})
	if rec.Code != 200 {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Results map[string]map[string]*engine.FactorFit `json:"results"`
		Summary map[string]ffModelSummary               `json:"summary"`
	}
	decodeBody(t, rec, &body)

	fit := body.Results["value_tilt"]["ff3"]
	if fit == nil {
		t.Fatal("missing ff3 fit")
	}
	if fit.Obs != 36 {
		t.Errorf("obs = %d, want all 36 months matched", fit.Obs)
	}
	if math.Abs(fit.Betas["MKT_RF"]-1.1) > 1e-6 {
		t.Errorf("market loading = %v, want 1.1", fit.Betas["MKT_RF"])
	}
	if math.Abs(fit.Betas["SMB"]-0.4) > 1e-6 {
		t.Errorf("SMB loading = %v, want 0.4", fit.Betas["SMB"])
	}
	if math.Abs(fit.Alpha) > 1e-9 {
		t.Errorf("alpha = %v, want 0 (returns built from the panel)", fit.Alpha)
	}
	if s := body.Summary["ff3"]; s.Portfolios != 1 || s.AvgR2 < 0.999 {
		t.Errorf("summary = %+v", s)
	}
}

func TestFFAnalyze_NoOverlap(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := doJSON(t, h, "POST", "/api/ff/analyze", map[string]interface{}{
		"portfolios": map[string]interface{}{
			"stale": []engine.ReturnPoint{{Date: "1999-01-01", Ret: 0.01}},
		},
	})
	if rec.Code != 422 {
		t.Errorf("status = %d, want 422 for disjoint dates (%s)", rec.Code, rec.Body.String())
	}
}

func TestFFAnalyze_Validation(t *testing.T) {
	h := newTestServer(t).Handler()
	if rec := doJSON(t, h, "POST", "/api/ff/analyze", map[string]interface{}{}); rec.Code != 400 {
		t.Errorf("missing portfolios: status = %d, want 400", rec.Code)
	}
}

func TestGRSEndpoint(t *testing.T) {
	h := newTestServer(t).Handler()

	// Zero-alpha world: each portfolio is an exact multiple of the factor
	// plus tiny deterministic noise, so the joint test must not reject.
	tObs := 60
	factor := make([]float64, tObs)
	for i := range factor {
		factor[i] = 0.01 * math.Sin(float64(i)*1.7)
	}
	portfolios := make([][]float64, 4)
	for p := range portfolios {
		col := make([]float64, tObs)
		for i := range col {
			// Distinct noise frequency per portfolio keeps the residual
			// covariance full rank.
			col[i] = float64(p+1)*0.3*factor[i] + 1e-4*math.Sin(float64(i)*(0.9+0.6*float64(p))+float64(p))
		}
		portfolios[p] = col
	}

	rec := doJSON(t, h, "POST", "/api/ff/grs", map[string]interface{}{
		"portfolios": portfolios,
		"factors":    [][]float64{factor},
	})
	if rec.Code != 200 {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var body engine.GRSResult
	decodeBody(t, rec, &body)
	if body.NumPortfolios != 4 || body.NumFactors != 1 || body.Observations != 60 {
		t.Errorf("dimensions = %d/%d/%d", body.NumPortfolios, body.NumFactors, body.Observations)
	}
	if body.PValue < 0 || body.PValue > 1 {
		t.Errorf("p-value = %v", body.PValue)
	}
	if body.Interpretation == "" {
		t.Error("missing interpretation")
	}
}

func TestGRSEndpoint_Validation(t *testing.T) {
	h := newTestServer(t).Handler()

	if rec := doJSON(t, h, "POST", "/api/ff/grs", map[string]interface{}{
		"factors": [][]float64{{0.01}},
	}); rec.Code != 400 {
		t.Errorf("missing portfolios: status = %d, want 400", rec.Code)
	}

	// Degrees of freedom: T too small for N portfolios.
	rec := doJSON(t, h, "POST", "/api/ff/grs", map[string]interface{}{
		"portfolios": [][]float64{
			{0.01, 0.02, 0.01, 0.02, 0.01, 0.02},
			{0.02, 0.01, 0.02, 0.01, 0.02, 0.01},
			{0.01, 0.01, 0.02, 0.02, 0.01, 0.01},
			{0.02, 0.02, 0.01, 0.01, 0.02, 0.02},
			{0.01, 0.02, 0.02, 0.01, 0.01, 0.02},
		},
		"factors": [][]float64{{0.01, -0.01, 0.01, -0.01, 0.01, -0.01}},
	})
	if rec.Code != 422 {
		t.Fatalf("status = %d, want 422 (%s)", rec.Code, rec.Body.String())
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["kind"] != "degrees_of_freedom" {
		t.Errorf("kind = %q", body["kind"])
	}
}
