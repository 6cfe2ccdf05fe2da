// Package api is the JSON HTTP surface of the calculation engine. Handlers
// are stateless between requests: every computation runs from the request
// body plus the immutable reference datasets loaded at startup.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"investlab/internal/config"
	"investlab/internal/dataset"
	"investlab/internal/db"
	"investlab/internal/engine"
)

// Server holds the shared read-only state behind the handlers.
type Server struct {
	cfg   *config.Config
	store *db.DB

	mu    sync.RWMutex
	data  *dataset.Data
	ready bool
}

// NewServer creates a server. The reference datasets arrive later via
// SetData; until then data-backed routes answer 503.
func NewServer(cfg *config.Config, store *db.DB) *Server {
	return &Server{cfg: cfg, store: store}
}

// SetData publishes the loaded datasets and marks the server ready.
func (s *Server) SetData(d *dataset.Data) {
	s.mu.Lock()
	s.data = d
	s.ready = true
	s.mu.Unlock()
}

func (s *Server) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// datasetOrError fetches the datasets, writing a 503 when loading has not
// finished. Callers must return immediately on nil.
func (s *Server) datasetOrError(w http.ResponseWriter) *dataset.Data {
	s.mu.RLock()
	d, ready := s.data, s.ready
	s.mu.RUnlock()
	if !ready {
		writeError(w, 503, "datasets still loading")
		return nil
	}
	return d
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("POST /api/config", s.handleSetConfig)

	mux.HandleFunc("GET /api/data/tickers", s.handleTickers)
	mux.HandleFunc("POST /api/data/prices", s.handlePrices)

	mux.HandleFunc("POST /api/portfolio/efficient-frontier", s.handleEfficientFrontier)

	mux.HandleFunc("POST /api/model/capm", s.handleCAPM)
	mux.HandleFunc("POST /api/model/factors", s.handleModelFactors)
	mux.HandleFunc("POST /api/factor/model", s.handleFactorModel)

	mux.HandleFunc("GET /api/ff/data", s.handleFFData)
	mux.HandleFunc("POST /api/ff/analyze", s.handleFFAnalyze)
	mux.HandleFunc("POST /api/ff/grs", s.handleGRS)

	mux.HandleFunc("POST /api/risk/performance", s.handlePerformance)
	mux.HandleFunc("POST /api/risk/lpm-frontier", s.handleLPMFrontier)

	mux.HandleFunc("POST /api/utility/curves", s.handleUtilityCurves)
	mux.HandleFunc("POST /api/utility/sdf", s.handleSDF)

	mux.HandleFunc("POST /api/fixedincome/risk-neutral", s.handleRiskNeutral)
	mux.HandleFunc("GET /api/fixedincome/bonds", s.handleBonds)

	mux.HandleFunc("POST /api/theory/capm-world", s.handleCAPMWorld)
	mux.HandleFunc("POST /api/theory/ff-world", s.handleFFWorld)

	return corsMiddleware(s.timeoutMiddleware(mux))
}

// timeoutMiddleware bounds every request by the configured deadline.
// Handlers that honor ctx abandon their partial work; the client gets a
// 504 either way.
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timeout := time.Duration(s.cfg.RequestTimeoutSec) * time.Second
		if timeout <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		done := make(chan struct{})
		tw := &timeoutWriter{inner: w}
		go func() {
			next.ServeHTTP(tw, r.WithContext(ctx))
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			tw.mu.Lock()
			defer tw.mu.Unlock()
			tw.timedOut = true
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(504)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "request exceeded the configured timeout",
				"kind":  "timeout",
			})
		}
	})
}

// timeoutWriter suppresses any late handler writes once the deadline
// response has gone out.
type timeoutWriter struct {
	inner    http.ResponseWriter
	mu       sync.Mutex
	timedOut bool
}

func (t *timeoutWriter) Header() http.Header {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timedOut {
		return http.Header{}
	}
	return t.inner.Header()
}

func (t *timeoutWriter) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timedOut {
		return len(b), nil
	}
	return t.inner.Write(b)
}

func (t *timeoutWriter) WriteHeader(code int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timedOut {
		return
	}
	t.inner.WriteHeader(code)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeEngineError maps a computation failure onto HTTP. Classified engine
// errors are the client's problem (422); context expiry surfaces as 504
// (normally pre-empted by the timeout middleware); the rest is a 500.
func writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(504)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "request exceeded the configured timeout",
			"kind":  "timeout",
		})
		return
	}
	if kind := engine.KindOf(err); kind != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(422)
		json.NewEncoder(w).Encode(map[string]string{
			"error": err.Error(),
			"kind":  string(kind),
		})
		return
	}
	writeError(w, 500, err.Error())
}

// decodeJSON parses a request body, writing the 400 itself on failure.
// An empty body is accepted and leaves v at its defaults.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		writeError(w, 400, "invalid json")
		return false
	}
	return true
}
