// internal/dashboard/server.go
// Package dashboard exposes the comparison pipeline over HTTP for the browser UI.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mwiater/gollamadash/internal/appconfig"
	"github.com/mwiater/gollamadash/internal/chart"
	"github.com/mwiater/gollamadash/internal/comparison"
	"github.com/mwiater/gollamadash/internal/logging"
	"github.com/mwiater/gollamadash/internal/metrics"
	"github.com/mwiater/gollamadash/internal/timeseries"
)

// Server serves the dashboard API: comparisons are submitted with POST
// /api/compare and observed through the datapoint, progress, result, and
// stats endpoints.
type Server struct {
	cfg        *appconfig.Config
	comparer   *comparison.Comparer
	aggregator *timeseries.Aggregator
	stats      *metrics.SessionStats

	mutex  sync.Mutex
	runCtx context.Context
}

// NewServer wires the API onto an existing comparer and aggregator.
func NewServer(cfg *appconfig.Config, comparer *comparison.Comparer, aggregator *timeseries.Aggregator, stats *metrics.SessionStats) *Server {
	return &Server{cfg: cfg, comparer: comparer, aggregator: aggregator, stats: stats}
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/compare", s.handleCompare)
	mux.HandleFunc("GET /api/datapoints", s.handleDataPoints)
	mux.HandleFunc("GET /api/progress", s.handleProgress)
	mux.HandleFunc("GET /api/results", s.handleResults)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	return mux
}

// setRunContext installs the context comparisons launched by handleCompare
// derive from, so server shutdown also cancels in-flight runs.
func (s *Server) setRunContext(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.runCtx = ctx
}

func (s *Server) runContext() context.Context {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.runCtx != nil {
		return s.runCtx
	}
	return context.Background()
}

// ListenAndServe runs the API until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.setRunContext(ctx)
	server := &http.Server{
		Addr:              s.cfg.ListenAddress(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.LogEvent("[DASHBOARD] listening on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type compareRequest struct {
	Prompt string `json:"prompt"`
}

// handleCompare starts a comparison for every enabled model and returns
// immediately; clients follow along via the progress and datapoint endpoints.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt must not be empty")
		return
	}

	configs := s.cfg.EnabledModels()
	if len(configs) == 0 {
		writeJSONError(w, http.StatusConflict, "no models enabled")
		return
	}

	runCtx := s.runContext()
	go func() {
		if _, err := s.comparer.CompareModels(runCtx, req.Prompt, configs, nil); err != nil {
			logging.LogEvent("[DASHBOARD] comparison failed to start: %v", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "started",
		"models": len(configs),
	})
}

// handleDataPoints returns the preprocessed chart series.
func (s *Server) handleDataPoints(w http.ResponseWriter, r *http.Request) {
	points := chart.Preprocess(s.aggregator.Points(), chart.Options{
		SmoothingPercent: s.cfg.SmoothingPercent,
	})
	if points == nil {
		points = []timeseries.DataPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

// handleProgress returns the per-model progress snapshots of the active or
// most recent comparison.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"collecting": s.aggregator.Collecting(),
		"models":     s.comparer.Snapshot(),
	})
}

// handleResults returns the most recently completed comparison.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	result := s.comparer.LastResult()
	if result == nil {
		writeJSONError(w, http.StatusNotFound, "no comparison has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleStats returns the per-model running session statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.LogEvent("[DASHBOARD] encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
