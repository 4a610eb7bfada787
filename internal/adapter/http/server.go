// Package http exposes health, readiness, metrics, and ranking endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/storm-damage-aggregator/internal/aggregate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// RankingSource serves the current aggregate table for a measure.
type RankingSource interface {
	Snapshot(measure string) (aggregate.Summary, error)
}

// Server exposes health, readiness, metrics, and rankings HTTP endpoints.
type Server struct {
	httpServer *http.Server
	rankings   RankingSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /rankings routes.
func NewServer(addr string, ready ReadinessChecker, rankings RankingSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		rankings: rankings,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /rankings", s.handleRankings)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// rankingsResponse is the payload for GET /rankings.
type rankingsResponse struct {
	Measure string          `json:"measure"`
	By      string          `json:"by"`
	Rows    []aggregate.Row `json:"rows"`
}

// handleRankings serves the ranked aggregate table for one measure.
// Query parameters: measure (default total_damage), by (total|mean, default
// total), limit (default 10, 0 means all).
func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	measure := r.URL.Query().Get("measure")
	if measure == "" {
		measure = "total_damage"
	}

	by := r.URL.Query().Get("by")
	if by == "" {
		by = "total"
	}
	if by != "total" && by != "mean" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "by must be \"total\" or \"mean\"",
		})
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a non-negative integer",
			})
			return
		}
		limit = n
	}

	summary, err := s.rankings.Snapshot(measure)
	if err != nil {
		if errors.Is(err, aggregate.ErrUnknownMeasure) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.logger.Error("rankings snapshot failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	rows := summary.ByTotal()
	if by == "mean" {
		rows = summary.ByMean()
	}
	if limit > 0 {
		rows = aggregate.Top(rows, limit)
	}

	writeJSON(w, http.StatusOK, rankingsResponse{Measure: measure, By: by, Rows: rows})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
