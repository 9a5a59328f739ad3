// Package api exposes the contribution scoring pipeline over HTTP.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eigen-blood/contribution.report/internal/db"
	"github.com/eigen-blood/contribution.report/internal/reward"
	"github.com/eigen-blood/contribution.report/internal/shapley"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Config carries the estimation defaults the server applies when a request
// leaves them unset.
type Config struct {
	ChunkDurationSec float64 `json:"chunk_duration_sec"`
	WindowSamples    int     `json:"window_samples"`
	Iterations       int     `json:"iterations"`
}

// DefaultConfig returns the production estimation defaults: one-minute
// chunks, four-second feature windows at 10 Hz, and a hundred coalition
// samples per chunk.
func DefaultConfig() Config {
	return Config{
		ChunkDurationSec: 60.0,
		WindowSamples:    40,
		Iterations:       100,
	}
}

type Server struct {
	db     *db.DB
	policy reward.Policy
	cfg    Config
}

func NewServer(database *db.DB, policy reward.Policy, cfg Config) *Server {
	if cfg.ChunkDurationSec <= 0 {
		cfg = DefaultConfig()
	}
	return &Server{
		db:     database,
		policy: policy,
		cfg:    cfg,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/score-contribution", s.handleScoreContribution)
	mux.HandleFunc("/api/reports", s.handleListReports)
	mux.HandleFunc("/api/reports/", s.handleGetReport)
	mux.HandleFunc("/api/charts/report/", s.handleReportChart)
	mux.HandleFunc("/api/health", s.handleHealth)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARNING: encoding response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "contribution.report",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}

	reports, err := s.db.ListReports(r.URL.Query().Get("session_id"), limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reports == nil {
		reports = []*db.ContributionReport{}
	}
	s.writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reportID := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	if reportID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "missing report id")
		return
	}

	rep, err := s.db.GetReport(reportID)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, "no such report")
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

// reportValues unpacks the persisted per-chunk values of a report.
func reportValues(rep *db.ContributionReport) ([]shapley.ChunkValue, error) {
	var values []shapley.ChunkValue
	if len(rep.ValuesJSON) == 0 {
		return values, nil
	}
	err := json.Unmarshal(rep.ValuesJSON, &values)
	return values, err
}
