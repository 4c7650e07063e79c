// Package http exposes a running scan over a small JSON control API.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/sweep/pkg/domain"
)

// Scan is the control surface of a scanner. *sweep.Scanner implements it.
type Scan interface {
	Pause() error
	Resume() error
	Abort() error
	Progress() (completed, total int)
	State() domain.ScanState
	Running() bool
}

// Status is the body of GET /status and of every control response.
type Status struct {
	Name      string           `json:"name,omitempty"`
	State     domain.ScanState `json:"state"`
	Running   bool             `json:"running"`
	Completed int              `json:"completed"`
	Total     int              `json:"total"`
	Percent   float64          `json:"percent"`
}

// Server serves the control API.
type Server struct {
	Scan   Scan
	Name   string
	Logger *slog.Logger

	gatherer prometheus.Gatherer
}

// Option configures the handler.
type Option func(*Server)

// WithName labels the status responses.
func WithName(name string) Option {
	return func(s *Server) {
		s.Name = name
	}
}

// WithMetrics mounts GET /metrics for g.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the logger for failed control requests.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewHandler creates the HTTP handler for scan.
func NewHandler(scan Scan, opts ...Option) http.Handler {
	s := &Server{Scan: scan, Logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/status", s.GetStatus)
	r.Get("/progress", s.GetProgress)
	r.Post("/pause", s.control("pause", scan.Pause))
	r.Post("/resume", s.control("resume", scan.Resume))
	r.Post("/abort", s.control("abort", scan.Abort))

	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// GetStatus handles GET /status.
func (s *Server) GetStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

// GetProgress handles GET /progress.
func (s *Server) GetProgress(w http.ResponseWriter, _ *http.Request) {
	completed, total := s.Scan.Progress()
	writeJSON(w, http.StatusOK, map[string]int{"completed": completed, "total": total})
}

func (s *Server) control(name string, fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Scan.Running() {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "no scan is running"})
			return
		}
		if err := fn(); err != nil {
			s.Logger.ErrorContext(r.Context(), "control request failed", "request", name, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		s.Logger.InfoContext(r.Context(), "control request accepted", "request", name)
		writeJSON(w, http.StatusAccepted, s.status())
	}
}

func (s *Server) status() Status {
	completed, total := s.Scan.Progress()
	st := Status{
		Name:      s.Name,
		State:     s.Scan.State(),
		Running:   s.Scan.Running(),
		Completed: completed,
		Total:     total,
	}
	if total > 0 {
		st.Percent = 100 * float64(completed) / float64(total)
	}
	return st
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
