// Package health provides HTTP endpoints for liveness, readiness, and
// Prometheus metrics.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Readiness status values.
const (
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// Checker reports whether a component is ready to serve.
// Returns an error if the component is not ready.
type Checker func(ctx context.Context) error

// ComponentStatus is the readiness of a single component.
type ComponentStatus struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Response is the body of /health and /ready replies.
type Response struct {
	Status     string            `json:"status"`
	Components []ComponentStatus `json:"components,omitempty"`
}

// StatusResponse is the body of /status replies. It reports the
// daemon's current view rather than a pass/fail check.
type StatusResponse struct {
	Version        string    `json:"version"`
	Started        time.Time `json:"started"`
	UptimeSeconds  float64   `json:"uptime_seconds"`
	DirectoryState string    `json:"directory_state"`
	LastUpdate     string    `json:"last_update,omitempty"`
}

// StatusFunc supplies the dynamic fields of /status.
type StatusFunc func() (directoryState string, lastUpdate time.Time)

// Server provides /health, /ready, /status, and /metrics endpoints.
type Server struct {
	port    int
	version string
	started time.Time
	mux     *http.ServeMux
	server  *http.Server
	logger  *slog.Logger
	timeout time.Duration
	status  StatusFunc

	mu       sync.RWMutex
	checkers map[string]Checker
}

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTimeout sets the timeout for readiness checks.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.timeout = timeout
	}
}

// WithVersion sets the version string reported by /status.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithStatus sets the supplier of the dynamic /status fields.
func WithStatus(fn StatusFunc) Option {
	return func(s *Server) {
		s.status = fn
	}
}

// New creates a health server on the specified port.
func New(port int, opts ...Option) *Server {
	s := &Server{
		port:     port,
		version:  "dev",
		started:  time.Now(),
		mux:      http.NewServeMux(),
		logger:   slog.Default(),
		timeout:  5 * time.Second,
		checkers: make(map[string]Checker),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// RegisterChecker adds a readiness checker for the /ready endpoint.
func (s *Server) RegisterChecker(name string, checker Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
	s.logger.Debug("registered readiness checker", slog.String("name", name))
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ready", s.handleReady)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.Handle("/metrics", promhttp.Handler())
}

// handleHealth is liveness: the process is up and serving HTTP.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(Response{Status: "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checkers := make(map[string]Checker, len(s.checkers))
	for name, checker := range s.checkers {
		checkers[name] = checker
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	var components []ComponentStatus
	allReady := true

	for name, checker := range checkers {
		status := ComponentStatus{Name: name, Ready: true}
		if err := checker(ctx); err != nil {
			status.Ready = false
			status.Error = err.Error()
			allReady = false
			s.logger.Warn("readiness check failed",
				slog.String("component", name),
				slog.String("error", err.Error()),
			)
		}
		components = append(components, status)
	}

	w.Header().Set("Content-Type", "application/json")

	resp := Response{Components: components}
	if allReady {
		resp.Status = StatusReady
		w.WriteHeader(http.StatusOK)
	} else {
		resp.Status = StatusNotReady
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Version:       s.version,
		Started:       s.started,
		UptimeSeconds: time.Since(s.started).Seconds(),
	}
	if s.status != nil {
		state, last := s.status()
		resp.DirectoryState = state
		if !last.IsZero() {
			resp.LastUpdate = last.UTC().Format(time.RFC3339)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// Start starts the health server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Info("health server starting", slog.Int("port", s.port))
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("health server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the health server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
