// Package health exposes liveness and readiness probes plus the pipeline
// status for operational visibility.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/signal-intel/internal/adapters/database"
	"github.com/selivandex/signal-intel/pkg/logger"
	"github.com/selivandex/signal-intel/pkg/models"
)

// StatusFunc returns the current pipeline status.
type StatusFunc func() models.PipelineStatus

// Server provides health check HTTP endpoints for K8s
type Server struct {
	server    *http.Server
	db        *database.DB
	status    StatusFunc
	ready     bool
	readyMu   sync.RWMutex
	startTime time.Time
}

// HealthStatus represents process health
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ReadinessStatus represents service readiness
type ReadinessStatus struct {
	Ready     bool                  `json:"ready"`
	Timestamp string                `json:"timestamp"`
	Checks    map[string]string     `json:"checks"`
	Pipeline  models.PipelineStatus `json:"pipeline"`
}

// NewServer creates new health check server. db may be nil when the history
// store runs on files.
func NewServer(port string, db *database.DB, status StatusFunc) *Server {
	mux := http.NewServeMux()

	s := &Server{
		server: &http.Server{
			Addr:         ":" + port,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		db:        db,
		status:    status,
		startTime: time.Now(),
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReadiness)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReadiness)
	mux.HandleFunc("/status", s.handleStatus)

	return s
}

// Start starts the health check server
func (s *Server) Start() error {
	logger.Info("health check server starting",
		zap.String("addr", s.server.Addr),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("stopping health check server...")
	return s.server.Shutdown(ctx)
}

// SetReady marks the service as ready
func (s *Server) SetReady(ready bool) {
	s.readyMu.Lock()
	defer s.readyMu.Unlock()
	s.ready = ready
}

// handleHealth is the liveness probe: 200 while the process is alive, even
// if dependencies are down.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	}

	if r.URL.Query().Get("verbose") == "true" {
		status.Checks = s.dependencyChecks()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// handleReadiness is the readiness probe: 200 only once startup completed
// and dependencies respond.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	s.readyMu.RLock()
	ready := s.ready
	s.readyMu.RUnlock()

	checks := s.dependencyChecks()
	for _, state := range checks {
		if state != "healthy" {
			ready = false
		}
	}

	status := ReadinessStatus{
		Ready:     ready,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Pipeline:  s.status(),
	}

	w.Header().Set("Content-Type", "application/json")
	if ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// handleStatus dumps the pipeline status for debugging.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(s.status())
}

func (s *Server) dependencyChecks() map[string]string {
	checks := make(map[string]string)
	if s.db != nil {
		if err := s.db.Health(); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}
	}
	return checks
}
