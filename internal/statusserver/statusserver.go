// Package statusserver exposes the daemon's read-only HTTP observability
// surface: liveness/readiness probes, Prometheus metrics, and a debug
// snapshot of the control loop's working set. It carries no API surface
// beyond that — no auth routes, no media routes — since this daemon has
// no end-user-facing HTTP API.
package statusserver

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mediascand/internal/metrics"
	"mediascand/internal/middleware"
	"mediascand/internal/startup"
)

// ReadyChecker reports whether initial bootstrap discovery has completed.
type ReadyChecker interface {
	Ready() bool
}

// Server is the status HTTP server: a thin router wrapping health,
// readiness, metrics, and debug-state endpoints.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	stats      metrics.StatsProvider
	ready      ReadyChecker
	startedAt  time.Time
}

// healthResponse mirrors the shape of the teacher's health handler,
// trimmed to the fields this daemon can actually report.
type healthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

type readyResponse struct {
	Status string `json:"status"`
}

type debugStateResponse struct {
	Ready          bool   `json:"ready"`
	Uptime         string `json:"uptime"`
	ActiveWatches  int    `json:"activeWatches"`
	WatchSlabSize  int    `json:"watchSlabSize"`
	DirCacheSize   int    `json:"dirCacheSize"`
	PendingEntries int    `json:"pendingEntries"`
}

// New builds a Server bound to addr. stats feeds /debug/state; ready
// feeds /readyz.
func New(addr string, stats metrics.StatsProvider, ready ReadyChecker) *Server {
	s := &Server{
		stats:     stats,
		ready:     ready,
		startedAt: time.Now(),
	}

	s.router = s.setupRouter()

	loggingConfig := middleware.DefaultLoggingConfig()
	logged := middleware.Logger(loggingConfig)(s.router)

	compressionConfig := middleware.DefaultCompressionConfig()
	handler := middleware.Compression(compressionConfig)(logged)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)
	r.HandleFunc("/debug/state", s.handleDebugState).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, honoring ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, healthResponse{
		Status:       "healthy",
		Version:      startup.Version,
		Uptime:       time.Since(s.startedAt).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.ready == nil || !s.ready.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, readyResponse{Status: "not_ready"})
		return
	}
	w.WriteHeader(http.StatusOK)
	writeJSON(w, readyResponse{Status: "ready"})
}

func (s *Server) handleDebugState(w http.ResponseWriter, _ *http.Request) {
	stats := s.stats.GetStats()
	ready := s.ready != nil && s.ready.Ready()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, debugStateResponse{
		Ready:          ready,
		Uptime:         time.Since(s.startedAt).Round(time.Second).String(),
		ActiveWatches:  stats.ActiveWatches,
		WatchSlabSize:  stats.WatchSlabSize,
		DirCacheSize:   stats.DirCacheSize,
		PendingEntries: stats.PendingEntries,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}
