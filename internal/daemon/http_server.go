package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/cortex/internal/logfields"
	"git.home.luguber.info/inful/cortex/internal/metrics"
)

const readHeaderTimeout = 5 * time.Second

// HTTPServer serves Prometheus metrics and the health endpoint.
type HTTPServer struct {
	listen string
	mux    *http.ServeMux
	server *http.Server
	addr   net.Addr
}

// NewHTTPServer creates the admin server. health reports daemon state for /healthz.
func NewHTTPServer(listen string, reg *prom.Registry, health func() HealthResponse) *HTTPServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		resp := health()
		code := http.StatusOK
		if resp.Status == HealthStatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	})
	return &HTTPServer{listen: listen, mux: mux}
}

// Start binds the listener up front so address conflicts fail startup, then
// serves in the background.
func (s *HTTPServer) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("metrics listener %s: %w", s.listen, err)
	}
	s.addr = ln.Addr()
	s.server = &http.Server{Handler: s.mux, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server stopped", logfields.Error(err))
		}
	}()
	slog.Info("Metrics server listening", slog.String("addr", s.addr.String()))
	return nil
}

// Addr returns the bound address once started.
func (s *HTTPServer) Addr() string {
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Stop gracefully shuts the server down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	slog.Info("Metrics server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", logfields.Error(err))
	}
}
