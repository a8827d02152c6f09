// File: server/metrics_server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// MetricsServer serves the registry's Prometheus exposition page.
//
//	GET /metrics → text/plain; version=0.0.4 body from Registry.Serialize
//	GET /health  → "OK" liveness probe
//	other paths  → 404 with an endpoint hint

package server

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/momentics/taskring/core/metrics"
)

// MetricsServer is a minimal HTTP frontend over a metrics registry.
type MetricsServer struct {
	registry *metrics.Registry
	addr     string
	log      zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	srv      *http.Server
}

// NewMetricsServer builds an HTTP server for registry on addr.
// Port 0 requests an ephemeral port; read it back via Addr after Start.
func NewMetricsServer(registry *metrics.Registry, addr string) *MetricsServer {
	return &MetricsServer{
		registry: registry,
		addr:     addr,
		log:      zerolog.New(os.Stderr).With().Timestamp().Str("component", "metrics_server").Logger(),
	}
}

// Start binds the listener and serves in a background goroutine.
func (m *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("metrics server: listen %s: %w", m.addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", m.handle)
	srv := &http.Server{Handler: mux}

	m.mu.Lock()
	m.listener = ln
	m.srv = srv
	m.mu.Unlock()

	m.log.Info().Stringer("addr", ln.Addr()).Msg("serving /metrics")
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			m.log.Error().Err(err).Msg("serve failed")
		}
	}()
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (m *MetricsServer) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

// Stop closes the server. Idempotent.
func (m *MetricsServer) Stop() {
	m.mu.Lock()
	srv := m.srv
	m.srv = nil
	m.mu.Unlock()
	if srv != nil {
		_ = srv.Close()
	}
}

func (m *MetricsServer) handle(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/metrics":
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(m.registry.Serialize()))
	case "/health":
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("OK\n"))
	default:
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Endpoints: /metrics, /health\n"))
	}
}
