// File: facade/taskring.go
// Unified facade layer for the taskring library.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TaskRing aggregates the core components behind a single type: a shared
// metrics registry, the instrumented pool (owned by the task server), the
// framed TCP frontend and the HTTP metrics endpoint. Start and Stop drive
// all of them together.

package facade

import (
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/momentics/taskring/core/concurrency"
	"github.com/momentics/taskring/core/metrics"
	"github.com/momentics/taskring/server"
)

// Config holds parameters immutable per run.
type Config struct {
	ListenAddr    string         // TCP address for the task server
	MetricsAddr   string         // HTTP address for the /metrics endpoint
	Workers       int            // executor worker goroutines
	QueueCapacity int            // bounded ring capacity
	Handler       server.Handler // task payload handler
	Logger        zerolog.Logger // shared structured logger
}

// DefaultConfig returns defaults matching a small local deployment:
// task server on :8080, metrics on :9090, four workers over a 1024 ring.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:    ":8080",
		MetricsAddr:   ":9090",
		Workers:       4,
		QueueCapacity: 1024,
		Logger:        zerolog.New(os.Stderr).With().Timestamp().Logger(),
	}
}

// TaskRing is the main facade type.
type TaskRing struct {
	registry   *metrics.Registry
	taskServer *server.TaskServer
	metricsSrv *server.MetricsServer

	mu      sync.Mutex
	started bool
}

// New constructs the facade from cfg. A nil cfg selects DefaultConfig;
// cfg.Handler must be set.
func New(cfg *Config) (*TaskRing, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("facade: config requires a Handler")
	}

	registry := metrics.NewRegistry()
	ts, err := server.NewTaskServer(cfg.ListenAddr, cfg.Handler, registry,
		server.WithWorkers(cfg.Workers),
		server.WithQueueCapacity(cfg.QueueCapacity),
		server.WithLogger(cfg.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("facade: task server init: %w", err)
	}

	return &TaskRing{
		registry:   registry,
		taskServer: ts,
		metricsSrv: server.NewMetricsServer(registry, cfg.MetricsAddr),
	}, nil
}

// Start launches the task server and the metrics endpoint.
// Subsequent calls have no effect.
func (t *TaskRing) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil
	}
	if err := t.taskServer.Start(); err != nil {
		return err
	}
	if err := t.metricsSrv.Start(); err != nil {
		t.taskServer.Stop()
		return err
	}
	t.started = true
	return nil
}

// Stop shuts both servers down, draining in-flight work.
func (t *TaskRing) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return
	}
	t.metricsSrv.Stop()
	t.taskServer.Stop()
	t.started = false
}

// Registry returns the shared metrics registry.
func (t *TaskRing) Registry() *metrics.Registry { return t.registry }

// Pool returns the instrumented pool executing task payloads.
func (t *TaskRing) Pool() *concurrency.InstrumentedPool { return t.taskServer.Pool() }

// TaskAddr returns the task server's bound address, or nil before Start.
func (t *TaskRing) TaskAddr() net.Addr { return t.taskServer.Addr() }

// MetricsAddr returns the metrics server's bound address, or nil before Start.
func (t *TaskRing) MetricsAddr() net.Addr { return t.metricsSrv.Addr() }
