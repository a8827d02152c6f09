// File: server/task_server.go
// Package server exposes the execution core over TCP and HTTP.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TaskServer accepts framed requests, runs each payload through the
// instrumented pool via the user handler, and replies with a RESPONSE
// or ERROR frame carrying the request id. PING frames are answered
// inline with PONG, bypassing the pool.

package server

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/taskring/api"
	"github.com/momentics/taskring/core/concurrency"
	"github.com/momentics/taskring/core/metrics"
	"github.com/momentics/taskring/protocol"
)

// Handler executes one task payload and returns the response payload.
type Handler func(payload []byte) ([]byte, error)

// TaskServer is a TCP frontend over an InstrumentedPool.
type TaskServer struct {
	addr    string
	handler Handler
	cfg     *Config

	pool     *concurrency.InstrumentedPool
	registry *metrics.Registry
	log      zerolog.Logger

	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup

	connMu sync.Mutex
	conns  map[*serverConn]struct{}

	connAccepted   *metrics.Counter
	connActive     *metrics.Gauge
	requestsTotal  *metrics.Counter
	requestErrors  *metrics.Counter
	requestLatency *metrics.Histogram
}

// NewTaskServer builds a server listening on addr. Port 0 requests an
// OS-assigned ephemeral port; read it back via Addr after Start.
// The pool's and server's metrics land in registry; nil gets a private one.
func NewTaskServer(addr string, handler Handler, registry *metrics.Registry, opts ...Option) (*TaskServer, error) {
	if handler == nil {
		return nil, errors.New("server: nil handler")
	}
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	pool, err := concurrency.NewInstrumentedPool(cfg.Workers, cfg.QueueCapacity, registry)
	if err != nil {
		return nil, fmt.Errorf("server: pool init: %w", err)
	}

	s := &TaskServer{
		addr:     addr,
		handler:  handler,
		cfg:      cfg,
		pool:     pool,
		registry: registry,
		log:      cfg.Logger.With().Str("component", "task_server").Logger(),
		conns:    make(map[*serverConn]struct{}),
	}
	s.connAccepted = registry.NewCounter(
		"server_connections_accepted_total",
		"Total TCP connections accepted")
	s.connActive = registry.NewGauge(
		"server_connections_active_current",
		"Currently open TCP connections")
	s.requestsTotal = registry.NewCounter(
		"server_requests_total",
		"Total task requests received")
	s.requestErrors = registry.NewCounter(
		"server_request_errors_total",
		"Total requests that resulted in errors")
	s.requestLatency = registry.NewHistogram(
		"server_request_latency_seconds",
		"End-to-end request latency from receive to send", nil)
	return s, nil
}

// Start binds the listener and launches the accept loop.
func (s *TaskServer) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return api.ErrServerRunning
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("server: listen %s: %w", s.addr, err)
	}
	s.listener = ln
	s.log.Info().Stringer("addr", ln.Addr()).Msg("listening")

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *TaskServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Pool exposes the instrumented pool, mainly for draining in tests.
func (s *TaskServer) Pool() *concurrency.InstrumentedPool { return s.pool }

// Registry returns the metrics registry the server reports into.
func (s *TaskServer) Registry() *metrics.Registry { return s.registry }

// Stop closes the listener and every live connection, drains the pool
// and joins all connection goroutines. Idempotent.
func (s *TaskServer) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	_ = s.listener.Close()

	s.connMu.Lock()
	for sc := range s.conns {
		sc.close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	s.pool.Close()
	s.log.Info().Msg("stopped")
}

func (s *TaskServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}

		s.connAccepted.Inc()
		s.connActive.Inc()

		sc := newServerConn(conn)
		s.connMu.Lock()
		s.conns[sc] = struct{}{}
		stopped := !s.running.Load()
		s.connMu.Unlock()
		if stopped {
			// Raced with Stop: the close sweep may have missed this
			// connection, so close it here.
			sc.close()
		}

		s.wg.Add(2)
		go func() {
			defer s.wg.Done()
			sc.writeLoop()
		}()
		go func() {
			defer s.wg.Done()
			s.readLoop(sc)
			sc.close()
			s.connMu.Lock()
			delete(s.conns, sc)
			s.connMu.Unlock()
			s.connActive.Dec()
		}()
	}
}

// readLoop parses frames until the peer disconnects or sends garbage.
func (s *TaskServer) readLoop(sc *serverConn) {
	for {
		msg, err := protocol.ReadMessage(sc.conn)
		if err != nil {
			return
		}

		switch msg.Type {
		case protocol.TypePing:
			sc.send(&protocol.Message{Type: protocol.TypePong, ID: msg.ID})
		case protocol.TypeRequest:
			s.dispatch(sc, msg)
		default:
			// Unknown frame type: protocol violation, drop the connection.
			s.log.Warn().Uint8("type", byte(msg.Type)).Msg("unexpected frame type")
			return
		}
	}
}

// dispatch hands one request to the pool. The response frame is queued
// from inside the task, so completion order drives write order.
func (s *TaskServer) dispatch(sc *serverConn, req *protocol.Message) {
	s.requestsTotal.Inc()
	start := time.Now()
	payload := req.Payload
	id := req.ID

	err := s.pool.Enqueue(func() error {
		result, err := s.handler(payload)
		if err != nil {
			s.requestErrors.Inc()
			sc.send(&protocol.Message{
				Type:    protocol.TypeError,
				ID:      id,
				Payload: []byte("ERROR: " + err.Error()),
			})
		} else {
			sc.send(&protocol.Message{
				Type:    protocol.TypeResponse,
				ID:      id,
				Payload: result,
			})
		}
		s.requestLatency.ObserveSince(start)
		return err
	})
	if err != nil {
		// Backpressure surfaced synchronously: the pool refused the task.
		s.requestErrors.Inc()
		sc.send(&protocol.Message{
			Type:    protocol.TypeError,
			ID:      id,
			Payload: []byte("ERROR: " + err.Error()),
		})
	}
}
