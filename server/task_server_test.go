package server

import (
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/taskring/core/metrics"
	"github.com/momentics/taskring/protocol"
)

func startEchoServer(t *testing.T, handler Handler) (*TaskServer, *metrics.Registry) {
	t.Helper()
	reg := metrics.NewRegistry()
	s, err := NewTaskServer("127.0.0.1:0", handler, reg, WithWorkers(2), WithQueueCapacity(64))
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return s, reg
}

func dialServer(t *testing.T, s *TaskServer) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestTaskServer_EphemeralPortReported(t *testing.T) {
	s, _ := startEchoServer(t, func(p []byte) ([]byte, error) { return p, nil })
	addr, ok := s.Addr().(*net.TCPAddr)
	require.True(t, ok)
	assert.NotZero(t, addr.Port)
}

func TestTaskServer_RequestResponse(t *testing.T) {
	s, _ := startEchoServer(t, func(p []byte) ([]byte, error) {
		return append([]byte("echo: "), p...), nil
	})
	conn := dialServer(t, s)

	req := &protocol.Message{Type: protocol.TypeRequest, ID: 11, Payload: []byte("hello")}
	require.NoError(t, protocol.WriteMessage(conn, req))

	resp, err := protocol.ReadMessage(conn)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeResponse, resp.Type)
	assert.Equal(t, uint32(11), resp.ID)
	assert.Equal(t, "echo: hello", resp.PayloadString())
}

func TestTaskServer_PingPong(t *testing.T) {
	s, _ := startEchoServer(t, func(p []byte) ([]byte, error) { return p, nil })
	conn := dialServer(t, s)

	require.NoError(t, protocol.WriteMessage(conn,
		&protocol.Message{Type: protocol.TypePing, ID: 5}))
	resp, err := protocol.ReadMessage(conn)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypePong, resp.Type)
	assert.Equal(t, uint32(5), resp.ID)
}

func TestTaskServer_HandlerErrorBecomesErrorFrame(t *testing.T) {
	s, reg := startEchoServer(t, func(p []byte) ([]byte, error) {
		return nil, errors.New("no such task")
	})
	conn := dialServer(t, s)

	require.NoError(t, protocol.WriteMessage(conn,
		&protocol.Message{Type: protocol.TypeRequest, ID: 8, Payload: []byte("x")}))
	resp, err := protocol.ReadMessage(conn)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeError, resp.Type)
	assert.Equal(t, uint32(8), resp.ID)
	assert.True(t, strings.HasPrefix(resp.PayloadString(), "ERROR: "))

	s.Pool().WaitAll()
	assert.Contains(t, reg.Serialize(), "server_request_errors_total 1")
}

func TestTaskServer_ServerMetricsTracked(t *testing.T) {
	s, reg := startEchoServer(t, func(p []byte) ([]byte, error) { return p, nil })
	conn := dialServer(t, s)

	for i := uint32(1); i <= 3; i++ {
		require.NoError(t, protocol.WriteMessage(conn,
			&protocol.Message{Type: protocol.TypeRequest, ID: i, Payload: []byte("t")}))
		_, err := protocol.ReadMessage(conn)
		require.NoError(t, err)
	}
	s.Pool().WaitAll()

	page := reg.Serialize()
	assert.Contains(t, page, "server_connections_accepted_total 1")
	assert.Contains(t, page, "server_requests_total 3")
	assert.Contains(t, page, "server_request_latency_seconds_count 3")
}

func TestTaskServer_StartTwiceFails(t *testing.T) {
	s, _ := startEchoServer(t, func(p []byte) ([]byte, error) { return p, nil })
	assert.Error(t, s.Start())
}

func TestTaskServer_StopIsIdempotent(t *testing.T) {
	reg := metrics.NewRegistry()
	s, err := NewTaskServer("127.0.0.1:0", func(p []byte) ([]byte, error) { return p, nil }, reg)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	s.Stop()
	s.Stop()
}

func TestTaskServer_StopDrainsInFlightWork(t *testing.T) {
	s, reg := startEchoServer(t, func(p []byte) ([]byte, error) {
		time.Sleep(2 * time.Millisecond)
		return p, nil
	})
	conn := dialServer(t, s)

	const n = 20
	for i := uint32(1); i <= n; i++ {
		require.NoError(t, protocol.WriteMessage(conn,
			&protocol.Message{Type: protocol.TypeRequest, ID: i, Payload: []byte("w")}))
	}
	// Responses confirm the requests reached the pool before Stop.
	for i := 0; i < n; i++ {
		_, err := protocol.ReadMessage(conn)
		require.NoError(t, err)
	}
	s.Stop()
	assert.Contains(t, reg.Serialize(), "tasks_completed_total 20")
}
