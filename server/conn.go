// File: server/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection state. Responses are produced by pool workers in
// completion order, not request order, so each connection owns an
// outbound FIFO drained by a single writer goroutine. The FIFO keeps
// frame writes serialized without holding a lock across the socket write.

package server

import (
	"net"
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/taskring/protocol"
)

type serverConn struct {
	conn net.Conn

	mu     sync.Mutex
	cond   *sync.Cond
	out    *queue.Queue // of *protocol.Message
	closed bool
}

func newServerConn(c net.Conn) *serverConn {
	sc := &serverConn{
		conn: c,
		out:  queue.New(),
	}
	sc.cond = sync.NewCond(&sc.mu)
	return sc
}

// send queues msg for the writer goroutine. Messages queued after close
// are dropped; the peer is gone either way.
func (sc *serverConn) send(msg *protocol.Message) {
	sc.mu.Lock()
	if !sc.closed {
		sc.out.Add(msg)
		sc.cond.Signal()
	}
	sc.mu.Unlock()
}

// close wakes the writer and closes the socket. Idempotent.
func (sc *serverConn) close() {
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return
	}
	sc.closed = true
	sc.cond.Signal()
	sc.mu.Unlock()
	_ = sc.conn.Close()
}

// writeLoop drains the outbound FIFO until the connection closes.
func (sc *serverConn) writeLoop() {
	for {
		sc.mu.Lock()
		for sc.out.Length() == 0 && !sc.closed {
			sc.cond.Wait()
		}
		if sc.out.Length() == 0 && sc.closed {
			sc.mu.Unlock()
			return
		}
		msg := sc.out.Remove().(*protocol.Message)
		sc.mu.Unlock()

		if err := protocol.WriteMessage(sc.conn, msg); err != nil {
			sc.close()
			return
		}
	}
}
