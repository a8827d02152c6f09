// File: client/client.go
// Package client implements the framed TCP task client.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One persistent connection per client. Requests are pipelined: Submit
// sends a frame and returns a handle immediately; a background reader
// matches response frames to handles by request id, so responses may
// arrive in any order. Submitting work remotely looks the same as
// submitting locally — location transparency.

package client

import (
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/momentics/taskring/api"
	"github.com/momentics/taskring/protocol"
)

// Result is the handle for one in-flight request.
type Result struct {
	done    chan struct{}
	payload []byte
	err     error
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

func (r *Result) complete(payload []byte, err error) {
	r.payload = payload
	r.err = err
	close(r.done)
}

// Get blocks until the server's response arrives and returns the
// response payload or the server-reported error.
func (r *Result) Get() ([]byte, error) {
	<-r.done
	return r.payload, r.err
}

// Client is a framed TCP task client.
type Client struct {
	conn   net.Conn
	log    zerolog.Logger
	nextID atomic.Uint32
	closed atomic.Bool

	writeMu sync.Mutex // serializes frame writes

	pendingMu sync.Mutex
	pending   map[uint32]*Result

	readerDone chan struct{}
}

// Dial connects to a task server at addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	c := &Client{
		conn:       conn,
		log:        zerolog.New(os.Stderr).With().Timestamp().Str("component", "client").Logger(),
		pending:    make(map[uint32]*Result),
		readerDone: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Submit sends payload as a task request and returns its result handle.
func (c *Client) Submit(payload []byte) (*Result, error) {
	return c.send(protocol.TypeRequest, payload)
}

// Ping round-trips a liveness frame. Returns nil when the server
// answered with PONG.
func (c *Client) Ping() error {
	res, err := c.send(protocol.TypePing, nil)
	if err != nil {
		return err
	}
	_, err = res.Get()
	return err
}

// Close tears down the connection and fails every pending handle.
// Safe to call more than once.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.conn.Close()
	<-c.readerDone
	return err
}

func (c *Client) send(t protocol.MessageType, payload []byte) (*Result, error) {
	if c.closed.Load() {
		return nil, api.ErrClientClosed
	}
	id := c.nextID.Add(1)
	res := newResult()

	c.pendingMu.Lock()
	c.pending[id] = res
	c.pendingMu.Unlock()

	msg := &protocol.Message{Type: t, ID: id, Payload: payload}
	c.writeMu.Lock()
	err := protocol.WriteMessage(c.conn, msg)
	c.writeMu.Unlock()
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("client: send request %d: %w", id, err)
	}
	return res, nil
}

// readLoop correlates inbound frames with pending handles until the
// connection dies, then fails whatever is still outstanding.
func (c *Client) readLoop() {
	defer close(c.readerDone)
	for {
		msg, err := protocol.ReadMessage(c.conn)
		if err != nil {
			c.failPending()
			return
		}

		c.pendingMu.Lock()
		res, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.pendingMu.Unlock()
		if !ok {
			c.log.Warn().Uint32("id", msg.ID).Msg("response for unknown request")
			continue
		}

		switch msg.Type {
		case protocol.TypeResponse, protocol.TypePong:
			res.complete(msg.Payload, nil)
		case protocol.TypeError:
			res.complete(nil, fmt.Errorf("client: remote error: %s", msg.PayloadString()))
		default:
			res.complete(nil, fmt.Errorf("client: unexpected frame type 0x%02x", byte(msg.Type)))
		}
	}
}

func (c *Client) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, res := range c.pending {
		res.complete(nil, api.ErrClientClosed)
		delete(c.pending, id)
	}
}
