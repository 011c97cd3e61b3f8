// Package hubtest provides an in-memory websocket connection for exercising
// the hub and its actors without a network.
package hubtest

import (
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/require"
)

type frame struct {
	data []byte
	err  error
}

// Conn is a fake server-side websocket. Frames pushed with Push are returned
// by ReadMessage; text messages written by the hub show up on Written.
type Conn struct {
	inbound chan frame
	written chan []byte

	mu         sync.Mutex
	closed     bool
	closeCodes []int
	closeCh    chan struct{}
}

func NewConn() *Conn {
	return &Conn{
		inbound: make(chan frame, 64),
		written: make(chan []byte, 256),
		closeCh: make(chan struct{}),
	}
}

// Push delivers a text frame from the peer.
func (c *Conn) Push(data string) {
	c.inbound <- frame{data: []byte(data)}
}

// PeerClose simulates the peer sending a close frame.
func (c *Conn) PeerClose(code int, reason string) {
	c.inbound <- frame{err: &websocket.CloseError{Code: code, Text: reason}}
}

// Fail simulates a transport failure.
func (c *Conn) Fail(err error) {
	c.inbound <- frame{err: err}
}

func (c *Conn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.inbound:
		if f.err != nil {
			return 0, nil, f.err
		}
		return websocket.TextMessage, f.data, nil
	case <-c.closeCh:
		return 0, nil, net.ErrClosed
	}
}

func (c *Conn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return net.ErrClosed
	}
	if messageType == websocket.TextMessage {
		c.written <- append([]byte(nil), data...)
	}
	return nil
}

func (c *Conn) WriteControl(messageType int, data []byte, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return net.ErrClosed
	}
	if messageType == websocket.CloseMessage {
		code := websocket.CloseNoStatusReceived
		if len(data) >= 2 {
			code = int(binary.BigEndian.Uint16(data))
		}
		c.closeCodes = append(c.closeCodes, code)
	}
	return nil
}

func (c *Conn) SetReadDeadline(time.Time) error                   { return nil }
func (c *Conn) SetWriteDeadline(time.Time) error                  { return nil }
func (c *Conn) SetReadLimit(int64)                                {}
func (c *Conn) SetPongHandler(func(appData string) error)         {}
func (c *Conn) SetCloseHandler(func(code int, text string) error) {}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closeCh)
	return nil
}

func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// CloseCodes returns the codes of every close frame written so far.
func (c *Conn) CloseCodes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.closeCodes...)
}

// Next waits for the next text message written to the peer.
func (c *Conn) Next(t testing.TB) []byte {
	t.Helper()

	select {
	case msg := <-c.written:
		return msg
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for a message")
		return nil
	}
}

// Quiet asserts that nothing is written to the peer for d.
func (c *Conn) Quiet(t testing.TB, d time.Duration) {
	t.Helper()

	select {
	case msg := <-c.written:
		require.FailNowf(t, "unexpected message", "%s", msg)
	case <-time.After(d):
	}
}

// ErrBroken is a convenient transport failure for Fail.
var ErrBroken = errors.New("broken pipe")
