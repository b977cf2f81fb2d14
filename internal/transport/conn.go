// Package transport owns one client's socket: it serializes outbound
// writes and exposes inbound newline-delimited lines to the caller, which
// decodes them.
package transport

import (
	"bufio"
	"errors"
	"net"
	"sync"

	"github.com/meridian-games/arena/config"
	"github.com/meridian-games/arena/internal/wire"
)

// Conn owns one client's socket.
type Conn struct {
	id   string
	nc   net.Conn
	wmu  sync.Mutex // serializes outbound writes
	done chan struct{}
	once sync.Once
}

// New wraps an accepted net.Conn, enabling TCP_NODELAY when the underlying
// connection is a *net.TCPConn.
func New(id string, nc net.Conn) *Conn {
	if tc, ok := nc.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &Conn{id: id, nc: nc, done: make(chan struct{})}
}

// ID returns this connection's client id.
func (c *Conn) ID() string { return c.id }

// RemoteAddr returns the peer's address for logging.
func (c *Conn) RemoteAddr() string {
	if c.nc == nil {
		return ""
	}
	return c.nc.RemoteAddr().String()
}

// Send serializes v to JSON, appends a newline, and writes it atomically
// with respect to other Send calls on this connection. A write error is
// terminal for the connection: the socket is closed, which ends the reader
// and so runs its cleanup path.
func (c *Conn) Send(v interface{}) error {
	data, err := wire.Encode(v)
	if err != nil {
		return err
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err = c.nc.Write(data); err != nil {
		_ = c.Close()
	}
	return err
}

// Lines returns a Scanner over this connection's inbound byte stream,
// configured with the newline-delimited-JSON frame cap.
func (c *Conn) Lines() *bufio.Scanner {
	return wire.NewScanner(c.nc, config.MaxLineBytes)
}

// TranslateScanErr maps a bufio.Scanner's terminal error to wire.ErrLineTooLong
// when the line exceeded the configured cap, so callers can distinguish an
// oversized-line ProtocolError from an ordinary ConnectionError.
func TranslateScanErr(err error) error {
	if errors.Is(err, bufio.ErrTooLong) {
		return wire.ErrLineTooLong
	}
	return err
}

// Close closes the underlying socket. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.nc.Close()
	})
	return err
}

// Done returns a channel closed when Close has been called.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}
