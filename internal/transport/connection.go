package transport

import (
	"sync"

	"github.com/hashicorp/yamux"
)

// Connection is the opaque transport handle the control connection owns
// exclusively while it is connected or mid-reconnect. It wraps a single
// yamux session multiplexing CQL-shaped requests as individual streams.
type Connection struct {
	Host string

	mu        sync.Mutex
	session   *yamux.Session
	closeOnce sync.Once
	onClosed  []func()
}

// NewConnection wraps an already-established yamux session as a Connection.
// Any Connector implementation (the default WSConnector, or a fake used in
// tests) builds its result this way.
func NewConnection(host string, session *yamux.Session) *Connection {
	return &Connection{Host: host, session: session}
}

// Connected reports whether the underlying session is still usable.
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil && !c.session.IsClosed()
}

// OnClosed registers fn to run exactly once, the first time this connection
// closes for any reason (explicit Close, or the transport dying underneath
// it). Multiple registrations all run; the control connection registers
// exactly one per the single-subscription invariant.
func (c *Connection) OnClosed(fn func()) {
	c.mu.Lock()
	session := c.session
	c.onClosed = append(c.onClosed, fn)
	c.mu.Unlock()

	if session == nil {
		return
	}
	go func() {
		<-session.CloseChan()
		c.fireOnClosed()
	}()
}

func (c *Connection) fireOnClosed() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		fns := c.onClosed
		c.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	})
}

// Close tears down the underlying session. Safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return nil
	}
	err := session.Close()
	c.fireOnClosed()
	return err
}

func (c *Connection) openStream() (*yamux.Stream, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil || session.IsClosed() {
		return nil, &QueryError{Code: 0, Message: "not connected"}
	}
	return session.OpenStream()
}
