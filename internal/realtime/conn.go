// Package realtime holds the connection registry and event fan-out core:
// live connections keyed by user, best-effort delivery to recipient sets,
// and presence derived from registry occupancy.
package realtime

import (
	"errors"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var ErrConnClosed = errors.New("connection closed")

// Transport is the write side of one live client connection. Send must
// report failure explicitly; a failed transport is treated as dead and
// never written to again.
type Transport interface {
	Send(payload []byte) error
	Close() error
}

// Conn binds one transport to exactly one authenticated user for its
// whole lifetime. Once closed it stays closed; a client reconnects by
// re-running the session gate with a fresh transport.
type Conn struct {
	id            string
	userID        string
	establishedAt time.Time

	mu        sync.Mutex
	closed    bool
	transport Transport
}

func NewConn(userID string, transport Transport) *Conn {
	return &Conn{
		id:            gonanoid.Must(),
		userID:        userID,
		establishedAt: time.Now(),
		transport:     transport,
	}
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) UserID() string {
	return c.userID
}

func (c *Conn) EstablishedAt() time.Time {
	return c.establishedAt
}

// Send writes one frame to the transport. Writes are serialized; sending
// on a closed connection returns ErrConnClosed.
func (c *Conn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnClosed
	}

	return c.transport.Send(payload)
}

// Close is idempotent. In-flight sends racing with Close may still reach
// the transport; that is acceptable, the peer is going away anyway.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	return c.transport.Close()
}
