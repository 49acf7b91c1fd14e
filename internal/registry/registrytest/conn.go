// Package registrytest provides an in-memory registry.Conn for tests.
package registrytest

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Send on a closed or failing Conn.
var ErrClosed = errors.New("registrytest: connection closed")

// Conn records every payload sent to it.
type Conn struct {
	id string

	mu       sync.Mutex
	open     bool
	failSend bool
	sent     [][]byte
}

func NewConn(id string) *Conn {
	return &Conn{id: id, open: true}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open || c.failSend {
		return ErrClosed
	}
	c.sent = append(c.sent, append([]byte(nil), payload...))
	return nil
}

func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Close marks the connection closed; later sends fail and IsOpen is false.
func (c *Conn) Close() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
}

// FailSends keeps the connection open but makes every Send fail.
func (c *Conn) FailSends() {
	c.mu.Lock()
	c.failSend = true
	c.mu.Unlock()
}

// Sent returns a copy of the payloads delivered so far.
func (c *Conn) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

// Last returns the most recent payload, or nil.
func (c *Conn) Last() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.sent) == 0 {
		return nil
	}
	return c.sent[len(c.sent)-1]
}
