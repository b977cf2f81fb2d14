// Package registry is the process-wide mapping from client id to connection
// handle: the source of truth for membership and fan-out targets. Only the
// router mutates it.
package registry

import (
	"fmt"
	"sync"

	"github.com/meridian-games/arena/internal/transport"
)

// Registry owns every live Conn, keyed by client id.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*transport.Conn
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{conns: make(map[string]*transport.Conn)}
}

// Add registers a connection under its id.
func (r *Registry) Add(c *transport.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID()] = c
}

// Remove drops a connection from the registry. Safe for an id already
// removed.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Get looks up a connection by id.
func (r *Registry) Get(id string) (*transport.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// All returns a snapshot slice of every registered connection, safe to
// range over after the registry lock is released.
func (r *Registry) All() []*transport.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*transport.Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Send looks up id and writes v to it, satisfying instance.Broadcaster. A
// missing id is reported as an error rather than silently dropped, so the
// caller can decide whether that is worth logging.
func (r *Registry) Send(id string, v interface{}) error {
	c, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("registry: no connection for id %q", id)
	}
	return c.Send(v)
}
