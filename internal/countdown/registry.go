package countdown

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Registry tracks the open countdown connections. It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[*websocket.Conn]struct{})}
}

func (r *Registry) Add(c *websocket.Conn) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
}

// Remove reports whether c was registered.
func (r *Registry) Remove(c *websocket.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[c]
	delete(r.conns, c)
	return ok
}

func (r *Registry) Contains(c *websocket.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[c]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
