package farm

import (
	"sync"

	"github.com/fastygo/agroflow/domain"
)

// Change tells subscribers which records of a collection were touched.
type Change struct {
	Collection domain.Collection
	Action     domain.Action
	IDs        []string
}

// Listener receives changes after the collection lock is released.
type Listener func(Change)

type hub struct {
	mu        sync.RWMutex
	listeners map[int]Listener
	next      int
}

func (h *hub) subscribe(fn Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listeners == nil {
		h.listeners = make(map[int]Listener)
	}
	id := h.next
	h.next++
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

func (h *hub) publish(c Change) {
	h.mu.RLock()
	fns := make([]Listener, 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}
