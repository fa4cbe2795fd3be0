package highlight

import (
	"slices"
	"sync"
)

// Registry is the ordered set of live highlights. Iteration follows
// insertion order.
type Registry struct {
	mu    sync.RWMutex
	items map[string]*Highlight
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*Highlight)}
}

// Add registers h.
func (r *Registry) Add(h *Highlight) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[h.ID]; exists {
		return ErrAlreadyExists
	}
	r.items[h.ID] = h
	r.order = append(r.order, h.ID)
	return nil
}

// Get returns the highlight with the given ID.
func (r *Registry) Get(id string) (*Highlight, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.items[id]
	return h, ok
}

// Delete evicts id. It reports whether the entry existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false
	}
	delete(r.items, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return true
}

// List returns the live highlights in registry order.
func (r *Registry) List() []*Highlight {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Highlight, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}

// Len returns the number of live highlights.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
