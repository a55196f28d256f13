package agents

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ChamsBouzaiene/phoenix/internal/prompts"
)

// Registry maps categories to the responders that serve them.
type Registry struct {
	mu         sync.RWMutex
	responders map[Category]Responder
	order      []Category
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{responders: make(map[Category]Responder)}
}

// Register binds a responder to a category, replacing any previous binding.
func (r *Registry) Register(c Category, responder Responder) {
	if responder == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.responders[c]; !exists {
		r.order = append(r.order, c)
	}
	r.responders[c] = responder
}

// Lookup returns the responder bound to c.
func (r *Registry) Lookup(c Category) (Responder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	responder, ok := r.responders[c]
	return responder, ok
}

// Categories returns the registered categories in registration order.
func (r *Registry) Categories() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Category, len(r.order))
	copy(out, r.order)
	return out
}

// NewDefaultRegistry binds a PersonaResponder to every routable category.
func NewDefaultRegistry(gen Generator, registry *prompts.PromptRegistry, logger *zap.Logger) *Registry {
	r := NewRegistry()
	for _, c := range Categories() {
		r.Register(c, NewPersonaResponder(string(c), gen, registry, logger))
	}
	return r
}
