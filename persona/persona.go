// Package persona defines council member descriptors, the ordered registry
// they are drawn from, and the prompt composer that turns a descriptor into
// a system instruction.
package persona

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/arbiterlabs/council/types"
)

// Descriptor describes one council member: who it is and how it should
// approach a question.
type Descriptor struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Role     string `json:"role" yaml:"role"`
	Focus    string `json:"focus,omitempty" yaml:"focus,omitempty"`
	Identity string `json:"identity" yaml:"identity"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"` // per-persona model override
}

// Validate checks that the descriptor is usable.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return types.NewError(types.ErrInvalidRequest, "persona id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return types.NewError(types.ErrInvalidRequest, fmt.Sprintf("persona %s: name is required", d.ID))
	}
	if strings.TrimSpace(d.Identity) == "" {
		return types.NewError(types.ErrInvalidRequest, fmt.Sprintf("persona %s: identity is required", d.ID))
	}
	return nil
}

// Registry holds the council roster. Iteration order is insertion order, and
// that order is what makes fan-out results position-stable, so the registry
// never reorders or sorts.
type Registry struct {
	ordered []Descriptor
	byID    map[string]int
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewRegistry creates an empty roster.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		byID:   make(map[string]int),
		logger: logger.With(zap.String("component", "persona_registry")),
	}
}

// Add appends a persona to the roster. Duplicate IDs are rejected.
func (r *Registry) Add(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[d.ID]; exists {
		return types.NewError(types.ErrInvalidRequest, fmt.Sprintf("persona %s already registered", d.ID))
	}
	r.byID[d.ID] = len(r.ordered)
	r.ordered = append(r.ordered, d)

	r.logger.Debug("persona registered",
		zap.String("id", d.ID),
		zap.String("name", d.Name),
		zap.Int("position", len(r.ordered)-1),
	)
	return nil
}

// Get returns the persona with the given ID.
func (r *Registry) Get(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return r.ordered[idx], true
}

// All returns the roster in registration order. The slice is a copy.
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the roster size.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}
