package rule

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotRegistered is returned when no factory exists for an identifier.
var ErrNotRegistered = errors.New("rule not registered")

// Registry maps (entity type, rule identifier) to rule factories. It is
// the explicit replacement for a rule source directory: the entity type
// plays the role of the per-type subdirectory, the identifier the role of
// the filename. Populated at startup; read-only on the validation path.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]map[string]Factory // entity type → rule id → factory
}

// NewRegistry returns an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]map[string]Factory)}
}

// Register adds a factory under the entity type and identifier.
// Re-registering an identifier for the same entity type is an error.
func (r *Registry) Register(entityType, ruleID string, f Factory) error {
	if f == nil {
		return fmt.Errorf("rule: nil factory for %s/%s", entityType, ruleID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, ok := r.factories[entityType]
	if !ok {
		byID = make(map[string]Factory)
		r.factories[entityType] = byID
	}
	if _, dup := byID[ruleID]; dup {
		return fmt.Errorf("rule: %s/%s already registered", entityType, ruleID)
	}
	byID[ruleID] = f
	return nil
}

// Lookup returns the factory registered under the entity type and
// identifier.
func (r *Registry) Lookup(entityType, ruleID string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[entityType][ruleID]
	return f, ok
}

// EntityTypes returns the entity types with registered rules, sorted.
func (r *Registry) EntityTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for et := range r.factories {
		types = append(types, et)
	}
	sort.Strings(types)
	return types
}

// Clone returns an independent copy of the registry. Workers and reloads
// build on clones so late registrations (for example configuration-declared
// expression rules) never mutate the caller's registry.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewRegistry()
	for et, byID := range r.factories {
		dst := make(map[string]Factory, len(byID))
		for id, f := range byID {
			dst[id] = f
		}
		clone.factories[et] = dst
	}
	return clone
}
