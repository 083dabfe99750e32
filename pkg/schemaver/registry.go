package schemaver

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/judepayne/validlib/pkg/entity"
)

// ResolutionError reports that no adapter route exists for an entity.
// It aborts the affected unit of work: one entity in parallel batch mode,
// the whole call in single-entity mode.
type ResolutionError struct {
	SchemaID   string
	EntityType string
	Reason     string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("schemaver: no adapter route (schema=%q, entity_type=%q): %s",
		e.SchemaID, e.EntityType, e.Reason)
}

// Options control version-compatibility behavior, sourced from the
// version_compatibility section of business configuration.
type Options struct {
	// AllowMinorFallback routes an unknown minor version to a registered
	// identifier sharing the same entity type and major version.
	AllowMinorFallback bool
	// StrictMajor rejects identifiers whose major version has no
	// registered adapter instead of falling through to defaults.
	StrictMajor bool
}

// Registry maps schema identifiers to adapter constructors. It is an
// explicit object owned by the engine, constructed once at initialization
// and replaced wholesale on reload.
type Registry struct {
	mu       sync.RWMutex
	schemas  map[string]entity.Constructor // schema identifier → constructor
	defaults map[string]entity.Constructor // entity type → constructor
	opts     Options
	deref    *Dereferencer // nil disables schema-document dereferencing
	logger   *slog.Logger
}

// NewRegistry returns an empty registry with the given compatibility
// options. deref may be nil to disable identifier dereferencing.
func NewRegistry(opts Options, deref *Dereferencer, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		schemas:  make(map[string]entity.Constructor),
		defaults: make(map[string]entity.Constructor),
		opts:     opts,
		deref:    deref,
		logger:   logger,
	}
}

// RegisterSchema routes the exact schema identifier to the constructor.
func (r *Registry) RegisterSchema(schemaID string, c entity.Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[schemaID] = c
}

// RegisterDefault routes entities of the given type that declare no
// (resolvable) schema identifier to the constructor.
func (r *Registry) RegisterDefault(entityType string, c entity.Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults[entityType] = c
}

// Resolve returns the adapter constructor for the given entity data.
//
// Resolution order, first match wins:
//  1. exact match on the (possibly dereferenced) schema identifier
//  2. minor-version fallback, when enabled
//  3. strict-major rejection, when enabled and the identifier parsed
//  4. default adapter for the entity type (hint, or parsed from the id)
func (r *Registry) Resolve(data entity.Data, entityTypeHint string) (entity.Constructor, error) {
	// Dereferencing may hit the network; it reads no registry state, so
	// it runs before the lock to keep writers unblocked.
	schemaID := data.SchemaID()
	if schemaID != "" && r.deref != nil {
		schemaID = r.deref.Canonical(schemaID)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if schemaID != "" {
		if c, ok := r.schemas[schemaID]; ok {
			return c, nil
		}

		if r.opts.AllowMinorFallback {
			if c, ok := r.minorFallback(schemaID); ok {
				return c, nil
			}
		}

		if r.opts.StrictMajor {
			if id, err := Parse(schemaID); err == nil {
				if !r.hasMajor(id) {
					return nil, &ResolutionError{
						SchemaID:   schemaID,
						EntityType: entityTypeHint,
						Reason:     "unknown major version",
					}
				}
				// A registered identifier shares this major version but
				// fallback is disabled; continue to the default route.
			}
			// Unparseable identifiers fall through to the default route.
		}
	}

	resolvedType := entityTypeHint
	if resolvedType == "" && schemaID != "" {
		if id, err := Parse(schemaID); err == nil {
			resolvedType = id.EntityType
		}
	}

	if resolvedType != "" {
		if c, ok := r.defaults[resolvedType]; ok {
			return c, nil
		}
	}

	return nil, &ResolutionError{
		SchemaID:   schemaID,
		EntityType: entityTypeHint,
		Reason:     "no exact, fallback, or default route",
	}
}

// minorFallback scans registered identifiers for one sharing the entity
// type and major version of schemaID. Unparseable candidates are skipped.
func (r *Registry) minorFallback(schemaID string) (entity.Constructor, bool) {
	id, err := Parse(schemaID)
	if err != nil {
		return nil, false
	}
	for registered, c := range r.schemas {
		reg, err := Parse(registered)
		if err != nil {
			continue
		}
		if reg.EntityType == id.EntityType && reg.Major() == id.Major() {
			r.logger.Debug("minor-version fallback",
				"declared", schemaID, "resolved", registered)
			return c, true
		}
	}
	return nil, false
}

func (r *Registry) hasMajor(id ID) bool {
	for registered := range r.schemas {
		reg, err := Parse(registered)
		if err != nil {
			continue
		}
		if reg.EntityType == id.EntityType && reg.Major() == id.Major() {
			return true
		}
	}
	return false
}
