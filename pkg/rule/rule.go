// Package rule defines the validation rule contract and the constructor
// registry rules are resolved from.
//
// A rule is an ordinary Go value implementing Rule, registered under its
// identifier at startup. Identifiers are injected by the loader at
// instantiation time and never hardcoded inside implementations.
package rule

import (
	"github.com/judepayne/validlib/pkg/entity"
	"github.com/judepayne/validlib/pkg/result"
)

// Rule is the contract every validation rule implements.
//
// The executor injects the entity adapter via Bind and the subset of
// external data the rule declared via ProvideData before calling Run.
// Run must express failures through its status; a panic inside Run is
// converted to an ERROR result by the executor.
type Rule interface {
	// ID returns the rule's identifier, injected at construction.
	ID() string
	// AppliesTo returns the entity type this rule validates.
	AppliesTo() string
	// RequiredData returns the vocabulary terms of external data this
	// rule needs (e.g. "parent", "all_siblings"). Empty for rules that
	// only read the entity itself.
	RequiredData() []string
	// Describe returns a plain-English description of the check.
	Describe() string
	// Bind injects the adapter for the entity under validation.
	Bind(a entity.Adapter)
	// ProvideData hands the rule its requested external data. Terms the
	// caller could not supply map to nil; rules treat missing terms as
	// legitimately absent, never as an error.
	ProvideData(data map[string]any)
	// Run executes the check and returns its status and message.
	Run() (result.Status, string)
}

// Factory builds a fresh rule instance with the given identifier.
// The loader calls it once per lookup, so rule state never leaks between
// validations even when the factory itself is cache-hit.
type Factory func(id string) Rule

// Base carries the state common to all rules: the injected identifier,
// the bound adapter, and the provided external data. Rule implementations
// embed it and implement the remaining contract methods.
type Base struct {
	id     string
	entity entity.Adapter
	data   map[string]any
}

// NewBase returns a Base carrying the injected identifier.
func NewBase(id string) Base {
	return Base{id: id}
}

// ID returns the injected rule identifier.
func (b *Base) ID() string { return b.id }

// Bind stores the adapter for the entity under validation.
func (b *Base) Bind(a entity.Adapter) { b.entity = a }

// Entity returns the bound adapter.
func (b *Base) Entity() entity.Adapter { return b.entity }

// ProvideData stores the rule's requested external data.
func (b *Base) ProvideData(data map[string]any) { b.data = data }

// Data returns the provided external data for term, nil when absent.
func (b *Base) Data(term string) any {
	if b.data == nil {
		return nil
	}
	return b.data[term]
}

// ProvidedData returns the full provided external data map.
func (b *Base) ProvidedData() map[string]any { return b.data }
