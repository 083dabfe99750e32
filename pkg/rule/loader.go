package rule

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/judepayne/validlib/pkg/ruleset"
)

// Strategy selects how a rule identifier is resolved to a registration.
type Strategy int

const (
	// PathMode searches every known entity type in order for the
	// identifier; the first match wins and fixes the rule's entity type.
	PathMode Strategy = iota
	// ResolvedMode infers the entity type (from ruleset configuration)
	// and looks the identifier up directly, retrying the other known
	// entity types when the inference was wrong.
	ResolvedMode
)

// LoadError reports that an identifier could not be resolved to a usable
// rule implementation. It is fatal for that rule only: siblings in the
// same ruleset still load and execute.
type LoadError struct {
	RuleID string
	Tried  []string
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("rule: load %q: %s (tried entity types: %s)",
		e.RuleID, e.Reason, strings.Join(e.Tried, ", "))
}

type cacheEntry struct {
	factory    Factory
	entityType string
}

// Loader resolves rule identifiers from ruleset configuration to fresh
// rule instances. Resolutions are cached by identifier for the loader's
// lifetime; a reload discards the whole loader. Every lookup returns a
// new instance even on a cache hit.
type Loader struct {
	registry    *Registry
	strategy    Strategy
	cfg         *ruleset.Config
	entityTypes []string
	fallback    string
	logger      *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewLoader builds a loader over the registry using the entity types and
// rulesets declared in cfg. The first configured entity type is the
// fallback for identifiers no ruleset mentions.
func NewLoader(registry *Registry, strategy Strategy, cfg *ruleset.Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	types := cfg.EntityTypes
	fallback := ""
	if len(types) > 0 {
		fallback = types[0]
	}
	return &Loader{
		registry:    registry,
		strategy:    strategy,
		cfg:         cfg,
		entityTypes: types,
		fallback:    fallback,
		logger:      logger,
		cache:       make(map[string]cacheEntry),
	}
}

// Load flattens the forest pre-order (parents before children, siblings
// in configuration order) and instantiates each resolvable rule.
// Unresolvable identifiers are logged and skipped; the executor reports
// them as NORUN when their node is reached.
func (l *Loader) Load(forest []ruleset.Node) []Rule {
	var rules []Rule
	for _, node := range forest {
		if r, err := l.LoadRule(node.RuleID); err != nil {
			l.logger.Warn("rule not loadable", "rule_id", node.RuleID, "error", err)
		} else {
			rules = append(rules, r)
		}
		rules = append(rules, l.Load(node.Children)...)
	}
	return rules
}

// LoadRule resolves one identifier to a fresh instance.
func (l *Loader) LoadRule(ruleID string) (Rule, error) {
	l.mu.Lock()
	entry, hit := l.cache[ruleID]
	l.mu.Unlock()

	if !hit {
		var err error
		entry, err = l.resolve(ruleID)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cache[ruleID] = entry
		l.mu.Unlock()
	}

	r := entry.factory(ruleID)
	if r == nil {
		return nil, &LoadError{
			RuleID: ruleID,
			Tried:  []string{entry.entityType},
			Reason: "factory produced no rule implementation",
		}
	}
	return r, nil
}

func (l *Loader) resolve(ruleID string) (cacheEntry, error) {
	switch l.strategy {
	case ResolvedMode:
		return l.resolveInferred(ruleID)
	default:
		return l.resolvePath(ruleID)
	}
}

// resolvePath scans the known entity types in configuration order.
func (l *Loader) resolvePath(ruleID string) (cacheEntry, error) {
	for _, et := range l.searchTypes() {
		if f, ok := l.registry.Lookup(et, ruleID); ok {
			return cacheEntry{factory: f, entityType: et}, nil
		}
	}
	return cacheEntry{}, &LoadError{
		RuleID: ruleID,
		Tried:  l.searchTypes(),
		Reason: "no registration found",
	}
}

// resolveInferred infers the entity type from ruleset configuration, then
// retries the remaining known types when the inference misses.
func (l *Loader) resolveInferred(ruleID string) (cacheEntry, error) {
	inferred, ok := l.cfg.InferEntityType(ruleID)
	if !ok {
		inferred = l.fallback
	}

	tried := []string{inferred}
	if f, ok := l.registry.Lookup(inferred, ruleID); ok {
		return cacheEntry{factory: f, entityType: inferred}, nil
	}
	for _, et := range l.searchTypes() {
		if et == inferred {
			continue
		}
		tried = append(tried, et)
		if f, ok := l.registry.Lookup(et, ruleID); ok {
			return cacheEntry{factory: f, entityType: et}, nil
		}
	}
	return cacheEntry{}, &LoadError{RuleID: ruleID, Tried: tried, Reason: "no registration found"}
}

func (l *Loader) searchTypes() []string {
	if len(l.entityTypes) > 0 {
		return l.entityTypes
	}
	return l.registry.EntityTypes()
}
