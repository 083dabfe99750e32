// Package engine is the transport-independent validation core. It ties
// together schema-version adapter routing, ruleset configuration, rule
// loading, and hierarchical execution.
//
// Validation is two-phase: RequiredData introspects the ruleset's rules
// for the external data vocabulary they need, the caller fetches that
// data, and Validate executes the rules with it.
package engine

import (
	"log/slog"
	"sort"

	"github.com/judepayne/validlib/pkg/entity"
	"github.com/judepayne/validlib/pkg/executor"
	"github.com/judepayne/validlib/pkg/result"
	"github.com/judepayne/validlib/pkg/rule"
	"github.com/judepayne/validlib/pkg/ruleset"
	"github.com/judepayne/validlib/pkg/schemaver"
)

// Engine validates entities against configured rulesets. Safe for
// sequential reuse; batch workers each hold their own instance.
type Engine struct {
	cfg     *ruleset.Config
	schemas *schemaver.Registry
	loader  *rule.Loader
	logger  *slog.Logger
}

// New builds an engine over an immutable configuration snapshot. A
// reload constructs a fresh engine rather than mutating this one.
func New(cfg *ruleset.Config, schemas *schemaver.Registry, loader *rule.Loader, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, schemas: schemas, loader: loader, logger: logger}
}

// Config returns the configuration snapshot the engine was built over.
func (e *Engine) Config() *ruleset.Config { return e.cfg }

// RequiredData introspects the ruleset's rules and returns the union of
// their external data vocabulary terms, sorted. Phase one of the
// two-phase validation protocol.
func (e *Engine) RequiredData(entityType, schemaID, rulesetName string) []string {
	forest := e.cfg.RulesFor(rulesetName, schemaID, entityType)
	rules := e.loader.Load(forest)

	seen := make(map[string]struct{})
	for _, r := range rules {
		for _, term := range r.RequiredData() {
			seen[term] = struct{}{}
		}
	}
	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Validate executes the ruleset's rules against the entity and returns
// the hierarchical result forest. external carries the fetched
// associated data keyed by vocabulary term; nil when the ruleset needs
// none. A ruleset with no rules for the entity yields empty results, not
// an error; a missing adapter route is an error.
func (e *Engine) Validate(entityType string, data entity.Data, rulesetName string, external map[string]any) ([]result.Result, error) {
	ctor, err := e.schemas.Resolve(data, entityType)
	if err != nil {
		return nil, err
	}
	adapter := ctor(data, nil)

	forest := e.cfg.RulesFor(rulesetName, data.SchemaID(), entityType)
	if len(forest) == 0 {
		e.logger.Debug("no rules configured",
			"ruleset", rulesetName, "entity_type", entityType, "schema", data.SchemaID())
		return []result.Result{}, nil
	}

	rules := e.loader.Load(forest)
	return executor.New(rules, adapter, external, e.logger).ExecuteForest(forest), nil
}

// RuleInfo is the discovery metadata for one rule.
type RuleInfo struct {
	RuleID            string          `json:"rule_id"`
	EntityType        string          `json:"entity_type"`
	Description       string          `json:"description"`
	RequiredData      []string        `json:"required_data"`
	FieldDependencies []entity.Access `json:"field_dependencies"`
	ApplicableSchemas []string        `json:"applicable_schemas"`
}

// DiscoverRules returns metadata for every rule the ruleset would run
// against the entity, keyed by rule identifier. Field dependencies are
// observed by executing each rule against a tracking adapter; execution
// outcomes (including panics) are ignored, only the access pattern
// matters.
func (e *Engine) DiscoverRules(entityType string, data entity.Data, rulesetName string) (map[string]RuleInfo, error) {
	ctor, err := e.schemas.Resolve(data, entityType)
	if err != nil {
		return nil, err
	}

	forest := e.cfg.RulesFor(rulesetName, data.SchemaID(), entityType)
	rules := e.loader.Load(forest)

	infos := make(map[string]RuleInfo, len(rules))
	for _, r := range rules {
		rec := entity.NewRecorder()
		r.Bind(ctor(data, rec))
		r.ProvideData(map[string]any{})
		probeRun(r)

		infos[r.ID()] = RuleInfo{
			RuleID:            r.ID(),
			EntityType:        r.AppliesTo(),
			Description:       r.Describe(),
			RequiredData:      r.RequiredData(),
			FieldDependencies: rec.Accesses(),
			ApplicableSchemas: e.cfg.ApplicableSchemas(rulesetName, r.ID()),
		}
	}
	return infos, nil
}

// probeRun executes a rule purely to trigger its field accesses.
func probeRun(r rule.Rule) {
	defer func() {
		recover()
	}()
	r.Run()
}

// RulesetInfo is the discovery payload for one configured ruleset.
type RulesetInfo struct {
	Metadata ruleset.Metadata `json:"metadata"`
	Stats    ruleset.Stats    `json:"stats"`
}

// DiscoverRulesets returns metadata and statistics for every configured
// ruleset, keyed by ruleset name.
func (e *Engine) DiscoverRulesets() map[string]RulesetInfo {
	infos := make(map[string]RulesetInfo, len(e.cfg.Rulesets))
	for name, rs := range e.cfg.Rulesets {
		infos[name] = RulesetInfo{
			Metadata: rs.Metadata,
			Stats:    rs.ComputeStats(),
		}
	}
	return infos
}
