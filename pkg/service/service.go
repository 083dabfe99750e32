// Package service is the embeddable entry point of the library. It owns
// the configuration store, the adapter and rule registries, the engine,
// and the batch orchestrator, and exposes the validation operations
// transports call.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/judepayne/validlib/pkg/batch"
	"github.com/judepayne/validlib/pkg/config"
	"github.com/judepayne/validlib/pkg/engine"
	"github.com/judepayne/validlib/pkg/entity"
	"github.com/judepayne/validlib/pkg/extdata"
	"github.com/judepayne/validlib/pkg/result"
	"github.com/judepayne/validlib/pkg/rule"
	"github.com/judepayne/validlib/pkg/rule/celrule"
	loanrules "github.com/judepayne/validlib/pkg/rules/loan"
	"github.com/judepayne/validlib/pkg/ruleset"
	"github.com/judepayne/validlib/pkg/schemaver"
)

// Service provides business entity validation over a reloadable
// configuration. Safe for concurrent use.
type Service struct {
	cfg      *config.Config
	store    *ruleset.Store
	rules    *rule.Registry
	provider extdata.Provider
	orch     *batch.Orchestrator
	logger   *slog.Logger

	mu       sync.RWMutex
	engine   *engine.Engine
	loadedAt time.Time

	watcher *watcher
}

// New builds a service from process configuration: loads the business
// configuration file, registers the built-in rules and adapters, and
// constructs the engine and batch orchestrator.
func New(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := ruleset.NewStore(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	return newWithStore(cfg, store, logger)
}

// NewWithConfig builds a service over an already-parsed business
// configuration. Reload and watching are unavailable for such services.
func NewWithConfig(cfg *config.Config, business *ruleset.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return newWithStore(cfg, ruleset.NewStoreFromConfig(business), logger)
}

func newWithStore(cfg *config.Config, store *ruleset.Store, logger *slog.Logger) (*Service, error) {
	rules := rule.NewRegistry()
	if err := loanrules.Register(rules); err != nil {
		return nil, err
	}

	var provider extdata.Provider = extdata.Disabled{}
	if cfg.CoordinationURL != "" {
		provider = extdata.NewHTTPProvider(cfg.CoordinationURL, cfg.CoordinationTimeout, logger)
	}

	s := &Service{
		cfg:      cfg,
		store:    store,
		rules:    rules,
		provider: provider,
		logger:   logger,
	}
	s.orch = batch.New(s.buildEngine, provider, cfg.BatchParallel, cfg.BatchWorkers, logger)

	eng, err := s.buildEngine()
	if err != nil {
		return nil, err
	}
	s.engine = eng
	s.loadedAt = time.Now()
	return s, nil
}

// buildEngine assembles an engine over the current configuration
// snapshot. Called at startup, after each reload, and once per batch
// worker.
func (s *Service) buildEngine() (*engine.Engine, error) {
	business := s.store.Config()

	rules, err := s.ruleRegistryFor(business)
	if err != nil {
		return nil, err
	}
	schemas, err := s.schemaRegistryFor(business)
	if err != nil {
		return nil, err
	}

	loader := rule.NewLoader(rules, rule.ResolvedMode, business, s.logger)
	return engine.New(business, schemas, loader, s.logger), nil
}

// ruleRegistryFor clones the built-in registry and adds the
// configuration-declared expression rules.
func (s *Service) ruleRegistryFor(business *ruleset.Config) (*rule.Registry, error) {
	rules := s.rules.Clone()
	for _, spec := range business.CELRules {
		factory, err := celrule.Compile(spec)
		if err != nil {
			return nil, err
		}
		if err := rules.Register(spec.EntityType, spec.RuleID, factory); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

// schemaRegistryFor builds adapter routing from the configuration's
// schema_to_adapter_mapping and default_adapters sections.
func (s *Service) schemaRegistryFor(business *ruleset.Config) (*schemaver.Registry, error) {
	var deref *schemaver.Dereferencer
	if s.cfg.DereferenceSchemas {
		deref = schemaver.NewDereferencer(0, s.logger)
	}
	registry := schemaver.NewRegistry(schemaver.Options{
		AllowMinorFallback: business.VersionCompatibility.AllowMinorVersionFallback,
		StrictMajor:        business.VersionCompatibility.StrictMajorVersion,
	}, deref, s.logger)

	adapters := entity.Builtin()
	for schemaID, name := range business.SchemaAdapters {
		ctor, ok := adapters[name]
		if !ok {
			return nil, fmt.Errorf("service: unknown adapter %q for schema %s", name, schemaID)
		}
		registry.RegisterSchema(schemaID, ctor)
	}
	for entityType, name := range business.DefaultAdapters {
		ctor, ok := adapters[name]
		if !ok {
			return nil, fmt.Errorf("service: unknown default adapter %q for entity type %s", name, entityType)
		}
		registry.RegisterDefault(entityType, ctor)
	}
	return registry, nil
}

func (s *Service) currentEngine() *engine.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Validate runs the named ruleset against one entity and returns the
// hierarchical results. entityType may be "" to derive it from the
// entity's schema identifier or entity_type field.
func (s *Service) Validate(ctx context.Context, entityType string, data entity.Data, rulesetName string) ([]result.Result, error) {
	if entityType == "" {
		derived, err := batch.DetermineEntityType(data)
		if err != nil {
			return nil, err
		}
		entityType = derived
	}

	eng := s.currentEngine()
	terms := eng.RequiredData(entityType, data.SchemaID(), rulesetName)
	external := s.provider.AssociatedData(ctx, entityType, data, terms)
	return eng.Validate(entityType, data, rulesetName, external)
}

// DiscoverRules returns metadata for every rule the ruleset would run
// against the entity.
func (s *Service) DiscoverRules(entityType string, data entity.Data, rulesetName string) (map[string]engine.RuleInfo, error) {
	if entityType == "" {
		derived, err := batch.DetermineEntityType(data)
		if err != nil {
			return nil, err
		}
		entityType = derived
	}
	return s.currentEngine().DiscoverRules(entityType, data, rulesetName)
}

// DiscoverRulesets returns metadata and statistics for every configured
// ruleset.
func (s *Service) DiscoverRulesets() map[string]engine.RulesetInfo {
	return s.currentEngine().DiscoverRulesets()
}

// ValidateBatch validates multiple entities, in parallel when the
// service is configured for it, returning per-entity results in input
// order.
func (s *Service) ValidateBatch(ctx context.Context, entities []entity.Data, idFields []string, rulesetName string) ([]batch.EntityResult, error) {
	return s.orch.Validate(ctx, entities, idFields, rulesetName)
}

// ValidateBatchFile loads entities from a file URI and validates them
// as a batch.
func (s *Service) ValidateBatchFile(ctx context.Context, fileURI string, idFields []string, rulesetName string) ([]batch.EntityResult, error) {
	entities, err := batch.LoadEntities(fileURI)
	if err != nil {
		return nil, err
	}
	return s.orch.Validate(ctx, entities, idFields, rulesetName)
}

// Reload drains the batch worker pool, re-reads the business
// configuration, and rebuilds the engine over the new snapshot.
// In-flight validations finish against the old snapshot.
func (s *Service) Reload() error {
	s.orch.Drain()

	if err := s.store.Reload(); err != nil {
		return err
	}
	eng, err := s.buildEngine()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.engine = eng
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("business configuration reloaded", "path", s.store.Path())
	return nil
}

// CacheAge returns how long ago the current configuration snapshot was
// loaded.
func (s *Service) CacheAge() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.loadedAt)
}

// Watch starts watching the configuration file and reloads on change.
// No-op when the service was built from an in-memory configuration.
func (s *Service) Watch() error {
	if s.store.Path() == "" {
		return nil
	}
	w, err := newWatcher(s.store.Path(), s.logger, func() {
		if err := s.Reload(); err != nil {
			s.logger.Error("automatic reload failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.watcher = w
	return nil
}

// Close stops the watcher and drains the batch worker pool.
func (s *Service) Close() {
	if s.watcher != nil {
		s.watcher.stop()
		s.watcher = nil
	}
	s.orch.Drain()
}

// ParseLevel maps a configuration log level string to a slog level,
// defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
