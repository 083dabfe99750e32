// Package batch validates collections of entities in one operation,
// either sequentially or across a pool of worker goroutines.
//
// Each worker holds its own engine instance, so workers never share
// loader caches or configuration snapshots mid-reload. Results are
// collected in submission order regardless of which worker finishes
// first, and a per-entity failure is reported in that entity's slot
// without aborting the rest of the batch.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/judepayne/validlib/pkg/engine"
	"github.com/judepayne/validlib/pkg/entity"
	"github.com/judepayne/validlib/pkg/extdata"
	"github.com/judepayne/validlib/pkg/result"
)

// ErrEmptyBatch is returned when a batch contains no entities.
var ErrEmptyBatch = errors.New("batch: no entities to validate")

// EntityResult is the validation outcome for one entity in a batch.
// Error is set (and Results empty) when the entity could not be
// validated at all, for example when no adapter route exists.
type EntityResult struct {
	EntityID   string          `json:"entity_id"`
	EntityType string          `json:"entity_type,omitempty"`
	Results    []result.Result `json:"results"`
	Error      string          `json:"error,omitempty"`
}

// EngineFactory builds an engine over the current configuration
// snapshot. The orchestrator calls it once per worker and once for the
// sequential path.
type EngineFactory func() (*engine.Engine, error)

// Orchestrator distributes batch validations over workers.
type Orchestrator struct {
	factory  EngineFactory
	provider extdata.Provider
	parallel bool
	workers  int
	logger   *slog.Logger

	mu   sync.Mutex
	pool *workerPool
	seq  *engine.Engine
}

// New builds an orchestrator. workers bounds the pool size for the
// parallel path; values below one fall back to one. provider may be nil
// to disable associated data fetching.
func New(factory EngineFactory, provider extdata.Provider, parallel bool, workers int, logger *slog.Logger) *Orchestrator {
	if provider == nil {
		provider = extdata.Disabled{}
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		factory:  factory,
		provider: provider,
		parallel: parallel,
		workers:  workers,
		logger:   logger,
	}
}

// Validate runs the ruleset against every entity and returns per-entity
// results in input order.
func (o *Orchestrator) Validate(ctx context.Context, entities []entity.Data, idFields []string, rulesetName string) ([]EntityResult, error) {
	if len(entities) == 0 {
		return nil, ErrEmptyBatch
	}

	runID := uuid.NewString()
	o.logger.Info("batch validation started",
		"run_id", runID, "entities", len(entities), "ruleset", rulesetName, "parallel", o.parallel)

	var (
		results []EntityResult
		err     error
	)
	if o.parallel {
		results, err = o.validateParallel(ctx, entities, idFields, rulesetName)
	} else {
		results, err = o.validateSequential(ctx, entities, idFields, rulesetName)
	}
	if err != nil {
		return nil, err
	}

	o.logger.Info("batch validation finished", "run_id", runID, "entities", len(results))
	return results, nil
}

func (o *Orchestrator) validateSequential(ctx context.Context, entities []entity.Data, idFields []string, rulesetName string) ([]EntityResult, error) {
	eng, err := o.sequentialEngine()
	if err != nil {
		return nil, err
	}
	results := make([]EntityResult, 0, len(entities))
	for _, data := range entities {
		results = append(results, validateOne(ctx, eng, o.provider, data, idFields, rulesetName))
	}
	return results, nil
}

func (o *Orchestrator) validateParallel(ctx context.Context, entities []entity.Data, idFields []string, rulesetName string) ([]EntityResult, error) {
	pool := o.acquirePool()

	out := make([]EntityResult, len(entities))
	var wg sync.WaitGroup
	wg.Add(len(entities))
	for i, data := range entities {
		pool.submit(task{
			ctx:         ctx,
			idx:         i,
			data:        data,
			idFields:    idFields,
			rulesetName: rulesetName,
			out:         out,
			done:        &wg,
		})
	}
	pool.release()
	wg.Wait()
	return out, nil
}

func (o *Orchestrator) sequentialEngine() (*engine.Engine, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.seq == nil {
		eng, err := o.factory()
		if err != nil {
			return nil, err
		}
		o.seq = eng
	}
	return o.seq, nil
}

// ensurePool lazily starts the worker pool; workers build their engines
// on first task, so pool creation itself is near-instant.
func (o *Orchestrator) ensurePool() *workerPool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pool == nil {
		o.pool = newWorkerPool(o.workers, o.factory, o.provider, o.logger)
	}
	return o.pool
}

// acquirePool returns a pool locked against stopping. A Drain landing
// between ensurePool and acquire leaves the orchestrator's pool field
// nil, so the retry always converges on a live pool.
func (o *Orchestrator) acquirePool() *workerPool {
	for {
		pool := o.ensurePool()
		if pool.acquire() {
			return pool
		}
	}
}

// Drain stops the worker pool and discards the sequential engine after
// in-flight tasks complete. The next batch lazily rebuilds both over
// whatever configuration the factory then sees; reloads call Drain
// before swapping configuration.
func (o *Orchestrator) Drain() {
	o.mu.Lock()
	pool := o.pool
	o.pool = nil
	o.seq = nil
	o.mu.Unlock()

	if pool != nil {
		pool.stop()
	}
}

// validateOne runs the full two-phase validation for a single entity.
// Failures are folded into the result's Error field so one entity never
// aborts its batch.
func validateOne(ctx context.Context, eng *engine.Engine, provider extdata.Provider, data entity.Data, idFields []string, rulesetName string) EntityResult {
	entityID := ExtractID(data, idFields)

	entityType, err := DetermineEntityType(data)
	if err != nil {
		return EntityResult{EntityID: entityID, Error: err.Error()}
	}

	terms := eng.RequiredData(entityType, data.SchemaID(), rulesetName)
	external := provider.AssociatedData(ctx, entityType, data, terms)

	results, err := eng.Validate(entityType, data, rulesetName, external)
	if err != nil {
		return EntityResult{EntityID: entityID, EntityType: entityType, Error: err.Error()}
	}
	return EntityResult{EntityID: entityID, EntityType: entityType, Results: results}
}

type task struct {
	ctx         context.Context
	idx         int
	data        entity.Data
	idFields    []string
	rulesetName string
	out         []EntityResult
	done        *sync.WaitGroup
}

// workerPool serializes stopping against in-flight submission: a batch
// holds the read lock from acquire until it has submitted its last task,
// so stop cannot close the task channel mid-batch.
type workerPool struct {
	tasks chan task
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func newWorkerPool(n int, factory EngineFactory, provider extdata.Provider, logger *slog.Logger) *workerPool {
	p := &workerPool{tasks: make(chan task)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.run(i, factory, provider, logger)
	}
	return p
}

func (p *workerPool) run(worker int, factory EngineFactory, provider extdata.Provider, logger *slog.Logger) {
	defer p.wg.Done()

	var eng *engine.Engine
	for t := range p.tasks {
		if eng == nil {
			built, err := factory()
			if err != nil {
				logger.Error("worker engine initialization failed", "worker", worker, "error", err)
				t.out[t.idx] = EntityResult{
					EntityID: ExtractID(t.data, t.idFields),
					Error:    err.Error(),
				}
				t.done.Done()
				continue
			}
			eng = built
		}
		t.out[t.idx] = validateOne(t.ctx, eng, provider, t.data, t.idFields, t.rulesetName)
		t.done.Done()
	}
}

// acquire takes the submission lock. It returns false when the pool has
// already been stopped; the caller must then obtain a fresh pool.
func (p *workerPool) acquire() bool {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return false
	}
	return true
}

// release ends the submission phase begun by acquire.
func (p *workerPool) release() {
	p.mu.RUnlock()
}

func (p *workerPool) submit(t task) {
	p.tasks <- t
}

// stop waits for any submitting batch to finish, closes the task
// channel, and blocks until the workers have drained remaining tasks
// and exited. Safe to call more than once.
func (p *workerPool) stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
