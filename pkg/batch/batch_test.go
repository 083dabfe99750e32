package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/judepayne/validlib/pkg/engine"
	"github.com/judepayne/validlib/pkg/entity"
	"github.com/judepayne/validlib/pkg/result"
	"github.com/judepayne/validlib/pkg/rule"
	loanrules "github.com/judepayne/validlib/pkg/rules/loan"
	"github.com/judepayne/validlib/pkg/ruleset"
	"github.com/judepayne/validlib/pkg/schemaver"
)

func TestDetermineEntityType(t *testing.T) {
	t.Run("from schema version segment", func(t *testing.T) {
		et, err := DetermineEntityType(entity.Data{
			"$schema": "https://bank.example.com/schemas/loan/v1.0.0",
		})
		require.NoError(t, err)
		assert.Equal(t, "loan", et)
	})

	t.Run("second-to-last segment fallback", func(t *testing.T) {
		et, err := DetermineEntityType(entity.Data{
			"$schema": "https://bank.example.com/models/facility/latest",
		})
		require.NoError(t, err)
		assert.Equal(t, "facility", et)
	})

	t.Run("explicit entity_type field", func(t *testing.T) {
		et, err := DetermineEntityType(entity.Data{"entity_type": "deal"})
		require.NoError(t, err)
		assert.Equal(t, "deal", et)
	})

	t.Run("non-http schema falls to entity_type", func(t *testing.T) {
		et, err := DetermineEntityType(entity.Data{
			"$schema":     "file:///schemas/loan.json",
			"entity_type": "loan",
		})
		require.NoError(t, err)
		assert.Equal(t, "loan", et)
	})

	t.Run("undeterminable", func(t *testing.T) {
		_, err := DetermineEntityType(entity.Data{"id": "X"})
		assert.ErrorIs(t, err, ErrEntityType)
	})
}

func TestExtractID(t *testing.T) {
	data := entity.Data{"id": "LOAN-001", "client_id": "CLI-123"}

	assert.Equal(t, "LOAN-001", ExtractID(data, []string{"id"}))
	assert.Equal(t, "LOAN-001-CLI-123", ExtractID(data, []string{"id", "client_id"}))
	assert.Equal(t, "LOAN-001", ExtractID(data, []string{"missing", "id"}))
	assert.Equal(t, "unknown", ExtractID(data, []string{"missing"}))
	assert.Equal(t, "unknown", ExtractID(data, nil))
}

func testFactory(t *testing.T) EngineFactory {
	t.Helper()
	cfg := &ruleset.Config{
		Rulesets: map[string]ruleset.Ruleset{
			"quick": {
				Rules: map[string][]ruleset.Node{
					entity.LoanSchemaV1: {
						{RuleID: "rule_003_v1"},
						{RuleID: "rule_004_v1"},
					},
				},
			},
		},
		EntityTypes: []string{"loan"},
	}
	return func() (*engine.Engine, error) {
		rules := rule.NewRegistry()
		if err := loanrules.Register(rules); err != nil {
			return nil, err
		}
		schemas := schemaver.NewRegistry(schemaver.Options{}, nil, nil)
		schemas.RegisterSchema(entity.LoanSchemaV1, entity.NewLoanV1)
		loader := rule.NewLoader(rules, rule.ResolvedMode, cfg, nil)
		return engine.New(cfg, schemas, loader, nil), nil
	}
}

func batchEntities() []entity.Data {
	good := entity.Data{
		"$schema": entity.LoanSchemaV1,
		"id":      "LOAN-001",
		"status":  "active",
		"financial": map[string]any{
			"principal_amount":    1000.0,
			"outstanding_balance": 400.0,
		},
	}
	failing := entity.Data{
		"$schema": entity.LoanSchemaV1,
		"id":      "LOAN-002",
		"status":  "paid_off",
		"financial": map[string]any{
			"principal_amount":    1000.0,
			"outstanding_balance": 250.0,
		},
	}
	broken := entity.Data{"id": "LOAN-003"} // no $schema, no entity_type
	return []entity.Data{good, failing, broken}
}

func assertBatchResults(t *testing.T, results []EntityResult) {
	t.Helper()
	require.Len(t, results, 3)

	assert.Equal(t, "LOAN-001", results[0].EntityID)
	assert.Equal(t, "loan", results[0].EntityType)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, 0, result.CountStatus(results[0].Results, result.StatusFail))

	assert.Equal(t, "LOAN-002", results[1].EntityID)
	assert.Equal(t, 1, result.CountStatus(results[1].Results, result.StatusFail))

	// The undeterminable entity reports an error in its own slot without
	// aborting the batch.
	assert.Equal(t, "LOAN-003", results[2].EntityID)
	assert.NotEmpty(t, results[2].Error)
	assert.Empty(t, results[2].Results)
}

func TestBatchSequential(t *testing.T) {
	o := New(testFactory(t), nil, false, 1, nil)
	defer o.Drain()

	results, err := o.Validate(context.Background(), batchEntities(), []string{"id"}, "quick")
	require.NoError(t, err)
	assertBatchResults(t, results)
}

func TestBatchParallelPreservesOrder(t *testing.T) {
	o := New(testFactory(t), nil, true, 4, nil)
	defer o.Drain()

	results, err := o.Validate(context.Background(), batchEntities(), []string{"id"}, "quick")
	require.NoError(t, err)
	assertBatchResults(t, results)
}

func TestBatchEmpty(t *testing.T) {
	o := New(testFactory(t), nil, true, 2, nil)
	defer o.Drain()

	_, err := o.Validate(context.Background(), nil, []string{"id"}, "quick")
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestDrainAndReuse(t *testing.T) {
	o := New(testFactory(t), nil, true, 2, nil)

	_, err := o.Validate(context.Background(), batchEntities(), []string{"id"}, "quick")
	require.NoError(t, err)

	// Drain simulates a reload; the next batch rebuilds the pool.
	o.Drain()

	results, err := o.Validate(context.Background(), batchEntities(), []string{"id"}, "quick")
	require.NoError(t, err)
	assertBatchResults(t, results)
	o.Drain()
}

// slowPass sleeps before passing so a batch is reliably still in flight
// when a concurrent drain lands.
type slowPass struct {
	rule.Base
	delay time.Duration
}

func newSlowPass(delay time.Duration) rule.Factory {
	return func(id string) rule.Rule {
		return &slowPass{Base: rule.NewBase(id), delay: delay}
	}
}

func (r *slowPass) AppliesTo() string      { return "loan" }
func (r *slowPass) RequiredData() []string { return nil }
func (r *slowPass) Describe() string       { return "sleeps, then passes" }

func (r *slowPass) Run() (result.Status, string) {
	time.Sleep(r.delay)
	return result.StatusPass, ""
}

func slowFactory(t *testing.T, delay time.Duration) EngineFactory {
	t.Helper()
	cfg := &ruleset.Config{
		Rulesets: map[string]ruleset.Ruleset{
			"slow": {
				Rules: map[string][]ruleset.Node{
					entity.LoanSchemaV1: {{RuleID: "rule_slow_v1"}},
				},
			},
		},
		EntityTypes: []string{"loan"},
	}
	return func() (*engine.Engine, error) {
		rules := rule.NewRegistry()
		if err := rules.Register("loan", "rule_slow_v1", newSlowPass(delay)); err != nil {
			return nil, err
		}
		schemas := schemaver.NewRegistry(schemaver.Options{}, nil, nil)
		schemas.RegisterSchema(entity.LoanSchemaV1, entity.NewLoanV1)
		loader := rule.NewLoader(rules, rule.ResolvedMode, cfg, nil)
		return engine.New(cfg, schemas, loader, nil), nil
	}
}

func TestDrainDuringParallelBatch(t *testing.T) {
	o := New(slowFactory(t, 20*time.Millisecond), nil, true, 1, nil)

	entities := make([]entity.Data, 20)
	for i := range entities {
		entities[i] = entity.Data{
			"$schema": entity.LoanSchemaV1,
			"id":      fmt.Sprintf("LOAN-%03d", i),
		}
	}

	type outcome struct {
		results []EntityResult
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		results, err := o.Validate(context.Background(), entities, []string{"id"}, "slow")
		done <- outcome{results, err}
	}()

	// With a single worker the batch is still submitting when the drain
	// lands; Drain must wait it out, never close the channel under it.
	time.Sleep(50 * time.Millisecond)
	o.Drain()

	got := <-done
	require.NoError(t, got.err)
	require.Len(t, got.results, len(entities))
	for i, res := range got.results {
		assert.Equal(t, fmt.Sprintf("LOAN-%03d", i), res.EntityID)
		assert.Empty(t, res.Error)
	}

	// The next batch rebuilds a fresh pool.
	results, err := o.Validate(context.Background(), entities[:2], []string{"id"}, "slow")
	require.NoError(t, err)
	require.Len(t, results, 2)
	o.Drain()
}

func TestLoadEntitiesFromFile(t *testing.T) {
	dir := t.TempDir()

	list := []entity.Data{{"id": "A"}, {"id": "B"}}
	raw, err := json.Marshal(list)
	require.NoError(t, err)
	listPath := filepath.Join(dir, "entities.json")
	require.NoError(t, os.WriteFile(listPath, raw, 0o644))

	entities, err := LoadEntities("file://" + listPath)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "A", entities[0]["id"])

	// A single entity object is wrapped into a one-element list.
	singlePath := filepath.Join(dir, "one.json")
	require.NoError(t, os.WriteFile(singlePath, []byte(`{"id": "C"}`), 0o644))
	entities, err = LoadEntities("file://" + singlePath)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "C", entities[0]["id"])
}

func TestLoadEntitiesRejectsUnsupportedScheme(t *testing.T) {
	_, err := LoadEntities("ftp://example.com/entities.json")
	assert.Error(t, err)
}
