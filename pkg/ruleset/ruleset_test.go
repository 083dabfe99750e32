package ruleset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
rulesets:
  quick:
    metadata:
      description: "Fast pre-screening checks"
      purpose: "pre-deal"
      author: "risk-team"
      date: "2025-06-01"
    rules:
      "https://bank.example.com/schemas/loan/v1.0.0":
        - rule_id: rule_002_v1
          children:
            - rule_id: rule_004_v1
        - rule_id: rule_003_v1
      "https://bank.example.com/schemas/loan/v2.0.0":
        - rule_id: rule_002_v1
  thorough:
    metadata:
      description: "Full validation"
    rules:
      "https://bank.example.com/schemas/loan/v1.0.0":
        - rule_id: rule_001_v1
          children:
            - rule_id: rule_002_v1
              children:
                - rule_id: rule_003_v1
                - rule_id: rule_004_v1
      facility:
        - rule_id: rule_101_v1

schema_to_adapter_mapping:
  "https://bank.example.com/schemas/loan/v1.0.0": loan_v1
  "https://bank.example.com/schemas/loan/v2.0.0": loan_v2

default_adapters:
  loan: loan_v1

version_compatibility:
  allow_minor_version_fallback: true
  strict_major_version: false
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	require.Contains(t, cfg.Rulesets, "quick")
	require.Contains(t, cfg.Rulesets, "thorough")
	assert.Equal(t, "Fast pre-screening checks", cfg.Rulesets["quick"].Metadata.Description)
	assert.Equal(t, "loan_v1", cfg.SchemaAdapters["https://bank.example.com/schemas/loan/v1.0.0"])
	assert.True(t, cfg.VersionCompatibility.AllowMinorVersionFallback)
	assert.Equal(t, []string{"loan", "facility", "deal"}, cfg.EntityTypes)
}

func TestRulesFor(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	forest := cfg.RulesFor("quick", "https://bank.example.com/schemas/loan/v1.0.0", "loan")
	require.Len(t, forest, 2)
	assert.Equal(t, "rule_002_v1", forest[0].RuleID)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, "rule_004_v1", forest[0].Children[0].RuleID)

	// Legacy entity-type key used when the schema has no entry.
	forest = cfg.RulesFor("thorough", "https://bank.example.com/schemas/facility/v1.0.0", "facility")
	require.Len(t, forest, 1)
	assert.Equal(t, "rule_101_v1", forest[0].RuleID)

	// Unknown ruleset or key yields an empty forest, never an error.
	assert.Empty(t, cfg.RulesFor("nope", "", "loan"))
	assert.Empty(t, cfg.RulesFor("quick", "", "deal"))
}

func TestInferEntityType(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	et, ok := cfg.InferEntityType("rule_004_v1")
	require.True(t, ok)
	assert.Equal(t, "loan", et)

	et, ok = cfg.InferEntityType("rule_101_v1")
	require.True(t, ok)
	assert.Equal(t, "facility", et)

	_, ok = cfg.InferEntityType("rule_999_v9")
	assert.False(t, ok)
}

func TestApplicableSchemas(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	schemas := cfg.ApplicableSchemas("quick", "rule_002_v1")
	assert.Equal(t, []string{
		"https://bank.example.com/schemas/loan/v1.0.0",
		"https://bank.example.com/schemas/loan/v2.0.0",
	}, schemas)

	assert.Empty(t, cfg.ApplicableSchemas("quick", "rule_101_v1"))
}

func TestComputeStats(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	stats := cfg.Rulesets["thorough"].ComputeStats()
	assert.Equal(t, 5, stats.TotalRules)
	assert.Equal(t, 4, stats.RulesBySchema["https://bank.example.com/schemas/loan/v1.0.0"])
	assert.Equal(t, 1, stats.RulesBySchema["facility"])
	assert.Equal(t, []string{"facility", "loan"}, stats.SupportedEntities)
	assert.Contains(t, stats.SupportedSchemas, "facility")
}

func TestStoreReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "business-config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	store, err := NewStore(path)
	require.NoError(t, err)
	before := store.Config()
	require.Contains(t, before.Rulesets, "quick")

	var reloaded *Config
	store.OnReload(func(cfg *Config) { reloaded = cfg })

	updated := sampleConfig + `
entity_types: [loan]
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	require.NoError(t, store.Reload())

	after := store.Config()
	assert.NotSame(t, before, after)
	assert.Equal(t, []string{"loan"}, after.EntityTypes)
	assert.Same(t, after, reloaded)

	// The old snapshot is untouched for readers that still hold it.
	assert.Equal(t, []string{"loan", "facility", "deal"}, before.EntityTypes)
}

func TestStoreReloadKeepsOldConfigOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "business-config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	store, err := NewStore(path)
	require.NoError(t, err)
	before := store.Config()

	require.NoError(t, os.WriteFile(path, []byte("rulesets: ["), 0o644))
	require.Error(t, store.Reload())
	assert.Same(t, before, store.Config())
}
