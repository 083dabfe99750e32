// Package ruleset models business validation configuration: named rulesets
// mapping schema identifiers (or legacy entity-type keys) to hierarchical
// rule trees, plus the schema→adapter routing tables.
//
// Configuration is consumed as an already-parsed structure; LoadFile and
// the Store are thin YAML conveniences over it.
package ruleset

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Node is one rule in an execution hierarchy. Children are gated by their
// parent: they only execute when the parent's status passes the gate.
type Node struct {
	RuleID   string `yaml:"rule_id" json:"rule_id"`
	Children []Node `yaml:"children,omitempty" json:"children,omitempty"`
}

// Metadata is descriptive ruleset information carried in configuration.
type Metadata struct {
	Description string `yaml:"description" json:"description"`
	Purpose     string `yaml:"purpose" json:"purpose"`
	Author      string `yaml:"author" json:"author"`
	Date        string `yaml:"date" json:"date"`
}

// Ruleset is a named collection of rule trees keyed by schema identifier,
// or by bare entity type for backward compatibility.
type Ruleset struct {
	Metadata Metadata          `yaml:"metadata" json:"metadata"`
	Rules    map[string][]Node `yaml:"rules" json:"rules"`
}

// VersionCompat mirrors the version_compatibility configuration section.
type VersionCompat struct {
	AllowMinorVersionFallback bool `yaml:"allow_minor_version_fallback" json:"allow_minor_version_fallback"`
	StrictMajorVersion        bool `yaml:"strict_major_version" json:"strict_major_version"`
}

// CELRule declares an expression-backed rule directly in configuration,
// registered alongside compiled-in rules at load time.
type CELRule struct {
	RuleID       string   `yaml:"rule_id" json:"rule_id"`
	EntityType   string   `yaml:"entity_type" json:"entity_type"`
	Description  string   `yaml:"description" json:"description"`
	Expression   string   `yaml:"expression" json:"expression"`
	RequiredData []string `yaml:"required_data,omitempty" json:"required_data,omitempty"`
}

// Config is the full business configuration.
type Config struct {
	Rulesets             map[string]Ruleset `yaml:"rulesets" json:"rulesets"`
	SchemaAdapters       map[string]string  `yaml:"schema_to_adapter_mapping" json:"schema_to_adapter_mapping"`
	DefaultAdapters      map[string]string  `yaml:"default_adapters" json:"default_adapters"`
	VersionCompatibility VersionCompat      `yaml:"version_compatibility" json:"version_compatibility"`
	EntityTypes          []string           `yaml:"entity_types" json:"entity_types"`
	CELRules             []CELRule          `yaml:"cel_rules,omitempty" json:"cel_rules,omitempty"`
}

// Parse decodes YAML business configuration.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("ruleset: parse config: %w", err)
	}
	if len(cfg.EntityTypes) == 0 {
		cfg.EntityTypes = []string{"loan", "facility", "deal"}
	}
	return &cfg, nil
}

// LoadFile reads and decodes a YAML business configuration file.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ruleset: read config %s: %w", path, err)
	}
	return Parse(raw)
}

// RulesFor returns the rule forest for the given ruleset, preferring the
// entity's schema identifier and falling back to the bare entity type.
// An unknown ruleset or key yields an empty forest, not an error.
func (c *Config) RulesFor(rulesetName, schemaID, entityType string) []Node {
	rs, ok := c.Rulesets[rulesetName]
	if !ok {
		return nil
	}
	if schemaID != "" {
		if forest, ok := rs.Rules[schemaID]; ok {
			return forest
		}
	}
	return rs.Rules[entityType]
}

// IsSchemaKey reports whether a ruleset key is a schema identifier rather
// than a bare entity type.
func IsSchemaKey(key string) bool {
	return strings.HasPrefix(key, "http")
}

// EntityTypeFromSchemaKey extracts the entity type from a schema
// identifier key ( .../schemas/{entity_type}/v{version} ), returning ""
// when the key has no /schemas/ segment.
func EntityTypeFromSchemaKey(key string) string {
	_, after, found := strings.Cut(key, "/schemas/")
	if !found {
		return ""
	}
	entityType, _, _ := strings.Cut(after, "/")
	return entityType
}

// ContainsRule reports whether ruleID appears anywhere in the forest,
// including nested children.
func ContainsRule(forest []Node, ruleID string) bool {
	for _, n := range forest {
		if n.RuleID == ruleID {
			return true
		}
		if ContainsRule(n.Children, ruleID) {
			return true
		}
	}
	return false
}

// CountNodes returns the total number of nodes in the forest, including
// nested children.
func CountNodes(forest []Node) int {
	n := len(forest)
	for _, node := range forest {
		n += CountNodes(node.Children)
	}
	return n
}

// InferEntityType scans every ruleset for ruleID and returns the entity
// type of the first key containing it. Schema-identifier keys resolve
// through their /schemas/ segment. ok is false when no ruleset mentions
// the rule.
func (c *Config) InferEntityType(ruleID string) (string, bool) {
	for _, rs := range c.Rulesets {
		for key, forest := range rs.Rules {
			if !ContainsRule(forest, ruleID) {
				continue
			}
			if IsSchemaKey(key) {
				if et := EntityTypeFromSchemaKey(key); et != "" {
					return et, true
				}
				continue
			}
			return key, true
		}
	}
	return "", false
}

// ApplicableSchemas returns the schema-identifier keys of the named
// ruleset whose forests include ruleID, sorted for stable output.
func (c *Config) ApplicableSchemas(rulesetName, ruleID string) []string {
	rs, ok := c.Rulesets[rulesetName]
	if !ok {
		return nil
	}
	var schemas []string
	for key, forest := range rs.Rules {
		if IsSchemaKey(key) && ContainsRule(forest, ruleID) {
			schemas = append(schemas, key)
		}
	}
	sort.Strings(schemas)
	return schemas
}
