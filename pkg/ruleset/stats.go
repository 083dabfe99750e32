package ruleset

import "sort"

// Stats summarizes one ruleset for discovery.
type Stats struct {
	RulesBySchema     map[string]int `json:"rules_by_schema"`
	TotalRules        int            `json:"total_rules"`
	SupportedEntities []string       `json:"supported_entities"`
	SupportedSchemas  []string       `json:"supported_schemas"`
}

// ComputeStats counts rules (including nested children) per key and
// derives the entity types and schema identifiers the ruleset covers.
func (rs Ruleset) ComputeStats() Stats {
	stats := Stats{RulesBySchema: make(map[string]int)}
	entities := make(map[string]struct{})

	keys := make([]string, 0, len(rs.Rules))
	for key := range rs.Rules {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		forest := rs.Rules[key]
		stats.SupportedSchemas = append(stats.SupportedSchemas, key)

		et := key
		if IsSchemaKey(key) {
			et = EntityTypeFromSchemaKey(key)
		}
		if et != "" {
			entities[et] = struct{}{}
		}

		n := CountNodes(forest)
		stats.RulesBySchema[key] = n
		stats.TotalRules += n
	}

	for et := range entities {
		stats.SupportedEntities = append(stats.SupportedEntities, et)
	}
	sort.Strings(stats.SupportedEntities)
	return stats
}
