package loanrules

import "github.com/judepayne/validlib/pkg/rule"

// EntityType is the entity type all built-in loan rules are registered
// under.
const EntityType = "loan"

// Register adds the built-in loan rule factories to reg under their
// canonical identifiers.
func Register(reg *rule.Registry) error {
	factories := []struct {
		id string
		f  rule.Factory
	}{
		{"rule_001_v1", NewSchemaConformance},
		{"rule_002_v1", NewFinancialSoundness},
		{"rule_003_v1", NewStatusValidity},
		{"rule_004_v1", NewBalanceConstraints},
	}
	for _, entry := range factories {
		if err := reg.Register(EntityType, entry.id, entry.f); err != nil {
			return err
		}
	}
	return nil
}
