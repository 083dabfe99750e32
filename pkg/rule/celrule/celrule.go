// Package celrule implements configuration-declared validation rules as
// CEL expressions, so rulesets can carry small predicates without
// compiled-in rule code.
//
// Expressions see two variables: "entity", the raw entity data, and
// "data", the external data provided for the rule's declared terms. The
// expression must evaluate to a boolean; true is PASS, false is FAIL.
package celrule

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/judepayne/validlib/pkg/result"
	"github.com/judepayne/validlib/pkg/rule"
	"github.com/judepayne/validlib/pkg/ruleset"
)

// Compile compiles the declared expression once and returns a factory
// whose instances share the compiled program. Programs are safe for
// concurrent evaluation.
func Compile(spec ruleset.CELRule) (rule.Factory, error) {
	env, err := cel.NewEnv(
		cel.Variable("entity", cel.DynType),
		cel.Variable("data", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("celrule: environment: %w", err)
	}
	ast, issues := env.Compile(spec.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("celrule: compile %s: %w", spec.RuleID, issues.Err())
	}
	prg, err := env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(100000),
	)
	if err != nil {
		return nil, fmt.Errorf("celrule: program %s: %w", spec.RuleID, err)
	}

	return func(id string) rule.Rule {
		return &celRule{Base: rule.NewBase(id), spec: spec, prg: prg}
	}, nil
}

type celRule struct {
	rule.Base
	spec ruleset.CELRule
	prg  cel.Program
}

func (r *celRule) AppliesTo() string       { return r.spec.EntityType }
func (r *celRule) RequiredData() []string  { return r.spec.RequiredData }
func (r *celRule) Describe() string        { return r.spec.Description }

func (r *celRule) Run() (result.Status, string) {
	var raw map[string]any
	if a := r.Entity(); a != nil {
		raw = a.Raw()
	}
	data := r.ProvidedData()
	if data == nil {
		data = map[string]any{}
	}

	out, _, err := r.prg.Eval(map[string]any{
		"entity": raw,
		"data":   data,
	})
	if err != nil {
		return result.StatusError, fmt.Sprintf("expression evaluation failed: %v", err)
	}
	passed, ok := out.Value().(bool)
	if !ok {
		return result.StatusError,
			fmt.Sprintf("expression did not evaluate to a boolean: %v", out.Value())
	}
	if !passed {
		return result.StatusFail, fmt.Sprintf("expression evaluated to false: %s", r.spec.Expression)
	}
	return result.StatusPass, ""
}
