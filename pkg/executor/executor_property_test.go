//go:build property
// +build property

package executor

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/judepayne/validlib/pkg/result"
	"github.com/judepayne/validlib/pkg/rule"
	"github.com/judepayne/validlib/pkg/ruleset"
)

var statusPool = []result.Status{
	result.StatusPass, result.StatusFail, result.StatusWarn, result.StatusError,
}

// buildFixture turns a slice of status indices into a three-level forest
// and the scripted rules backing it.
func buildFixture(indices []int) ([]ruleset.Node, []rule.Rule) {
	var forest []ruleset.Node
	var rules []rule.Rule
	for i, idx := range indices {
		parentID := fmt.Sprintf("parent_%d", i)
		childID := fmt.Sprintf("child_%d", i)
		grandID := fmt.Sprintf("grand_%d", i)
		forest = append(forest, ruleset.Node{
			RuleID: parentID,
			Children: []ruleset.Node{
				{RuleID: childID, Children: []ruleset.Node{{RuleID: grandID}}},
			},
		})
		rules = append(rules,
			scripted(parentID, statusPool[idx%len(statusPool)]),
			scripted(childID, statusPool[(idx/len(statusPool))%len(statusPool)]),
			scripted(grandID, result.StatusPass),
		)
	}
	return forest, rules
}

func shapeMatches(nodes []ruleset.Node, results []result.Result) bool {
	if len(nodes) != len(results) {
		return false
	}
	for i := range nodes {
		if nodes[i].RuleID != results[i].RuleID {
			return false
		}
		if !shapeMatches(nodes[i].Children, results[i].Children) {
			return false
		}
	}
	return true
}

func gatingHolds(results []result.Result) bool {
	for _, r := range results {
		if !r.Status.GatesChildren() {
			if !allSkipped(r.Children) {
				return false
			}
			continue
		}
		if !gatingHolds(r.Children) {
			return false
		}
	}
	return true
}

func allSkipped(results []result.Result) bool {
	for _, r := range results {
		if r.Status != result.StatusNoRun || r.Message != SkippedMessage {
			return false
		}
		if !allSkipped(r.Children) {
			return false
		}
	}
	return true
}

// The result forest always mirrors the configured forest's shape and
// order, and a non-gating status always skips its entire subtree.
func TestForestShapeAndGating(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("shape, order, and gating hold for any status mix", prop.ForAll(
		func(indices []int) bool {
			forest, rules := buildFixture(indices)
			results := New(rules, testAdapter(), nil, nil).ExecuteForest(forest)
			return shapeMatches(forest, results) && gatingHolds(results)
		},
		gen.SliceOf(gen.IntRange(0, 15)),
	))

	properties.TestingRun(t)
}

// Executing the same forest twice yields the same fingerprint: rule
// outcomes are deterministic and timing is excluded.
func TestExecutionIdempotence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("repeat execution is fingerprint-stable", prop.ForAll(
		func(indices []int) bool {
			forest, rules := buildFixture(indices)
			first := New(rules, testAdapter(), nil, nil).ExecuteForest(forest)
			second := New(rules, testAdapter(), nil, nil).ExecuteForest(forest)

			fpA, errA := result.Fingerprint(first)
			fpB, errB := result.Fingerprint(second)
			return errA == nil && errB == nil && fpA == fpB
		},
		gen.SliceOf(gen.IntRange(0, 15)),
	))

	properties.TestingRun(t)
}
