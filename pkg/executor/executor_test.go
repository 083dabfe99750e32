package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/judepayne/validlib/pkg/entity"
	"github.com/judepayne/validlib/pkg/result"
	"github.com/judepayne/validlib/pkg/rule"
	"github.com/judepayne/validlib/pkg/ruleset"
)

// scriptedRule returns a fixed status, optionally recording the external
// data it was handed or panicking.
type scriptedRule struct {
	rule.Base
	status   result.Status
	message  string
	terms    []string
	panicker bool

	seenData map[string]any
}

func (r *scriptedRule) AppliesTo() string      { return "loan" }
func (r *scriptedRule) RequiredData() []string { return r.terms }
func (r *scriptedRule) Describe() string       { return "scripted " + r.ID() }

func (r *scriptedRule) Run() (result.Status, string) {
	r.seenData = r.ProvidedData()
	if r.panicker {
		panic("boom")
	}
	return r.status, r.message
}

func scripted(id string, status result.Status) *scriptedRule {
	return &scriptedRule{Base: rule.NewBase(id), status: status}
}

func testAdapter() entity.Adapter {
	return entity.NewLoanV1(entity.Data{"id": "LOAN-001"}, nil)
}

func node(id string, children ...ruleset.Node) ruleset.Node {
	return ruleset.Node{RuleID: id, Children: children}
}

func TestPassingParentRunsChildren(t *testing.T) {
	rules := []rule.Rule{
		scripted("parent", result.StatusPass),
		scripted("child", result.StatusFail),
	}
	exec := New(rules, testAdapter(), nil, nil)

	results := exec.ExecuteForest([]ruleset.Node{node("parent", node("child"))})

	require.Len(t, results, 1)
	assert.Equal(t, result.StatusPass, results[0].Status)
	assert.Equal(t, "scripted parent", results[0].Description)
	require.Len(t, results[0].Children, 1)
	assert.Equal(t, result.StatusFail, results[0].Children[0].Status)
}

func TestFailingParentSkipsSubtree(t *testing.T) {
	rules := []rule.Rule{
		scripted("parent", result.StatusFail),
		scripted("child", result.StatusPass),
		scripted("grandchild", result.StatusPass),
	}
	exec := New(rules, testAdapter(), nil, nil)

	results := exec.ExecuteForest([]ruleset.Node{
		node("parent", node("child", node("grandchild"))),
	})

	require.Len(t, results, 1)
	assert.Equal(t, result.StatusFail, results[0].Status)

	child := results[0].Children[0]
	assert.Equal(t, result.StatusNoRun, child.Status)
	assert.Equal(t, SkippedMessage, child.Message)
	assert.Zero(t, child.ExecutionTimeMS)

	grandchild := child.Children[0]
	assert.Equal(t, result.StatusNoRun, grandchild.Status)
	assert.Equal(t, SkippedMessage, grandchild.Message)
}

func TestWarnGatesChildrenOpen(t *testing.T) {
	rules := []rule.Rule{
		scripted("parent", result.StatusWarn),
		scripted("child", result.StatusPass),
	}
	exec := New(rules, testAdapter(), nil, nil)

	results := exec.ExecuteForest([]ruleset.Node{node("parent", node("child"))})
	assert.Equal(t, result.StatusWarn, results[0].Status)
	assert.Equal(t, result.StatusPass, results[0].Children[0].Status)
}

func TestMissingRuleIsNoRun(t *testing.T) {
	exec := New(nil, testAdapter(), nil, nil)

	results := exec.ExecuteForest([]ruleset.Node{node("rule_404_v1", node("child"))})

	require.Len(t, results, 1)
	assert.Equal(t, result.StatusNoRun, results[0].Status)
	assert.Equal(t, "Rule rule_404_v1 not found", results[0].Message)
	assert.Zero(t, results[0].ExecutionTimeMS)

	// Children of an unresolved rule are skipped, not executed.
	assert.Equal(t, result.StatusNoRun, results[0].Children[0].Status)
	assert.Equal(t, SkippedMessage, results[0].Children[0].Message)
}

func TestPanicBecomesError(t *testing.T) {
	panicky := &scriptedRule{Base: rule.NewBase("bad"), panicker: true}
	sibling := scripted("ok", result.StatusPass)
	exec := New([]rule.Rule{panicky, sibling}, testAdapter(), nil, nil)

	results := exec.ExecuteForest([]ruleset.Node{
		node("bad", node("never")),
		node("ok"),
	})

	require.Len(t, results, 2)
	assert.Equal(t, result.StatusError, results[0].Status)
	assert.Equal(t, "string: boom", results[0].Message)
	assert.Equal(t, result.StatusNoRun, results[0].Children[0].Status)

	// A faulting rule never takes down its siblings.
	assert.Equal(t, result.StatusPass, results[1].Status)
}

func TestOrderPreserved(t *testing.T) {
	rules := []rule.Rule{
		scripted("a", result.StatusPass),
		scripted("b", result.StatusFail),
		scripted("c", result.StatusWarn),
	}
	exec := New(rules, testAdapter(), nil, nil)

	results := exec.ExecuteForest([]ruleset.Node{node("a"), node("b"), node("c")})

	ids := []string{results[0].RuleID, results[1].RuleID, results[2].RuleID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestExternalDataSubset(t *testing.T) {
	needy := &scriptedRule{
		Base:   rule.NewBase("needy"),
		status: result.StatusPass,
		terms:  []string{"parent", "all_siblings"},
	}
	loner := scripted("loner", result.StatusPass)

	external := map[string]any{
		"parent":    map[string]any{"id": "FAC-007"},
		"unrelated": "never handed out",
	}
	exec := New([]rule.Rule{needy, loner}, testAdapter(), external, nil)
	exec.ExecuteForest([]ruleset.Node{node("needy"), node("loner")})

	require.NotNil(t, needy.seenData)
	assert.Equal(t, map[string]any{"id": "FAC-007"}, needy.seenData["parent"])

	// Declared but unavailable terms are present and nil.
	v, ok := needy.seenData["all_siblings"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.NotContains(t, needy.seenData, "unrelated")

	// Rules declaring no terms get no data at all.
	assert.Nil(t, loner.seenData)
}

func TestExecutionTimeRecorded(t *testing.T) {
	exec := New([]rule.Rule{scripted("a", result.StatusPass)}, testAdapter(), nil, nil)
	results := exec.ExecuteForest([]ruleset.Node{node("a")})
	assert.GreaterOrEqual(t, results[0].ExecutionTimeMS, 0.0)
}
