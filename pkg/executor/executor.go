// Package executor runs a loaded rule forest against one entity and
// produces the hierarchical result forest.
//
// Execution preserves the forest shape: each node's result carries its
// children's results. A parent gates its subtree: children run only when
// the parent's status passes the gate (PASS or WARN); otherwise the
// whole subtree is marked NORUN without running.
package executor

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/judepayne/validlib/pkg/entity"
	"github.com/judepayne/validlib/pkg/result"
	"github.com/judepayne/validlib/pkg/rule"
	"github.com/judepayne/validlib/pkg/ruleset"
)

// SkippedMessage is the message attached to every rule skipped because an
// ancestor did not pass.
const SkippedMessage = "Parent rule did not pass, rule skipped"

// Executor runs rules against a single bound entity. It is built per
// validation call and discarded after.
type Executor struct {
	rules    map[string]rule.Rule
	adapter  entity.Adapter
	external map[string]any
	logger   *slog.Logger
}

// New builds an executor over the loaded rules. external carries the
// fetched associated data keyed by vocabulary term; it may be nil.
func New(rules []rule.Rule, adapter entity.Adapter, external map[string]any, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	byID := make(map[string]rule.Rule, len(rules))
	for _, r := range rules {
		byID[r.ID()] = r
	}
	return &Executor{rules: byID, adapter: adapter, external: external, logger: logger}
}

// ExecuteForest runs every tree in the forest in order and returns the
// result forest with the same shape.
func (e *Executor) ExecuteForest(forest []ruleset.Node) []result.Result {
	results := make([]result.Result, 0, len(forest))
	for _, node := range forest {
		results = append(results, e.executeNode(node))
	}
	return results
}

func (e *Executor) executeNode(node ruleset.Node) result.Result {
	r, ok := e.rules[node.RuleID]
	if !ok {
		res := result.Result{
			RuleID:  node.RuleID,
			Status:  result.StatusNoRun,
			Message: fmt.Sprintf("Rule %s not found", node.RuleID),
		}
		res.Children = e.skipAll(node.Children)
		return res
	}

	status, message, elapsed := e.runRule(r)
	res := result.Result{
		RuleID:          node.RuleID,
		Description:     r.Describe(),
		Status:          status,
		Message:         message,
		ExecutionTimeMS: elapsed,
	}

	if status.GatesChildren() {
		res.Children = e.ExecuteForest(node.Children)
	} else {
		res.Children = e.skipAll(node.Children)
	}
	return res
}

// runRule binds the entity, provides the requested external data subset,
// and times the run. A panic inside the rule becomes an ERROR status so
// one defective rule never takes down the validation.
func (e *Executor) runRule(r rule.Rule) (status result.Status, message string, elapsedMS float64) {
	r.Bind(e.adapter)
	r.ProvideData(e.dataFor(r))

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("rule panicked", "rule_id", r.ID(), "panic", rec)
			status = result.StatusError
			message = fmt.Sprintf("%T: %v", rec, rec)
			elapsedMS = roundHundredths(time.Since(start))
		}
	}()

	status, message = r.Run()
	return status, message, roundHundredths(time.Since(start))
}

// dataFor extracts the subset of fetched data the rule declared. Terms
// the fetch could not supply map to nil so rules see them as absent.
func (e *Executor) dataFor(r rule.Rule) map[string]any {
	terms := r.RequiredData()
	if len(terms) == 0 {
		return nil
	}
	subset := make(map[string]any, len(terms))
	for _, term := range terms {
		subset[term] = e.external[term]
	}
	return subset
}

// skipAll marks an entire subtree NORUN without executing it.
func (e *Executor) skipAll(nodes []ruleset.Node) []result.Result {
	if len(nodes) == 0 {
		return nil
	}
	skipped := make([]result.Result, 0, len(nodes))
	for _, node := range nodes {
		res := result.Result{
			RuleID:  node.RuleID,
			Status:  result.StatusNoRun,
			Message: SkippedMessage,
		}
		if r, ok := e.rules[node.RuleID]; ok {
			res.Description = r.Describe()
		}
		res.Children = e.skipAll(node.Children)
		skipped = append(skipped, res)
	}
	return skipped
}

// roundHundredths converts a duration to milliseconds rounded to two
// decimal places.
func roundHundredths(d time.Duration) float64 {
	return math.Round(float64(d.Microseconds())/10) / 100
}
