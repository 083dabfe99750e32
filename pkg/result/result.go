// Package result defines the validation result tree and rule statuses.
//
// A Result mirrors the shape of the configured rule tree: one node per
// configured rule, children nested under their gating parent. Results are
// built once by the executor and never mutated afterwards.
package result

// Status is the terminal state of one rule execution.
type Status string

const (
	// StatusPass means the rule's check succeeded.
	StatusPass Status = "PASS"
	// StatusFail means the rule's check found a violation.
	StatusFail Status = "FAIL"
	// StatusWarn means the rule found a non-blocking concern.
	// WARN counts as a pass for child gating.
	StatusWarn Status = "WARN"
	// StatusNoRun means the rule was not executed (skipped by a failed
	// parent, or its implementation could not be resolved).
	StatusNoRun Status = "NORUN"
	// StatusError means the rule's execution itself faulted.
	StatusError Status = "ERROR"
)

// GatesChildren reports whether children of a rule with this status may
// execute. Only PASS and WARN open the gate.
func (s Status) GatesChildren() bool {
	return s == StatusPass || s == StatusWarn
}

// Result is one node of the validation result tree.
type Result struct {
	RuleID          string   `json:"rule_id"`
	Description     string   `json:"description"`
	Status          Status   `json:"status"`
	Message         string   `json:"message"`
	ExecutionTimeMS float64  `json:"execution_time_ms"`
	Children        []Result `json:"children"`
}

// Count returns the total number of result nodes in the forest, including
// all nested children.
func Count(forest []Result) int {
	n := len(forest)
	for _, r := range forest {
		n += Count(r.Children)
	}
	return n
}

// CountStatus returns the number of nodes in the forest with the given
// status, including nested children.
func CountStatus(forest []Result, status Status) int {
	n := 0
	for _, r := range forest {
		if r.Status == status {
			n++
		}
		n += CountStatus(r.Children, status)
	}
	return n
}
