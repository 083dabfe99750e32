package result

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// stableNode is a Result with timing excluded, so that two runs of the same
// validation produce the same fingerprint.
type stableNode struct {
	RuleID      string       `json:"rule_id"`
	Description string       `json:"description"`
	Status      Status       `json:"status"`
	Message     string       `json:"message"`
	Children    []stableNode `json:"children"`
}

func toStable(forest []Result) []stableNode {
	nodes := make([]stableNode, len(forest))
	for i, r := range forest {
		nodes[i] = stableNode{
			RuleID:      r.RuleID,
			Description: r.Description,
			Status:      r.Status,
			Message:     r.Message,
			Children:    toStable(r.Children),
		}
	}
	return nodes
}

// Fingerprint returns a deterministic SHA-256 hash of the result forest,
// computed over the JCS (RFC 8785) canonical JSON form with execution
// timing excluded. Validating the same entity twice with the same external
// data yields the same fingerprint.
func Fingerprint(forest []Result) (string, error) {
	raw, err := json.Marshal(toStable(forest))
	if err != nil {
		return "", fmt.Errorf("result: marshal for fingerprint: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("result: canonicalize fingerprint input: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}
