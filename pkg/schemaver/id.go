// Package schemaver routes entity data to schema-versioned adapters.
//
// Entities declare their data shape with a schema identifier of the form
// {base}/{entity_type}/v{major}.{minor}.{patch}. The Registry maps known
// identifiers to adapter constructors, with optional minor-version
// fallback and strict rejection of unknown major versions.
package schemaver

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ParseError reports a malformed schema identifier. Wherever possible it
// is recovered locally (treated as "no match, try the next strategy") and
// only surfaces when it blocks the final fallback.
type ParseError struct {
	ID     string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("schemaver: cannot parse schema identifier %q: %s", e.ID, e.Reason)
}

// ID is a parsed schema identifier.
type ID struct {
	Raw        string
	EntityType string
	Version    *semver.Version
}

// Major returns the major version component.
func (id ID) Major() uint64 { return id.Version.Major() }

// Parse splits a schema identifier into its entity type and version.
// The version is the final path segment and must carry a "v" prefix; the
// entity type is the segment before it.
//
//	https://bank.example.com/schemas/loan/v1.0.0 → ("loan", 1.0.0)
func Parse(raw string) (ID, error) {
	parts := strings.Split(strings.TrimRight(raw, "/"), "/")
	if len(parts) < 2 {
		return ID{}, &ParseError{ID: raw, Reason: "too few path segments"}
	}
	versionPart := parts[len(parts)-1]
	entityPart := parts[len(parts)-2]

	if !strings.HasPrefix(versionPart, "v") {
		return ID{}, &ParseError{ID: raw, Reason: "version segment must start with 'v'"}
	}
	v, err := semver.NewVersion(strings.TrimPrefix(versionPart, "v"))
	if err != nil {
		return ID{}, &ParseError{ID: raw, Reason: err.Error()}
	}
	return ID{Raw: raw, EntityType: entityPart, Version: v}, nil
}

// EntityTypeOf extracts just the entity type from a schema identifier,
// returning "" when the identifier cannot be parsed.
func EntityTypeOf(raw string) string {
	id, err := Parse(raw)
	if err != nil {
		return ""
	}
	return id.EntityType
}
