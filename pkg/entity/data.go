// Package entity provides schema-versioned views over raw entity data.
//
// Raw entity data is an opaque nested map supplied by the caller. Rules
// never read it directly: an Adapter exposes stable logical accessors
// (principal, maturity, status, ...) that each read one physical path for
// the schema version the adapter serves. Two adapters for different schema
// versions expose the same logical names over different physical layouts.
package entity

import (
	"math"
	"strings"
	"time"
)

// SchemaField is the entity data field carrying the schema identifier.
const SchemaField = "$schema"

// Data is one raw business entity instance. The engine never mutates it.
type Data map[string]any

// SchemaID returns the entity's declared schema identifier, or "" when the
// entity does not declare one.
func (d Data) SchemaID() string {
	s, _ := d[SchemaField].(string)
	return s
}

// Lookup resolves a dot-separated physical path ("financial.principal_amount")
// against the nested data. The second return is false when any path segment
// is absent or a non-map value is traversed.
func (d Data) Lookup(path string) (any, bool) {
	var cur any = map[string]any(d)
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the string at path, or def when absent or not a string.
func (d Data) String(path, def string) string {
	if v, ok := d.Lookup(path); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Float returns the numeric value at path, or def when absent.
// JSON decoding yields float64; integer literals from YAML yield int.
func (d Data) Float(path string, def float64) float64 {
	v, ok := d.Lookup(path)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

// Int returns the integer value at path. ok is false when absent, not
// numeric, or a float carrying a fractional part.
func (d Data) Int(path string) (int, bool) {
	v, present := d.Lookup(path)
	if !present {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// Bool returns the boolean at path, or def when absent or not a boolean.
func (d Data) Bool(path string, def bool) bool {
	if v, ok := d.Lookup(path); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Date parses an ISO-8601 date ("2006-01-02") at path. ok is false when
// the field is absent, empty, or malformed.
func (d Data) Date(path string) (time.Time, bool) {
	s := d.String(path, "")
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
