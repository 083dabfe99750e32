// Package loanrules ships the built-in validation rules for loan
// entities. Each rule embeds rule.Base and reads the entity through the
// entity.Loan logical view, so the same rule code serves every loan
// schema version that has an adapter.
package loanrules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	_ "github.com/santhosh-tekuri/jsonschema/v5/httploader"

	"github.com/judepayne/validlib/pkg/result"
	"github.com/judepayne/validlib/pkg/rule"
)

// schemaConformance validates the raw entity data against the JSON
// schema it declares in $schema.
type schemaConformance struct {
	rule.Base
}

// NewSchemaConformance is the factory for the schema conformance rule.
func NewSchemaConformance(id string) rule.Rule {
	return &schemaConformance{Base: rule.NewBase(id)}
}

func (r *schemaConformance) AppliesTo() string      { return "loan" }
func (r *schemaConformance) RequiredData() []string { return nil }

func (r *schemaConformance) Describe() string {
	return "Entity data must conform to its declared JSON schema"
}

func (r *schemaConformance) Run() (result.Status, string) {
	data := r.Entity().Raw()

	schemaURL := data.SchemaID()
	if schemaURL == "" {
		return result.StatusFail, "Entity data missing required $schema field"
	}

	// The compiler resolves file and http(s) URIs; a fetch or compile
	// failure means the rule cannot run, not that the entity is invalid.
	sch, err := jsonschema.NewCompiler().Compile(schemaURL)
	if err != nil {
		return result.StatusNoRun, fmt.Sprintf("Failed to fetch schema from %s: %v", schemaURL, err)
	}

	if err := sch.Validate(map[string]any(data)); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			cause := leafCause(ve)
			return result.StatusFail, fmt.Sprintf("Schema validation failed at %s: %s",
				instancePath(cause.InstanceLocation), cause.Message)
		}
		return result.StatusFail, fmt.Sprintf("Schema validation error: %v", err)
	}
	return result.StatusPass, ""
}

// leafCause descends to the most specific validation error.
func leafCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// instancePath renders a JSON pointer as a readable field path,
// "root" for the document itself.
func instancePath(loc string) string {
	loc = strings.Trim(loc, "/")
	if loc == "" {
		return "root"
	}
	return strings.ReplaceAll(loc, "/", " -> ")
}
