package batch

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/judepayne/validlib/pkg/entity"
)

// ErrEntityType is returned when an entity declares neither a usable
// $schema nor an entity_type field.
var ErrEntityType = errors.New("cannot determine entity type: entity must declare $schema or entity_type")

// DetermineEntityType resolves the business entity type for one entity.
// The schema identifier is tried first ( .../schemas/loan/v1.0.0 yields
// "loan" ), then an explicit entity_type field.
func DetermineEntityType(data entity.Data) (string, error) {
	if schemaURL := data.SchemaID(); schemaURL != "" {
		if et := entityTypeFromSchemaURL(schemaURL); et != "" {
			return et, nil
		}
	}
	if et, ok := data["entity_type"].(string); ok && et != "" {
		return et, nil
	}
	return "", ErrEntityType
}

// entityTypeFromSchemaURL extracts the path segment preceding the
// version segment ( v{major}.{minor}... ), falling back to the
// second-to-last segment. Non-http(s) identifiers yield "".
func entityTypeFromSchemaURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	for i, s := range segments {
		if i > 0 && strings.HasPrefix(s, "v") && strings.Contains(s, ".") {
			return segments[i-1]
		}
	}
	if len(segments) >= 2 {
		return segments[len(segments)-2]
	}
	return ""
}

// ExtractID builds the entity identifier from the configured id fields,
// joining the present values with "-". Entities with none of the fields
// get the identifier "unknown".
func ExtractID(data entity.Data, idFields []string) string {
	var parts []string
	for _, field := range idFields {
		if v, ok := data[field]; ok {
			parts = append(parts, fmt.Sprint(v))
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "-")
}
