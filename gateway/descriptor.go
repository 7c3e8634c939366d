// ABOUTME: ServiceDescriptor value type holding a remote service's manifest and I/O schemas.
// ABOUTME: Provides required-property validation of request parameters against the input schema.
package gateway

import (
	"encoding/json"
	"sort"
)

// ServiceDescriptor captures everything the gateway discovers about a remote
// service at connect time: its opaque capability manifest and its input and
// output JSON schemas. Descriptors are cached for the lifetime of a Gateway
// instance; re-constructing the Gateway is the only refresh path.
type ServiceDescriptor struct {
	ServiceID    string
	Manifest     json.RawMessage
	InputSchema  json.RawMessage
	OutputSchema json.RawMessage
}

// jsonSchema is the subset of JSON Schema the gateway cares about: the list
// of required top-level properties. Remote schemas are loosely typed and
// otherwise treated as opaque.
type jsonSchema struct {
	Required []string `json:"required"`
}

// ValidateParams checks the given parameter map against the descriptor's
// input schema. Only required top-level properties are enforced; unknown
// extra parameters are passed through untouched, since remote schemas evolve
// independently of this client. Returns a SchemaViolationError listing any
// missing required keys.
func (d *ServiceDescriptor) ValidateParams(params map[string]any) error {
	if len(d.InputSchema) == 0 {
		return nil
	}

	var schema jsonSchema
	if err := json.Unmarshal(d.InputSchema, &schema); err != nil {
		// An unparsable schema disables validation rather than blocking
		// every call against that service.
		return nil
	}

	var missing []string
	for _, key := range schema.Required {
		if _, ok := params[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &SchemaViolationError{ServiceID: d.ServiceID, Missing: missing}
	}
	return nil
}
