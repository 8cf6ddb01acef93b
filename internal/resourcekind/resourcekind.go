// Package resourcekind validates a Resource's data against the JSON schema
// registered by its ResourceKind.
package resourcekind

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/nanocl-project/nanocld/internal/errors"
)

// Schema is the narrow subset of JSON Schema this daemon understands for
// resource kinds: a flat list of required top-level property names. Full
// JSON Schema validation is out of scope; resource-kind authors needing
// more than required-field checks validate further in their controller.
type Schema struct {
	Required []string `json:"required"`
}

// Validate checks that every property Schema.Required names is present in
// data, returning a Validation error naming the first missing field.
func Validate(schemaJSON, data json.RawMessage) error {
	var schema Schema
	if err := json.Unmarshal(schemaJSON, &schema); err != nil {
		return errors.Wrap(errors.CodeInternal, "decode resource kind schema", 500, err)
	}
	for _, field := range schema.Required {
		if !gjson.GetBytes(data, field).Exists() {
			return errors.Validation("resource data missing required field " + field)
		}
	}
	return nil
}
