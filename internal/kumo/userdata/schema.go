package userdata

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// metadataSchema constrains the metadata document embedded in userdata.
// Every value must be a plain string and the synthesized ownership and
// lifecycle keys must be present, so a bad merge fails before the instance
// boots with an unusable payload.
const metadataSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["owner", "owner_id", "init"],
  "properties": {
    "owner":    {"type": "string", "minLength": 1},
    "owner_id": {"type": "string", "minLength": 1},
    "init":     {"type": "string", "enum": ["pending", "started", "done", "fail"]},
    "branch":   {"type": "string"}
  },
  "additionalProperties": {"type": "string"}
}`

var compiledMetadataSchema = jsonschema.MustCompileString("metadata.schema.json", metadataSchema)

// ValidateMetadata checks a JSON-encoded metadata document against the
// embedded schema.
func ValidateMetadata(encoded string) error {
	var doc any
	if err := json.Unmarshal([]byte(encoded), &doc); err != nil {
		return fmt.Errorf("metadata is not valid JSON: %w", err)
	}
	if err := compiledMetadataSchema.Validate(doc); err != nil {
		return fmt.Errorf("metadata rejected by schema: %w", err)
	}
	return nil
}
