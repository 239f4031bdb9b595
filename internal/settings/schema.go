package settings

import (
	"github.com/invopop/jsonschema"
)

// Schema describes the canonical persisted value written by Encode. The
// legacy shapes Decode accepts do not validate against it.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	entry := reflector.Reflect(&Entry{})
	entry.Version = ""
	entry.ID = ""

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Alert manager settings",
		Description: "Alert manager entries keyed by entry id.",
		Type:        "object",
		PatternProperties: map[string]*jsonschema.Schema{
			`^(0|[1-9][0-9]*)$`: entry,
		},
		AdditionalProperties: jsonschema.FalseSchema,
	}
}
