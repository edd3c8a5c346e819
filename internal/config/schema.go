package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// JSONSchema returns the JSON schema for the configuration file, suitable
// for editor integration and validation tooling.
func JSONSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(&Config{})
	schema.Title = "Conductor Configuration"
	schema.Description = "Configuration schema for the conductor agent gateway."
	return json.MarshalIndent(schema, "", "  ")
}
