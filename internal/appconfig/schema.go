// internal/appconfig/schema.go
package appconfig

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// configSchema describes the shape a settings file must have before it is decoded.
const configSchema = `{
  "type": "object",
  "required": ["models"],
  "properties": {
    "models": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type", "url", "model"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "enabled": {"type": "boolean"},
          "type": {"type": "string", "enum": ["ollama", "openai"]},
          "url": {"type": "string", "minLength": 1},
          "model": {"type": "string", "minLength": 1},
          "temperature": {"type": "number"},
          "maxTokens": {"type": "integer", "minimum": 0},
          "contextSize": {"type": "integer", "minimum": 0},
          "threads": {"type": "integer", "minimum": 0},
          "apiKey": {"type": "string"}
        }
      }
    },
    "debug": {"type": "boolean"},
    "timeout": {"type": "integer", "minimum": 0},
    "listen": {"type": "string"},
    "chartMaxPoints": {"type": "integer", "minimum": 1},
    "smoothingPercent": {"type": "integer", "minimum": 0, "maximum": 100},
    "logFile": {"type": "string"}
  }
}`

// Validate checks raw config JSON against the settings schema before decoding.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(configSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("config failed validation: %s", strings.Join(details, "; "))
}
