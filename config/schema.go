package config

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/videostream/errors"
)

// configSchema is the structural contract for bot configuration files.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["endpoint", "channel"],
  "properties": {
    "endpoint": {
      "type": "object",
      "required": ["host", "appkey"],
      "properties": {
        "host": {"type": "string", "minLength": 1},
        "port": {"type": "string", "pattern": "^[0-9]+$"},
        "appkey": {"type": "string", "minLength": 1}
      },
      "additionalProperties": false
    },
    "channel": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "input_buffer": {"type": "integer", "minimum": 1},
        "history_count": {"type": "integer", "minimum": 0}
      },
      "additionalProperties": false
    },
    "bot": {
      "type": "object",
      "properties": {
        "id": {"type": "string"},
        "params": {}
      },
      "additionalProperties": false
    },
    "tls": {
      "type": "object",
      "properties": {
        "min_version": {"type": "string", "enum": ["1.2", "1.3"]},
        "ca_files": {"type": "array", "items": {"type": "string"}},
        "cert_file": {"type": "string"},
        "key_file": {"type": "string"},
        "insecure_skip_verify": {"type": "boolean"}
      },
      "additionalProperties": false
    },
    "logging": {
      "type": "object",
      "properties": {
        "nats_url": {"type": "string"},
        "level": {"type": "string", "enum": ["debug", "info", "warn", "error"]}
      },
      "additionalProperties": false
    }
  },
  "additionalProperties": false
}`

// validateSchema checks raw config JSON against the embedded schema.
func validateSchema(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.WrapInvalid(err, "config", "validateSchema", "run schema validation")
	}

	if !result.Valid() {
		errMsg := "config schema validation failed:\n"
		for _, desc := range result.Errors() {
			errMsg += fmt.Sprintf("  - %s: %s\n", desc.Field(), desc.Description())
		}
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "validateSchema", errMsg)
	}

	return nil
}
