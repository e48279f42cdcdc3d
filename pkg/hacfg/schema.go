package hacfg

import (
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["groups"],
  "properties": {
    "groups": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["devices"],
        "properties": {
          "devices": {
            "type": "array",
            "items": {
              "type": "object",
              "minProperties": 1,
              "maxProperties": 1,
              "additionalProperties": {
                "type": "object",
                "required": ["addresses"],
                "properties": {
                  "addresses": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/address"}
                  }
                }
              }
            }
          }
        }
      }
    }
  },
  "definitions": {
    "address": {
      "type": "object",
      "required": ["ip", "port", "test", "count", "failure"],
      "properties": {
        "ip": {"type": "string", "minLength": 1},
        "port": {
          "type": ["integer", "string"],
          "pattern": "^\\s*[0-9]+\\s*$",
          "minimum": 0,
          "maximum": 65535
        },
        "test": {"type": "string"},
        "count": {"type": "integer"},
        "failure": {"type": "integer"}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

func validate(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.Wrap(err, "validate config document")
	}
	if result.Valid() {
		return nil
	}
	validationErr := &ValidationError{}
	for _, resultErr := range result.Errors() {
		validationErr.Details = append(validationErr.Details, resultErr.String())
	}
	return validationErr
}
