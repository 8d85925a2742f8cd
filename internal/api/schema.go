package api

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// createSailSchema is the JSON schema of the POST /api/v0/sails body.
const createSailSchema = `{
	"type": "object",
	"properties": {
		"routines": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "minLength": 1}
		}
	},
	"required": ["routines"],
	"additionalProperties": false
}`

var createSailValidator = mustSchema(createSailSchema)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return schema
}

// validateBody checks body against schema. It returns an error describing
// every violation, or the parse error if body is not JSON.
func validateBody(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid request: %s", strings.Join(msgs, "; "))
}
