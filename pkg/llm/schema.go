// Structured output formats and JSON schema reflection
package llm

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/swaggest/jsonschema-go"
)

// ResponseFormat specifies the desired response format for structured outputs
type ResponseFormat struct {
	Type       ResponseFormatType `json:"type"`
	JSONSchema *JSONSchema        `json:"json_schema,omitempty"`
}

// ResponseFormatType defines the type of response format
type ResponseFormatType string

const (
	// ResponseFormatText indicates plain text response (default)
	ResponseFormatText ResponseFormatType = "text"
	// ResponseFormatJSON indicates JSON object response without strict schema
	ResponseFormatJSON ResponseFormatType = "json_object"
	// ResponseFormatJSONSchema indicates JSON response with strict schema validation
	ResponseFormatJSONSchema ResponseFormatType = "json_schema"
)

// JSONSchema represents a JSON Schema specification for structured outputs.
// The schema itself is treated as an opaque value passed through to the
// codec; it can come from SchemaFromStruct or be caller-supplied.
type JSONSchema struct {
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Schema      interface{} `json:"schema"`
}

// SchemaFromStruct generates a JSON Schema from a Go struct using the
// swaggest/jsonschema-go reflector.
//
// Example:
//
//	type Person struct {
//	    Name string `json:"name" required:"true"`
//	    Age  int    `json:"age" minimum:"0"`
//	}
//	schema, err := llm.SchemaFromStruct(Person{})
func SchemaFromStruct(structType interface{}) (interface{}, error) {
	reflector := jsonschema.Reflector{}

	schema, err := reflector.Reflect(structType)
	if err != nil {
		return nil, fmt.Errorf("failed to reflect struct to JSON schema: %w", err)
	}

	return schema, nil
}

// SchemaFromStructAsMap generates a JSON Schema as map[string]interface{}
// from a Go struct, for APIs that want a generic map.
func SchemaFromStructAsMap(structType interface{}) (map[string]interface{}, error) {
	schema, err := SchemaFromStruct(structType)
	if err != nil {
		return nil, err
	}

	jsonBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema to JSON: %w", err)
	}

	var schemaMap map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema JSON to map: %w", err)
	}

	return schemaMap, nil
}

// NewJSONSchemaResponseFormat creates a ResponseFormat with a JSON Schema.
func NewJSONSchemaResponseFormat(name, description string, schema interface{}) *ResponseFormat {
	return &ResponseFormat{
		Type: ResponseFormatJSONSchema,
		JSONSchema: &JSONSchema{
			Name:        name,
			Description: description,
			Schema:      schema,
		},
	}
}

// NewJSONSchemaResponseFormatFromStruct creates a ResponseFormat with a
// JSON Schema reflected from a Go struct.
func NewJSONSchemaResponseFormatFromStruct(name, description string, structType interface{}) (*ResponseFormat, error) {
	schema, err := SchemaFromStructAsMap(structType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema from struct: %w", err)
	}

	return NewJSONSchemaResponseFormat(name, description, schema), nil
}

// NewJSONResponseFormat creates a ResponseFormat for basic JSON object output (no schema)
func NewJSONResponseFormat() *ResponseFormat {
	return &ResponseFormat{
		Type: ResponseFormatJSON,
	}
}
