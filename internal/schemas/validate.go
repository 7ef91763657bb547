// Package schemas validates the JSON artifacts exchanged at the CLI boundary against
// embedded JSON Schemas.
package schemas

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Name identifies an embedded schema.
type Name string

const (
	Document Name = "document"
	Job      Name = "job"
	Result   Name = "result"
	Manifest Name = "manifest"
)

//go:embed files/*.schema.json
var files embed.FS

var (
	cacheMu sync.Mutex
	cache   = make(map[Name]*gojsonschema.Schema)
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Schema Name
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s validation failed:\n", ve.Schema))
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// Source returns the raw text of an embedded schema.
func Source(name Name) (string, error) {
	data, err := files.ReadFile("files/" + string(name) + ".schema.json")
	if err != nil {
		return "", &SchemaLoadError{Path: string(name), Message: "unknown schema", Cause: err}
	}
	return string(data), nil
}

func load(name Name) (*gojsonschema.Schema, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if s, ok := cache[name]; ok {
		return s, nil
	}
	src, err := Source(name)
	if err != nil {
		return nil, err
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		return nil, &SchemaLoadError{Path: string(name), Message: "invalid schema", Cause: err}
	}
	cache[name] = s
	return s, nil
}

// ValidateJSON validates JSON bytes against the named schema.
func ValidateJSON(name Name, data []byte) error {
	return validate(name, gojsonschema.NewBytesLoader(data))
}

// ValidateValue validates a decoded Go value (for example parsed YAML) against the
// named schema.
func ValidateValue(name Name, v any) error {
	return validate(name, gojsonschema.NewGoLoader(v))
}

// ValidateDocumentJSON validates a serialized document.
func ValidateDocumentJSON(data []byte) error {
	return ValidateJSON(Document, data)
}

// ValidateResultJSON validates a serialized fitting result.
func ValidateResultJSON(data []byte) error {
	return ValidateJSON(Result, data)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaContent))
	if err != nil {
		return &SchemaLoadError{Path: "(string schema)", Message: "invalid schema", Cause: err}
	}
	return check("(string schema)", schema, gojsonschema.NewStringLoader(jsonContent))
}

func validate(name Name, doc gojsonschema.JSONLoader) error {
	schema, err := load(name)
	if err != nil {
		return err
	}
	return check(name, schema, doc)
}

func check(name Name, schema *gojsonschema.Schema, doc gojsonschema.JSONLoader) error {
	result, err := schema.Validate(doc)
	if err != nil {
		return fmt.Errorf("failed to read %s document: %w", name, err)
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Schema: name,
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
