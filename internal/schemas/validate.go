// Package schemas validates pipeline artifacts (catalog dumps, template files,
// extraction results, review reports) against JSON Schemas.
package schemas

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	schemafiles "github.com/jonathan/proposal-customizer/schemas"
)

// Names of the embedded schemas.
const (
	CatalogSchema          = "catalog.schema.json"
	ExtractionResultSchema = "extraction_result.schema.json"
	ValidationReportSchema = "validation_report.schema.json"
	TemplateSchema         = "template.schema.json"
)

// ValidationError lists every field a document violates.
type ValidationError struct {
	Schema string
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "document does not match %s:\n", ve.Schema)
	for i, err := range ve.Errors {
		fmt.Fprintf(&sb, "  %d. %s: %s\n", i+1, err.Field, err.Message)
	}
	return sb.String()
}

// SchemaLoadError is returned when a schema cannot be read or compiled.
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

// compiled holds embedded schemas; catalogs and template files are validated
// on every load, so each schema is compiled at most once.
var compiled sync.Map // name -> *compiledSchema

type compiledSchema struct {
	once   sync.Once
	schema *gojsonschema.Schema
	err    error
}

// EmbeddedNames lists the embedded schema file names.
func EmbeddedNames() []string {
	return []string{CatalogSchema, ExtractionResultSchema, ValidationReportSchema, TemplateSchema}
}

// ValidateEmbedded validates JSON bytes against one of the embedded schemas.
func ValidateEmbedded(name string, data []byte) error {
	schema, err := embedded(name)
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &SchemaLoadError{Path: name, Message: "document could not be read", Cause: err}
	}
	return fieldErrors(name, result)
}

func embedded(name string) (*gojsonschema.Schema, error) {
	v, _ := compiled.LoadOrStore(name, &compiledSchema{})
	c := v.(*compiledSchema)
	c.once.Do(func() {
		content, err := schemafiles.FS.ReadFile(name)
		if err != nil {
			c.err = &SchemaLoadError{Path: name, Message: "embedded schema not found", Cause: err}
			return
		}
		c.schema, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(content))
		if err != nil {
			c.err = &SchemaLoadError{Path: name, Message: "invalid schema", Cause: err}
		}
	})
	return c.schema, c.err
}

// ValidateJSON validates a JSON file against a JSON Schema file
func ValidateJSON(schemaPath, jsonPath string) error {
	schemaAbsPath, err := filepath.Abs(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to resolve schema path: %w", err)
	}
	jsonAbsPath, err := filepath.Abs(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to resolve JSON path: %w", err)
	}

	if _, err := os.Stat(schemaAbsPath); os.IsNotExist(err) {
		return fmt.Errorf("schema file not found: %s", schemaAbsPath)
	}
	if _, err := os.Stat(jsonAbsPath); os.IsNotExist(err) {
		return fmt.Errorf("JSON file not found: %s", jsonAbsPath)
	}

	// file:// references let the schema resolve relative $refs
	result, err := gojsonschema.Validate(
		gojsonschema.NewReferenceLoader("file://"+schemaAbsPath),
		gojsonschema.NewReferenceLoader("file://"+jsonAbsPath),
	)
	if err != nil {
		return &SchemaLoadError{Path: schemaAbsPath, Message: "schema validation failed during load", Cause: err}
	}
	return fieldErrors(filepath.Base(schemaAbsPath), result)
}

func fieldErrors(schemaName string, result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}
	ve := &ValidationError{Schema: schemaName, Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return ve
}
