// Package templates provides the parameter schema registry: machine-family templates
// mapping a template id to its ordered required parameters and item section markers.
// Built-in templates are embedded at compile time; more can be loaded from YAML files.
package templates

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/proposal-customizer/internal/schemas"
	"github.com/jonathan/proposal-customizer/internal/types"
)

//go:embed builtin.yaml
var builtinDefinitions []byte

var validate = validator.New()

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// file is the on-disk shape of a template definition file.
type file struct {
	Templates []types.Template `yaml:"templates" validate:"required,min=1,dive"`
}

// Registry maps template ids to templates. It is read-only once built.
type Registry struct {
	templates map[string]types.Template
}

// NewRegistry builds a registry from the given templates. Later templates with
// an id already registered replace the earlier one.
func NewRegistry(templates ...types.Template) (*Registry, error) {
	r := &Registry{templates: make(map[string]types.Template, len(templates))}
	for _, t := range templates {
		if err := prepare(&t, "registry"); err != nil {
			return nil, err
		}
		r.templates[t.ID] = t
	}
	return r, nil
}

// Default returns the registry of built-in templates ("dvf" and "ht").
func Default() *Registry {
	defaultOnce.Do(func() {
		templates, err := Parse(builtinDefinitions, "builtin.yaml")
		if err != nil {
			panic(fmt.Sprintf("failed to load built-in templates: %v", err))
		}
		defaultRegistry, err = NewRegistry(templates...)
		if err != nil {
			panic(fmt.Sprintf("failed to register built-in templates: %v", err))
		}
	})
	return defaultRegistry
}

// LoadFile returns a registry holding the built-in templates plus the templates
// defined in the YAML file at path, which override built-ins with the same id.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DefinitionError{Source: path, Message: "failed to read file", Cause: err}
	}
	loaded, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	return Default().With(loaded...)
}

// Parse decodes and validates a template definition file.
func Parse(data []byte, source string) ([]types.Template, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &DefinitionError{Source: source, Message: "failed to parse YAML", Cause: err}
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, &DefinitionError{Source: source, Message: "failed to convert YAML", Cause: err}
	}
	if err := schemas.ValidateEmbedded(schemas.TemplateSchema, asJSON); err != nil {
		return nil, &DefinitionError{Source: source, Message: "schema validation failed", Cause: err}
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &DefinitionError{Source: source, Message: "failed to decode templates", Cause: err}
	}
	if err := validate.Struct(f); err != nil {
		return nil, &DefinitionError{Source: source, Message: "validation failed", Cause: err}
	}
	for i := range f.Templates {
		if err := prepare(&f.Templates[i], source); err != nil {
			return nil, err
		}
	}
	return f.Templates, nil
}

// With returns a new registry holding r's templates plus the given ones.
func (r *Registry) With(templates ...types.Template) (*Registry, error) {
	merged := make([]types.Template, 0, len(r.templates)+len(templates))
	for _, id := range r.IDs() {
		merged = append(merged, r.templates[id])
	}
	return NewRegistry(append(merged, templates...)...)
}

// Get returns the template registered under id.
func (r *Registry) Get(id string) (types.Template, error) {
	t, ok := r.templates[id]
	if !ok {
		return types.Template{}, fmt.Errorf("%w %q (available: %v)", ErrUnknownTemplate, id, r.IDs())
	}
	return t, nil
}

// IDs returns the registered template ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// prepare validates a template, defaults its normalization rules and stamps
// every parameter with the template id. All parameters count toward coverage.
func prepare(t *types.Template, source string) error {
	if err := validate.Struct(t); err != nil {
		return &DefinitionError{Source: source, Message: fmt.Sprintf("template %q", t.ID), Cause: err}
	}
	params := make([]types.ParameterSpec, len(t.Parameters))
	seen := make(map[string]bool, len(t.Parameters))
	for i, p := range t.Parameters {
		if seen[p.Key] {
			return &DefinitionError{Source: source, Message: fmt.Sprintf("template %q: duplicate parameter key %q", t.ID, p.Key)}
		}
		seen[p.Key] = true
		if p.Unit == "" {
			p.Unit = types.NormalizeNone
		}
		p.Template = t.ID
		p.Required = true
		params[i] = p
	}
	t.Parameters = params
	return nil
}
