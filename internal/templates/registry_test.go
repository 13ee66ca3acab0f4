package templates

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/proposal-customizer/internal/types"
)

func TestDefault_BuiltinTemplates(t *testing.T) {
	reg := Default()
	assert.Equal(t, []string{"dvf", "ht"}, reg.IDs())

	tests := []struct {
		id       string
		size     int
		firstKey string
	}{
		{id: "dvf", size: 21, firstKey: "table_size"},
		{id: "ht", size: 18, firstKey: "swing_over_bed"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			tmpl, err := reg.Get(tt.id)
			require.NoError(t, err)
			require.Len(t, tmpl.Parameters, tt.size)
			assert.Equal(t, tt.firstKey, tmpl.Parameters[0].Key)
			assert.NotEmpty(t, tmpl.Sections.Standard)
			assert.NotEmpty(t, tmpl.Sections.Options)
			assert.NotEmpty(t, tmpl.Sections.MainUnits)
			for _, p := range tmpl.Parameters {
				assert.Equal(t, tt.id, p.Template)
				assert.True(t, p.Required)
				assert.NotEmpty(t, p.Unit)
			}
		})
	}
}

func TestDefault_NormalizationRules(t *testing.T) {
	dvf, err := Default().Get("dvf")
	require.NoError(t, err)

	rules := map[string]types.NormalizationRule{}
	for _, p := range dvf.Parameters {
		rules[p.Key] = p.Unit
	}
	assert.Equal(t, types.NormalizeMultiBraceVariant, rules["spindle_speed"])
	assert.Equal(t, types.NormalizeMetricImperialPair, rules["spindle_power"])
	assert.Equal(t, types.NormalizeNone, rules["table_size"])
}

func TestRegistry_GetUnknown(t *testing.T) {
	_, err := Default().Get("nhx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTemplate))
	assert.Contains(t, err.Error(), "dvf")
}

func TestNewRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		template types.Template
		message  string
	}{
		{
			name:     "missing id",
			template: types.Template{Parameters: []types.ParameterSpec{{Key: "a", Label: "A"}}},
			message:  "invalid template definition",
		},
		{
			name:     "no parameters",
			template: types.Template{ID: "empty"},
			message:  "invalid template definition",
		},
		{
			name: "duplicate key",
			template: types.Template{ID: "dup", Parameters: []types.ParameterSpec{
				{Key: "a", Label: "A"}, {Key: "a", Label: "Again"},
			}},
			message: `duplicate parameter key "a"`,
		},
		{
			name: "unknown rule",
			template: types.Template{ID: "bad", Parameters: []types.ParameterSpec{
				{Key: "a", Label: "A", Unit: "inch_to_mm"},
			}},
			message: "invalid template definition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.template)
			require.Error(t, err)
			var defErr *DefinitionError
			assert.True(t, errors.As(err, &defErr))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadFile_OverridesBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
templates:
  - id: ht
    name: HT compact
    parameters:
      - key: swing_over_bed
        label: Swing over bed
      - key: chuck_size
        label: Chuck size
  - id: nhx
    parameters:
      - key: pallet_size
        label: Pallet size
        unit: none
`), 0644))

	reg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"dvf", "ht", "nhx"}, reg.IDs())

	ht, err := reg.Get("ht")
	require.NoError(t, err)
	assert.Len(t, ht.Parameters, 2)
	assert.Equal(t, "ht", ht.Parameters[1].Template)

	// the default registry is not modified
	builtin, err := Default().Get("ht")
	require.NoError(t, err)
	assert.Len(t, builtin.Parameters, 18)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{name: "bad yaml", content: "templates: [", message: "failed to parse YAML"},
		{name: "no templates", content: "templates: []", message: "schema validation failed"},
		{name: "label missing", content: "templates:\n  - id: x\n    parameters:\n      - key: a\n", message: "schema validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), "test.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("/nonexistent/templates.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}
