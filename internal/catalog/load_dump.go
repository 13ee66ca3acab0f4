package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/proposal-customizer/internal/schemas"
	"github.com/jonathan/proposal-customizer/internal/types"
)

// decodeJSON decodes a page dump produced by an upstream PDF layout decoder.
// The dump is checked against catalog.schema.json before decoding.
func decodeJSON(_ context.Context, data []byte) (*types.CatalogDocument, error) {
	if err := schemas.ValidateEmbedded(schemas.CatalogSchema, data); err != nil {
		return nil, err
	}
	var doc types.CatalogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	return &doc, nil
}

// decodeYAML accepts the same shape as the JSON dump.
func decodeYAML(ctx context.Context, data []byte) (*types.CatalogDocument, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert catalog YAML: %w", err)
	}
	return decodeJSON(ctx, asJSON)
}
