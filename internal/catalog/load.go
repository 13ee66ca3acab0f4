// Package catalog loads vendor catalogs into page-indexed documents and searches them.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/proposal-customizer/internal/types"
)

// decoder turns raw file bytes into a document. Path and Name are filled in by Load.
type decoder func(ctx context.Context, data []byte) (*types.CatalogDocument, error)

var decoders = map[string]decoder{
	".json": decodeJSON,
	".yaml": decodeYAML,
	".yml":  decodeYAML,
	".xlsx": decodeXLSX,
	".html": decodeHTML,
	".htm":  decodeHTML,
	".txt":  decodeText,
}

var validate = validator.New()

// SupportedExtensions returns the file extensions Load understands, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(decoders))
	for ext := range decoders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load reads a catalog file and decodes it into a CatalogDocument.
// Every failure is an *UnreadableError.
func Load(ctx context.Context, path string) (*types.CatalogDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, unreadable(path, "load cancelled", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return nil, unreadable(path, fmt.Sprintf("unsupported catalog format %q", ext), nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, unreadable(path, "failed to read file", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, unreadable(path, "load cancelled", err)
	}

	doc, err := decode(ctx, data)
	if err != nil {
		return nil, unreadable(path, "failed to decode catalog", err)
	}

	doc.Path = path
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := finalize(doc); err != nil {
		return nil, unreadable(path, "invalid catalog structure", err)
	}
	return doc, nil
}

// NewDocument builds an in-memory catalog from already decoded pages.
// Pages without a number are numbered by position.
func NewDocument(name string, pages ...types.Page) (*types.CatalogDocument, error) {
	doc := &types.CatalogDocument{Name: name, Pages: pages}
	if err := finalize(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// finalize numbers, orders and validates the pages of a freshly decoded document.
func finalize(doc *types.CatalogDocument) error {
	for i := range doc.Pages {
		if doc.Pages[i].Number == 0 {
			doc.Pages[i].Number = i + 1
		}
	}
	sort.SliceStable(doc.Pages, func(i, j int) bool {
		return doc.Pages[i].Number < doc.Pages[j].Number
	})
	for i := 1; i < len(doc.Pages); i++ {
		if doc.Pages[i].Number == doc.Pages[i-1].Number {
			return fmt.Errorf("duplicate page number %d", doc.Pages[i].Number)
		}
	}
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("catalog has no decodable pages: %w", err)
	}
	return nil
}
