// Package locator finds the catalog and pages describing a model.
//
// Location is a two-stage best-effort resolution. The first stage picks a catalog
// from the configured set, the second picks pages inside it. Neither stage fails:
// when a stage finds nothing it records a warning and falls back, so extraction
// always has a catalog and a page set to work on.
package locator

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/proposal-customizer/internal/catalog"
	"github.com/jonathan/proposal-customizer/internal/textnorm"
	"github.com/jonathan/proposal-customizer/internal/types"
)

// DefaultFallbackPages is how many table-dense pages are used when the model is not on any page.
const DefaultFallbackPages = 5

// ErrNoCatalogs is returned when the catalog set is empty.
var ErrNoCatalogs = errors.New("no catalogs configured")

// noiseTokens are family words that often surround a model name but do not identify it.
var noiseTokens = map[string]bool{
	"model":   true,
	"series":  true,
	"type":    true,
	"machine": true,
	"cnc":     true,
}

// Match records how the catalog was chosen.
type Match string

const (
	MatchExact    Match = "exact"
	MatchTokens   Match = "tokens"
	MatchFilename Match = "filename"
	MatchFallback Match = "fallback"
)

// Options configures a Locate call.
type Options struct {
	// FallbackPages defaults to DefaultFallbackPages.
	FallbackPages int
	Logger        *zap.Logger
}

// Result is the located catalog and pages plus any warnings raised on the way.
type Result struct {
	Catalog  *types.CatalogDocument
	Pages    []types.Page
	Match    Match
	Warnings []types.Warning
}

// Locate picks the catalog describing model from catalogs (searched in order) and the
// pages mentioning it. Exact phrase matches rank above token-subset matches.
func Locate(catalogs []*types.CatalogDocument, model string, opts Options) (*Result, error) {
	if len(catalogs) == 0 {
		return nil, ErrNoCatalogs
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fallbackPages := opts.FallbackPages
	if fallbackPages <= 0 {
		fallbackPages = DefaultFallbackPages
	}

	tokens := ModelTokens(model)
	result := &Result{}

	doc, match := pickCatalog(catalogs, tokens)
	if doc == nil {
		doc, match = catalogs[0], MatchFallback
		result.Warnings = append(result.Warnings, types.Warning{
			Code:    types.WarnModelNotFoundInCatalogs,
			Message: fmt.Sprintf("model %q not found in %d catalog(s); using %s", model, len(catalogs), doc.Name),
		})
		logger.Warn("model not found in catalogs",
			zap.String("model", model),
			zap.Int("catalogs", len(catalogs)),
			zap.String("fallback", doc.Name),
		)
	}
	result.Catalog = doc
	result.Match = match

	pages := catalog.FindPhrase(doc, tokens)
	if len(pages) == 0 {
		pages = catalog.FindTokens(doc, tokens)
	}
	if len(pages) == 0 {
		pages = doc.TableDensePages(fallbackPages)
		result.Warnings = append(result.Warnings, types.Warning{
			Code: types.WarnModelNotFoundOnPages,
			Message: fmt.Sprintf("model %q not found on any page of %s; using table-dense pages %v",
				model, doc.Name, types.PageNumbers(pages)),
		})
		logger.Warn("model not found on pages",
			zap.String("model", model),
			zap.String("catalog", doc.Name),
			zap.Ints("fallback_pages", types.PageNumbers(pages)),
		)
	}
	result.Pages = pages

	logger.Debug("model located",
		zap.String("model", model),
		zap.String("catalog", doc.Name),
		zap.String("match", string(match)),
		zap.Ints("pages", types.PageNumbers(pages)),
	)
	return result, nil
}

// ModelTokens normalizes a model name into search tokens. Family noise words are
// removed and a repeated family prefix is collapsed, so "DVF series DVF 5000"
// searches as "dvf 5000". If only noise remains the unfiltered tokens are returned.
func ModelTokens(model string) []string {
	all := textnorm.Tokens(model)
	var kept []string
	for _, t := range all {
		if noiseTokens[t] {
			continue
		}
		if len(kept) > 0 && kept[len(kept)-1] == t {
			continue
		}
		kept = append(kept, t)
	}
	if len(kept) == 0 {
		return all
	}
	return kept
}

func pickCatalog(catalogs []*types.CatalogDocument, tokens []string) (*types.CatalogDocument, Match) {
	if len(tokens) == 0 {
		return nil, MatchFallback
	}
	for _, doc := range catalogs {
		if len(catalog.FindPhrase(doc, tokens)) > 0 {
			return doc, MatchExact
		}
	}
	for _, doc := range catalogs {
		if len(catalog.FindTokens(doc, tokens)) > 0 {
			return doc, MatchTokens
		}
	}
	for _, doc := range catalogs {
		if textnorm.ContainsAll(textnorm.TokenSet(catalogLabel(doc)), tokens) {
			return doc, MatchFilename
		}
	}
	return nil, MatchFallback
}

func catalogLabel(doc *types.CatalogDocument) string {
	base := strings.TrimSuffix(filepath.Base(doc.Path), filepath.Ext(doc.Path))
	return doc.Name + " " + base
}
