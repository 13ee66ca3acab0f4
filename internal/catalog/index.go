package catalog

import (
	"sort"
	"strings"

	"github.com/jonathan/proposal-customizer/internal/textnorm"
	"github.com/jonathan/proposal-customizer/internal/types"
)

// PageText returns all searchable text of a page: text blocks, header paths and cells.
func PageText(p types.Page) string {
	var sb strings.Builder
	for _, b := range p.TextBlocks {
		sb.WriteString(b.Text)
		sb.WriteString("\n")
	}
	for _, r := range p.TableRows {
		sb.WriteString(r.HeaderPathString())
		sb.WriteString("\n")
		sb.WriteString(r.RawText())
		sb.WriteString("\n")
	}
	return sb.String()
}

// FindPagesContaining returns the pages mentioning needle, by case-insensitive
// substring or by all of its tokens appearing on the page, in page order.
func FindPagesContaining(doc *types.CatalogDocument, needle string) []types.Page {
	folded := textnorm.Fold(needle)
	if folded == "" {
		return nil
	}
	tokens := textnorm.Tokens(needle)
	return filterPages(doc, func(p types.Page) bool {
		text := PageText(p)
		if strings.Contains(textnorm.Fold(text), folded) {
			return true
		}
		return textnorm.ContainsAll(textnorm.TokenSet(text), tokens)
	})
}

// FindPhrase returns the pages containing the tokens as a contiguous phrase.
func FindPhrase(doc *types.CatalogDocument, tokens []string) []types.Page {
	re := textnorm.PhrasePattern(tokens)
	if re == nil {
		return nil
	}
	return filterPages(doc, func(p types.Page) bool {
		return re.MatchString(textnorm.Fold(PageText(p)))
	})
}

// FindTokens returns the pages containing every token anywhere on the page.
func FindTokens(doc *types.CatalogDocument, tokens []string) []types.Page {
	if len(tokens) == 0 {
		return nil
	}
	return filterPages(doc, func(p types.Page) bool {
		return textnorm.ContainsAll(textnorm.TokenSet(PageText(p)), tokens)
	})
}

func filterPages(doc *types.CatalogDocument, keep func(types.Page) bool) []types.Page {
	if doc == nil {
		return nil
	}
	var pages []types.Page
	for _, p := range doc.Pages {
		if keep(p) {
			pages = append(pages, p)
		}
	}
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Number < pages[j].Number
	})
	return pages
}
