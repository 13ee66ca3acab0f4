// Package types provides type definitions for structured data used throughout the proposal-customizer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"sort"
	"strings"
)

// HeaderPathSeparator joins nested column headers into a single path string.
const HeaderPathSeparator = " | "

// CatalogDocument is a vendor catalog loaded into page-indexed content.
// It is read-only once loaded and may be shared across concurrent extractions.
type CatalogDocument struct {
	Path  string `json:"path"`
	Name  string `json:"name" validate:"required"`
	Pages []Page `json:"pages" validate:"required,min=1,dive"`
}

// Page is a single 1-based page of a catalog.
type Page struct {
	Number     int         `json:"number" validate:"min=1"`
	TextBlocks []TextBlock `json:"text_blocks,omitempty"`
	TableRows  []TableRow  `json:"table_rows,omitempty"`
}

// TextBlock is a run of free text on a page.
type TextBlock struct {
	Text string `json:"text"`
}

// TableRow is a row of cells with the collapsed path of the column headers above it.
type TableRow struct {
	Cells      []string `json:"cells"`
	HeaderPath []string `json:"header_path,omitempty"`
}

// HeaderPathString returns the header path joined with " | ".
func (r TableRow) HeaderPathString() string {
	return strings.Join(r.HeaderPath, HeaderPathSeparator)
}

// RawText returns the row cells joined the same way as the header path.
func (r TableRow) RawText() string {
	return strings.Join(r.Cells, HeaderPathSeparator)
}

// HasPage reports whether a page with the given number exists in the document.
func (d *CatalogDocument) HasPage(number int) bool {
	_, ok := d.Page(number)
	return ok
}

// Page returns the page with the given number.
func (d *CatalogDocument) Page(number int) (Page, bool) {
	for _, p := range d.Pages {
		if p.Number == number {
			return p, true
		}
	}
	return Page{}, false
}

// TableDensePages returns up to n pages with the most table rows, densest first.
// Pages without table rows are never returned. Ties resolve to the lower page number
// and the result is ordered by page number ascending.
func (d *CatalogDocument) TableDensePages(n int) []Page {
	if n <= 0 {
		return nil
	}
	ranked := make([]Page, 0, len(d.Pages))
	for _, p := range d.Pages {
		if len(p.TableRows) > 0 {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if len(ranked[i].TableRows) != len(ranked[j].TableRows) {
			return len(ranked[i].TableRows) > len(ranked[j].TableRows)
		}
		return ranked[i].Number < ranked[j].Number
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Number < ranked[j].Number
	})
	return ranked
}

// PageNumbers returns the numbers of the given pages in order.
func PageNumbers(pages []Page) []int {
	numbers := make([]int, len(pages))
	for i, p := range pages {
		numbers[i] = p.Number
	}
	return numbers
}
