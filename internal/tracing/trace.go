// Package tracing projects resolved parameters into audit trace entries.
package tracing

import (
	"sort"

	"github.com/jonathan/proposal-customizer/internal/types"
)

// Build returns one TraceEntry per resolved parameter, in parameter order.
// Unresolved parameters have no entry. Every field of the winning candidate is copied.
func Build(params []types.ResolvedParameter) []types.TraceEntry {
	entries := make([]types.TraceEntry, 0, len(params))
	for _, p := range params {
		if p.Value == nil || p.Winner == nil {
			continue
		}
		w := p.Winner
		entries = append(entries, types.TraceEntry{
			Key:         p.Key,
			Label:       p.Label,
			Value:       *p.Value,
			Raw:         w.Raw,
			Page:        w.Page,
			Source:      w.Source,
			HeaderPath:  append([]string(nil), w.HeaderPath...),
			RowCells:    append([]string(nil), w.RowCells...),
			SourceText:  w.SourceText,
			RowIndex:    w.RowIndex,
			Column:      w.Column,
			Specificity: w.Specificity,
			Rank:        w.Rank,
		})
	}
	return entries
}

// ByPageDensity returns up to n entries grouped by page, pages with the most
// entries first (ties to the lower page), parameter order within a page.
func ByPageDensity(entries []types.TraceEntry, n int) []types.TraceEntry {
	if n <= 0 || len(entries) == 0 {
		return nil
	}
	counts := make(map[int]int)
	for _, e := range entries {
		counts[e.Page]++
	}

	sorted := make([]types.TraceEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Page, sorted[j].Page
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return a < b
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Lines renders every entry with TraceEntry.Line.
func Lines(entries []types.TraceEntry) []string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Line()
	}
	return lines
}
