// Package matching resolves template parameters to values found on catalog pages.
//
// The matcher is family-agnostic: it only consumes the parameter list it is given.
// For every parameter it collects candidates from table rows and text lines,
// rejects unusable ones with a reason, orders the rest deterministically and
// keeps the first as the winner. Every other candidate is retained for audit.
package matching

import (
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jonathan/proposal-customizer/internal/textnorm"
	"github.com/jonathan/proposal-customizer/internal/types"
)

// Matcher resolves parameters against a page set.
type Matcher struct {
	logger *zap.Logger
}

// NewMatcher creates a Matcher. A nil logger disables logging.
func NewMatcher(logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{logger: logger}
}

// Match resolves params against pages with a no-op logger.
func Match(pages []types.Page, params []types.ParameterSpec) []types.ResolvedParameter {
	return NewMatcher(nil).Match(pages, params)
}

// Match returns one ResolvedParameter per parameter, in parameter order.
// Unresolved parameters have a nil Value. The result depends only on the inputs.
func (m *Matcher) Match(pages []types.Page, params []types.ParameterSpec) []types.ResolvedParameter {
	ordered := make([]types.Page, len(pages))
	copy(ordered, pages)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Number < ordered[j].Number
	})

	resolved := make([]types.ResolvedParameter, 0, len(params))
	for _, p := range params {
		resolved = append(resolved, m.resolve(ordered, p))
	}
	return resolved
}

// found is a candidate under evaluation; reason is empty for a usable candidate.
type found struct {
	candidate types.Candidate
	reason    types.RejectReason
}

func (m *Matcher) resolve(pages []types.Page, p types.ParameterSpec) types.ResolvedParameter {
	out := types.ResolvedParameter{Key: p.Key, Label: p.Label}
	forms := labelForms(p)
	if len(forms) == 0 {
		return out
	}

	var valid, invalid []found
	for _, page := range pages {
		for ri, row := range page.TableRows {
			f, ok := bestOf(forms, func(form labelForm) (found, bool) {
				return tableCandidate(p, form, page.Number, ri, row)
			})
			if !ok {
				continue
			}
			if f.reason == "" {
				valid = append(valid, f)
				continue
			}
			invalid = append(invalid, f)
			if f.reason == types.RejectMalformedRow {
				m.logger.Warn("malformed row skipped",
					zap.String("parameter", p.Key),
					zap.Int("page", page.Number),
					zap.Int("row", ri),
				)
			}
		}

		line := 0
		for _, block := range page.TextBlocks {
			for _, text := range strings.Split(block.Text, "\n") {
				f, ok := bestOf(forms, func(form labelForm) (found, bool) {
					return textCandidate(p, form, page.Number, line, text)
				})
				line++
				if !ok {
					continue
				}
				if f.reason == "" {
					valid = append(valid, f)
				} else {
					invalid = append(invalid, f)
				}
			}
		}
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return less(valid[i].candidate, valid[j].candidate)
	})
	for i := range valid {
		valid[i].candidate.Rank = i + 1
	}

	if len(valid) > 0 {
		winner := valid[0].candidate
		value := normalizeValue(winner.Raw)
		out.Value = &value
		out.Winner = &winner
		for _, f := range valid[1:] {
			out.Rejected = append(out.Rejected, types.RejectedCandidate{Candidate: f.candidate, Reason: types.RejectOutranked})
		}
	}
	for _, f := range invalid {
		out.Rejected = append(out.Rejected, types.RejectedCandidate{Candidate: f.candidate, Reason: f.reason})
	}

	m.logger.Debug("parameter matched",
		zap.String("parameter", p.Key),
		zap.Bool("resolved", out.Value != nil),
		zap.Int("candidates", len(valid)),
		zap.Int("rejected", len(out.Rejected)),
	)
	return out
}

// bestOf evaluates every label form on one source and keeps a single candidate:
// usable before rejected, then higher specificity, then the earlier form.
func bestOf(forms []labelForm, eval func(labelForm) (found, bool)) (found, bool) {
	var best found
	have := false
	for _, form := range forms {
		f, ok := eval(form)
		if !ok {
			continue
		}
		if !have || better(f, best) {
			best, have = f, true
		}
	}
	return best, have
}

func better(a, b found) bool {
	if (a.reason == "") != (b.reason == "") {
		return a.reason == ""
	}
	return a.candidate.Specificity > b.candidate.Specificity
}

// less is the total candidate order: specificity desc, page asc, table before
// text, row asc, column asc.
func less(a, b types.Candidate) bool {
	if a.Specificity != b.Specificity {
		return a.Specificity > b.Specificity
	}
	if a.Page != b.Page {
		return a.Page < b.Page
	}
	if a.Source != b.Source {
		return a.Source == types.SourceTable
	}
	if a.RowIndex != b.RowIndex {
		return a.RowIndex < b.RowIndex
	}
	return a.Column < b.Column
}

// tableCandidate matches one label form against a table row. ok is false when the
// row does not mention the label at all.
func tableCandidate(p types.ParameterSpec, form labelForm, page, index int, row types.TableRow) (found, bool) {
	inPath := false
	for _, seg := range row.HeaderPath {
		if form.in(seg) {
			inPath = true
			break
		}
	}
	labelCol := -1
	for i, cell := range row.Cells {
		if form.in(cell) {
			labelCol = i
			break
		}
	}
	if !inPath && labelCol < 0 {
		return found{}, false
	}

	c := types.Candidate{
		Key:         p.Key,
		Page:        page,
		Source:      types.SourceTable,
		HeaderPath:  append([]string(nil), row.HeaderPath...),
		RowCells:    append([]string(nil), row.Cells...),
		SourceText:  row.RawText(),
		RowIndex:    index,
		Column:      -1,
		Specificity: form.specificity(row.HeaderPath),
	}

	if len(row.Cells) == 0 || !validUTF8(row.Cells) || !validUTF8(row.HeaderPath) {
		return found{candidate: c, reason: types.RejectMalformedRow}, true
	}
	if form.axis != "" && !axesIn(row.HeaderPathString() + "\n" + row.RawText())[form.axis] {
		return found{candidate: c, reason: types.RejectAxisMismatch}, true
	}

	col := valueColumn(form, row, labelCol+1)
	if col < 0 {
		return found{candidate: c, reason: types.RejectNoValue}, true
	}
	c.Column = col
	c.Raw = row.Cells[col]
	return found{candidate: c, reason: checkValue(p, c.Raw)}, true
}

// valueColumn returns the first cell from start that can hold a value, or -1.
func valueColumn(form labelForm, row types.TableRow, start int) int {
	headers := make(map[string]bool, len(row.HeaderPath))
	for _, seg := range row.HeaderPath {
		headers[textnorm.Fold(seg)] = true
	}
	for i := start; i < len(row.Cells); i++ {
		cell := row.Cells[i]
		switch {
		case isPlaceholder(cell), isUnitOnly(cell), isAxisCell(cell):
			continue
		case headers[textnorm.Fold(cell)], form.in(cell):
			continue
		}
		return i
	}
	return -1
}

// textCandidate matches one label form against a text line. Only lines starting
// with the label (after optional qualifiers) are candidates; the value is the rest
// of the line after an axis designator and separators.
func textCandidate(p types.ParameterSpec, form labelForm, page, line int, text string) (found, bool) {
	loc := form.prefix.FindStringSubmatchIndex(text)
	if loc == nil {
		return found{}, false
	}

	c := types.Candidate{
		Key:        p.Key,
		Page:       page,
		Source:     types.SourceText,
		SourceText: strings.TrimSpace(text),
		RowIndex:   line,
	}
	if !utf8.ValidString(text) {
		return found{candidate: c, reason: types.RejectMalformedRow}, true
	}
	if form.axis != "" && !axesIn(text)[form.axis] {
		return found{candidate: c, reason: types.RejectAxisMismatch}, true
	}

	rest := text[loc[3]:]
	rest = leadingAxis.ReplaceAllString(rest, "")
	rest = strings.TrimLeft(rest, " \t:：=-–—.")
	c.Raw = strings.TrimSpace(rest)
	return found{candidate: c, reason: checkValue(p, c.Raw)}, true
}

// checkValue applies the normalization rule checks to a raw value.
func checkValue(p types.ParameterSpec, raw string) types.RejectReason {
	if normalizeValue(raw) == "" {
		return types.RejectEmptyValue
	}
	if p.Unit == types.NormalizeMultiBraceVariant && !balancedBraces(raw) {
		return types.RejectUnbalancedBraces
	}
	return ""
}

func validUTF8(values []string) bool {
	for _, v := range values {
		if !utf8.ValidString(v) {
			return false
		}
	}
	return true
}
