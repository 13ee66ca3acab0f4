package matching

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jonathan/proposal-customizer/internal/textnorm"
	"github.com/jonathan/proposal-customizer/internal/types"
)

var (
	axisPhrase    = regexp.MustCompile(`(?:^|[^\pL\pN])([xyzabcuvw])[\s\-]*axis(?:es)?(?:$|[^\pL\pN])`)
	axisOnlyCell  = regexp.MustCompile(`^\(?[xyzabcuvw][\s\-]*axis(?:es)?\)?$`)
	parenthetical = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	// leadingAxis strips axis designators and unit parentheticals between a label and its value.
	leadingAxis = regexp.MustCompile(`(?i)^(?:\s*(?:\(?[xyzabcuvw][\s\-]*axis(?:es)?\)?|\([^)]*\)))*`)
)

// qualifierTokens are dropped from labels before comparison.
var qualifierTokens = map[string]bool{
	"max":     true,
	"maximum": true,
	"min":     true,
	"minimum": true,
}

// stopTokens never count toward header-path specificity.
var stopTokens = map[string]bool{
	"axis": true, "axes": true, "max": true, "maximum": true, "min": true, "minimum": true,
	"of": true, "the": true, "and": true, "on": true, "no": true,
}

// unitTokens are the unit words found in catalog unit columns.
var unitTokens = map[string]bool{
	"mm": true, "cm": true, "m": true, "um": true, "μm": true, "inch": true, "in": true, "ft": true,
	"kw": true, "w": true, "hp": true, "kva": true, "v": true, "hz": true,
	"r": true, "rpm": true, "rev": true, "revs": true, "min": true, "sec": true, "s": true, "ipm": true,
	"kg": true, "kgf": true, "lb": true, "lbs": true, "lbf": true, "ton": true, "n": true, "nm": true, "kn": true,
	"deg": true, "degree": true, "degrees": true,
	"ea": true, "pcs": true, "ef": true, "bar": true, "mpa": true, "psi": true, "l": true, "gal": true,
}

var placeholders = map[string]bool{
	"n/a": true, "na": true, "none": true, "tbd": true, "-": true,
}

// labelForm is a label prepared for comparison against catalog text.
type labelForm struct {
	phrase  []string       // comparison tokens, qualifiers and units removed
	axis    string         // axis letter named by the label, if any
	tokens  []string       // significant tokens of the full label, for specificity
	pattern *regexp.Regexp // phrase on folded text
	prefix  *regexp.Regexp // phrase at the start of an unfolded text line
}

// labelForms prepares the label and aliases of p, dropping duplicates and labels
// that reduce to nothing.
func labelForms(p types.ParameterSpec) []labelForm {
	var forms []labelForm
	seen := make(map[string]bool)
	for _, label := range p.Labels() {
		f, ok := newLabelForm(label)
		if !ok {
			continue
		}
		key := strings.Join(f.phrase, " ") + "|" + f.axis
		if seen[key] {
			continue
		}
		seen[key] = true
		forms = append(forms, f)
	}
	return forms
}

func newLabelForm(label string) (labelForm, bool) {
	folded := textnorm.Fold(label)
	var f labelForm

	if m := axisPhrase.FindStringSubmatchIndex(folded); m != nil {
		f.axis = folded[m[2]:m[3]]
		folded = folded[:m[0]] + " " + folded[m[1]:]
	}
	folded = parenthetical.ReplaceAllString(folded, " ")

	for _, t := range textnorm.Tokens(folded) {
		if qualifierTokens[t] {
			continue
		}
		f.phrase = append(f.phrase, t)
	}
	for len(f.phrase) > 1 && unitTokens[f.phrase[len(f.phrase)-1]] {
		f.phrase = f.phrase[:len(f.phrase)-1]
	}
	if len(f.phrase) == 0 {
		return labelForm{}, false
	}

	for _, t := range textnorm.Tokens(label) {
		if !stopTokens[t] {
			f.tokens = append(f.tokens, t)
		}
	}

	f.pattern = textnorm.PhrasePattern(f.phrase)
	quoted := make([]string, len(f.phrase))
	for i, t := range f.phrase {
		quoted[i] = regexp.QuoteMeta(t)
	}
	f.prefix = regexp.MustCompile(`(?i)^((?:[^\pL\pN]*(?:max|maximum|min|minimum)\b)*[^\pL\pN]*` +
		strings.Join(quoted, `[^\pL\pN]*`) + `)(?:$|[^\pL\pN])`)
	return f, true
}

// in reports whether the phrase appears on word boundaries in s.
func (f labelForm) in(s string) bool {
	return f.pattern.MatchString(textnorm.Fold(s))
}

// specificity counts the header segments sharing a significant token with the label.
func (f labelForm) specificity(headerPath []string) int {
	n := 0
	for _, seg := range headerPath {
		set := textnorm.TokenSet(seg)
		for _, t := range f.tokens {
			if _, ok := set[t]; ok {
				n++
				break
			}
		}
	}
	return n
}

// axesIn returns the axis letters named in s.
func axesIn(s string) map[string]bool {
	axes := make(map[string]bool)
	folded := textnorm.Fold(s)
	// Restart right after each axis letter; adjacent matches share a boundary character.
	for i := 0; i < len(folded); {
		m := axisPhrase.FindStringSubmatchIndex(folded[i:])
		if m == nil {
			break
		}
		axes[folded[i+m[2]:i+m[3]]] = true
		i += m[3]
	}
	return axes
}

// isPlaceholder reports whether a cell carries no value.
func isPlaceholder(cell string) bool {
	folded := textnorm.Fold(cell)
	if folded == "" || placeholders[folded] {
		return true
	}
	return strings.IndexFunc(folded, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) < 0
}

// exponentTokens may follow a unit token, as in "min⁻¹" (folded to "min-1") or "m³".
var exponentTokens = map[string]bool{"1": true, "2": true, "3": true}

// isUnitOnly reports whether a cell is a unit heading such as "mm (inch)", "r/min"
// or "min⁻¹": every token is a unit, or an exponent directly after a unit.
func isUnitOnly(cell string) bool {
	tokens := textnorm.Tokens(cell)
	if len(tokens) == 0 {
		return false
	}
	for i, t := range tokens {
		if unitTokens[t] {
			continue
		}
		if i > 0 && exponentTokens[t] && unitTokens[tokens[i-1]] {
			continue
		}
		return false
	}
	return true
}

// isAxisCell reports whether a cell only names an axis, like "X axis".
func isAxisCell(cell string) bool {
	return axisOnlyCell.MatchString(textnorm.Fold(cell))
}

// balancedBraces reports whether every "{" is closed by a later "}".
func balancedBraces(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// normalizeValue collapses whitespace. Braced variants and unit pairs are kept
// verbatim; no rule converts units.
func normalizeValue(raw string) string {
	return textnorm.CollapseSpace(raw)
}
