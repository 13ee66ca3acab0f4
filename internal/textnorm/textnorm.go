// Package textnorm provides the text folding and tokenization shared by catalog search,
// model location and parameter matching.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var folder = cases.Fold()

// Fold returns s in a comparable form: NFKC, narrow width, case-folded, whitespace collapsed.
func Fold(s string) string {
	s = norm.NFKC.String(s)
	s = width.Fold.String(s)
	s = folder.String(s)
	return CollapseSpace(s)
}

// CollapseSpace trims s and replaces every whitespace run with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Tokens folds s and splits it into alphanumeric tokens. A token boundary is any
// non-alphanumeric rune and any transition between letters and digits, so
// "DVF5000" and "DVF 5000" tokenize identically.
func Tokens(s string) []string {
	folded := Fold(s)
	var tokens []string
	var current []rune
	var lastDigit bool
	flush := func() {
		if len(current) > 0 {
			tokens = append(tokens, string(current))
			current = current[:0]
		}
	}
	for _, r := range folded {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		isDigit := unicode.IsDigit(r)
		if len(current) > 0 && isDigit != lastDigit {
			flush()
		}
		current = append(current, r)
		lastDigit = isDigit
	}
	flush()
	return tokens
}

// TokenSet returns the tokens of s as a set.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Tokens(s) {
		set[t] = struct{}{}
	}
	return set
}

// ContainsAll reports whether every token is present in set.
func ContainsAll(set map[string]struct{}, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, t := range tokens {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// PhrasePattern compiles a pattern matching the tokens in sequence on folded text,
// separated by any non-alphanumeric runs and bounded by non-alphanumerics.
// It returns nil for an empty token list.
func PhrasePattern(tokens []string) *regexp.Regexp {
	if len(tokens) == 0 {
		return nil
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = regexp.QuoteMeta(t)
	}
	expr := `(?:^|[^\pL\pN])` + strings.Join(quoted, `[^\pL\pN]*`) + `(?:$|[^\pL\pN])`
	return regexp.MustCompile(expr)
}

// ContainsPhrase reports whether the folded haystack contains phrase as a token sequence.
func ContainsPhrase(haystack, phrase string) bool {
	re := PhrasePattern(Tokens(phrase))
	if re == nil {
		return false
	}
	return re.MatchString(Fold(haystack))
}

// HasDigit reports whether s contains a decimal digit.
func HasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
