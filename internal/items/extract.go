// Package items extracts the main unit, standard equipment and option lists from catalog text.
package items

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/proposal-customizer/internal/textnorm"
	"github.com/jonathan/proposal-customizer/internal/types"
)

const (
	// markerSlack is how many extra characters a heading may carry after a marker phrase.
	markerSlack = 15
	// maxPlainItem is the longest unbulleted line still treated as a list item.
	maxPlainItem = 80
)

var listPrefix = regexp.MustCompile(`^(?:[-–—•●◦▪■□·*‣>]+|\(?\d{1,3}[.)]|[a-z][.)])\s+`)

type section int

const (
	sectionNone section = iota
	sectionMain
	sectionStandard
	sectionOptions
)

// marker is a folded section phrase.
type marker struct {
	phrase  string
	section section
}

// Extract scans the text blocks of pages, in page order, for section marker lines
// and collects the list lines following each marker until the next marker or the
// end of the page. Lists are deduplicated, first occurrence kept. Empty lists are
// a valid outcome.
func Extract(pages []types.Page, markers types.SectionMarkers) types.Items {
	all := compileMarkers(markers)

	ordered := make([]types.Page, len(pages))
	copy(ordered, pages)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Number < ordered[j].Number
	})

	lists := map[section]*list{
		sectionMain:     newList(),
		sectionStandard: newList(),
		sectionOptions:  newList(),
	}

	for _, page := range ordered {
		current := sectionNone
		// bulleted is set once the current section has a bulleted or numbered item.
		bulleted := false
		for _, block := range page.TextBlocks {
			first := true
			for _, line := range strings.Split(block.Text, "\n") {
				line = textnorm.CollapseSpace(line)
				if line == "" {
					continue
				}
				newBlock := first
				first = false
				if s, ok := matchMarker(all, line); ok {
					current, bulleted = s, false
					continue
				}
				if current == sectionNone {
					continue
				}
				item, marked, ok := listItem(line)
				if !marked && bulleted && newBlock {
					// a plain block after a bulleted list is the next part of the page
					current = sectionNone
					continue
				}
				if ok {
					lists[current].add(item)
					bulleted = bulleted || marked
				}
			}
		}
	}

	return types.Items{
		MainUnits:     lists[sectionMain].items,
		StandardItems: lists[sectionStandard].items,
		OptionItems:   lists[sectionOptions].items,
	}
}

func compileMarkers(m types.SectionMarkers) []marker {
	var out []marker
	add := func(phrases []string, s section) {
		for _, p := range phrases {
			if folded := textnorm.Fold(p); folded != "" {
				out = append(out, marker{phrase: folded, section: s})
			}
		}
	}
	add(m.MainUnits, sectionMain)
	add(m.Standard, sectionStandard)
	add(m.Options, sectionOptions)
	// Longest phrase first so "optional equipment" wins over a shorter overlapping marker.
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].phrase) > len(out[j].phrase)
	})
	return out
}

// matchMarker reports whether line is a section heading: it equals a marker, or
// starts with one and is at most markerSlack characters longer.
func matchMarker(markers []marker, line string) (section, bool) {
	folded := strings.TrimRight(textnorm.Fold(line), " :：")
	folded = strings.TrimSpace(listPrefix.ReplaceAllString(folded, ""))
	for _, m := range markers {
		if folded == m.phrase {
			return m.section, true
		}
		if strings.HasPrefix(folded, m.phrase) &&
			utf8.RuneCountInString(folded) <= utf8.RuneCountInString(m.phrase)+markerSlack &&
			boundaryAfter(folded, len(m.phrase)) {
			return m.section, true
		}
	}
	return sectionNone, false
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
}

// listItem returns the item text of a bulleted, numbered or short plain line.
// marked reports whether the line carried a bullet or number.
func listItem(line string) (item string, marked, ok bool) {
	if loc := listPrefix.FindStringIndex(line); loc != nil {
		item = strings.TrimSpace(line[loc[1]:])
		return item, true, item != ""
	}
	if utf8.RuneCountInString(line) > maxPlainItem || strings.HasSuffix(line, ":") {
		return "", false, false
	}
	return line, false, true
}

type list struct {
	items []string
	seen  map[string]bool
}

func newList() *list {
	return &list{items: []string{}, seen: make(map[string]bool)}
}

func (l *list) add(item string) {
	key := textnorm.Fold(item)
	if l.seen[key] {
		return
	}
	l.seen[key] = true
	l.items = append(l.items, item)
}
