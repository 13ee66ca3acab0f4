package catalog

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/proposal-customizer/internal/textnorm"
	"github.com/jonathan/proposal-customizer/internal/types"
)

// decodeHTML reads an HTML catalog export. Elements carrying data-page are pages
// (numbered by the attribute when numeric); without them the body is page 1.
func decodeHTML(ctx context.Context, data []byte) (*types.CatalogDocument, error) {
	html, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc := &types.CatalogDocument{Name: textnorm.CollapseSpace(html.Find("title").First().Text())}

	containers := html.Find("[data-page]")
	if containers.Length() == 0 {
		containers = html.Find("body")
	}

	var walkErr error
	containers.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if err := ctx.Err(); err != nil {
			walkErr = err
			return false
		}
		number := i + 1
		if attr, ok := s.Attr("data-page"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(attr)); err == nil && n > 0 {
				number = n
			}
		}
		doc.Pages = append(doc.Pages, htmlPage(number, s))
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return doc, nil
}

func htmlPage(number int, s *goquery.Selection) types.Page {
	page := types.Page{Number: number}
	section := ""

	s.Find("h1, h2, h3, h4, p, li, pre, table").Each(func(_ int, el *goquery.Selection) {
		name := goquery.NodeName(el)
		if name != "table" && el.ParentsFiltered("table").Length() > 0 {
			return
		}
		switch name {
		case "table":
			page.TableRows = append(page.TableRows, htmlTableRows(el, section)...)
		case "pre":
			if text := strings.TrimSpace(el.Text()); text != "" {
				page.TextBlocks = append(page.TextBlocks, types.TextBlock{Text: text})
			}
		default:
			text := textnorm.CollapseSpace(el.Text())
			if text == "" {
				return
			}
			if strings.HasPrefix(name, "h") {
				section = text
			}
			page.TextBlocks = append(page.TextBlocks, types.TextBlock{Text: text})
		}
	})
	return page
}

// rowSpan is a row header cell that continues into following rows.
type rowSpan struct {
	text      string
	remaining int
}

// htmlTableRows converts a table into rows. Header cells (th) in a body row form the
// header path, including th cells carried down by rowspan; a row without any th uses
// its first cell as the label. Rows inside thead are column headings and are skipped.
func htmlTableRows(table *goquery.Selection, section string) []types.TableRow {
	prefix := section
	if caption := textnorm.CollapseSpace(table.Find("caption").First().Text()); caption != "" {
		prefix = caption
	}

	var rows []types.TableRow
	var carried []rowSpan

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.ParentsFiltered("thead").Length() > 0 {
			return
		}
		if tr.ParentsFiltered("table").First().Get(0) != table.Get(0) {
			return
		}

		var cells []string
		path := []string{prefix}
		var next []rowSpan
		for _, c := range carried {
			cells = append(cells, c.text)
			path = append(path, c.text)
			if c.remaining > 1 {
				next = append(next, rowSpan{text: c.text, remaining: c.remaining - 1})
			}
		}

		sawHeader := len(carried) > 0
		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			text := textnorm.CollapseSpace(cell.Text())
			cells = append(cells, text)
			if goquery.NodeName(cell) != "th" {
				return
			}
			sawHeader = true
			path = append(path, text)
			if span, err := strconv.Atoi(cell.AttrOr("rowspan", "1")); err == nil && span > 1 {
				next = append(next, rowSpan{text: text, remaining: span - 1})
			}
		})
		carried = next

		if len(cells) == 0 {
			return
		}
		if !sawHeader {
			path = append(path, cells[0])
		}
		rows = append(rows, types.TableRow{Cells: cells, HeaderPath: compactPath(path...)})
	})
	return rows
}
