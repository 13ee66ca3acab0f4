package catalog

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/proposal-customizer/internal/types"
)

// decodeXLSX reads a spreadsheet catalog where every sheet is one page.
// A row with a single filled cell is a text block and opens a new section;
// any other row is a table row whose header path is the section followed by
// the row label (the first cell, inherited from the row above when merged).
func decodeXLSX(ctx context.Context, data []byte) (*types.CatalogDocument, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc := &types.CatalogDocument{}
	for i, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		doc.Pages = append(doc.Pages, sheetPage(i+1, rows))
	}
	return doc, nil
}

func sheetPage(number int, rows [][]string) types.Page {
	page := types.Page{Number: number}
	section := ""
	lastLabel := ""

	for _, row := range rows {
		cells := trimRow(row)
		filled := 0
		for _, c := range cells {
			if c != "" {
				filled++
			}
		}
		switch {
		case filled == 0:
			continue
		case filled == 1 && cells[0] != "":
			page.TextBlocks = append(page.TextBlocks, types.TextBlock{Text: cells[0]})
			section = cells[0]
			lastLabel = ""
		default:
			label := cells[0]
			if label == "" {
				label = lastLabel
			} else {
				lastLabel = label
			}
			page.TableRows = append(page.TableRows, types.TableRow{
				Cells:      cells,
				HeaderPath: compactPath(section, label),
			})
		}
	}
	return page
}

// trimRow trims every cell and drops trailing empty cells.
func trimRow(row []string) []string {
	cells := make([]string, len(row))
	for i, c := range row {
		cells[i] = strings.TrimSpace(c)
	}
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	return cells[:end]
}

// compactPath returns the non-empty segments in order, without consecutive duplicates.
func compactPath(segments ...string) []string {
	var path []string
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if len(path) > 0 && path[len(path)-1] == s {
			continue
		}
		path = append(path, s)
	}
	return path
}
