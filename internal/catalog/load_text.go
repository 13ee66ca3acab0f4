package catalog

import (
	"context"
	"regexp"
	"strings"

	"github.com/jonathan/proposal-customizer/internal/types"
)

// columnGap separates columns in layout-preserving text dumps.
var columnGap = regexp.MustCompile(`\t+|\s{2,}`)

// decodeText reads a pdftotext -layout style dump. Form feeds separate pages and
// blank pages are dropped without renumbering the rest. Lines with two or more
// columns are table rows under the latest heading line; runs of single-column
// lines form text blocks.
func decodeText(ctx context.Context, data []byte) (*types.CatalogDocument, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")

	doc := &types.CatalogDocument{}
	for i, chunk := range strings.Split(content, "\f") {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		doc.Pages = append(doc.Pages, textPage(i+1, chunk))
	}
	return doc, nil
}

func textPage(number int, chunk string) types.Page {
	page := types.Page{Number: number}
	heading := ""
	var paragraph []string

	flush := func() {
		if len(paragraph) > 0 {
			page.TextBlocks = append(page.TextBlocks, types.TextBlock{Text: strings.Join(paragraph, "\n")})
			paragraph = nil
		}
	}

	for _, line := range strings.Split(chunk, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		cols := columnGap.Split(trimmed, -1)
		if len(cols) >= 2 {
			flush()
			page.TableRows = append(page.TableRows, types.TableRow{
				Cells:      cols,
				HeaderPath: compactPath(heading, cols[0]),
			})
			continue
		}
		paragraph = append(paragraph, trimmed)
		heading = trimmed
	}
	flush()
	return page
}
