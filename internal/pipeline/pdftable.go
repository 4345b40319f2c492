package pipeline

import (
	"bytes"
	"errors"
	"regexp"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"notescan/internal"
)

var reColumnSplit = regexp.MustCompile(`\s{2,}|\t|\s*[;|]\s*`)

// ExtractTableFromPDF reads a text-layer packing note directly, skipping the
// remote recognition call. The first non-empty line of the first page with
// content becomes the header row; remaining lines split on column gaps.
// Scanned (image-only) PDFs have no text layer and return an error; those
// go through the recognition pipeline instead.
func ExtractTableFromPDF(content []byte) (*internal.ExtractedTable, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	var headers []string
	rows := [][]string{}
	for pageNo := 1; pageNo <= reader.NumPage(); pageNo++ {
		page := reader.Page(pageNo)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		for _, line := range splitLines(text) {
			cells := splitColumns(line)
			if len(cells) < 2 {
				continue
			}
			if headers == nil {
				headers = cells
				continue
			}
			rows = append(rows, cells)
		}
	}

	if headers == nil || len(rows) == 0 {
		return nil, errors.New("pdf carries no tabular text layer")
	}
	return &internal.ExtractedTable{Headers: headers, Rows: rows}, nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitColumns(line string) []string {
	parts := reColumnSplit.Split(line, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
