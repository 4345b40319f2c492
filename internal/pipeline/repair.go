package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"notescan/internal"
)

var (
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
	reControlChars  = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)
	reHeadersSpan   = regexp.MustCompile(`(?s)"headers"\s*:\s*\[(.*?)\]`)
	reRowsSpan      = regexp.MustCompile(`(?s)"rows"\s*:\s*\[(.*?)\]\s*\}`)
	reQuotedToken   = regexp.MustCompile(`"([^"]*)"`)
	reRowSpan       = regexp.MustCompile(`(?s)\[(.*?)\]`)
)

// RepairTable recovers a table from a recognition response. The response is
// adversarial: prose, Markdown fencing and broken JSON all occur in
// practice. Three stages run in order; nil means the image contributes no
// data, and no stage is allowed to panic or return an error past this
// boundary.
func RepairTable(raw string) *internal.ExtractedTable {
	if table := strictParse(raw); table != nil {
		return table
	}
	if table := salvageParse(raw); table != nil {
		return table
	}
	return htmlTableParse(raw)
}

// strictParse takes the greedy outer-brace span, scrubs the usual damage
// (trailing commas, control characters) and attempts a real JSON parse.
func strictParse(raw string) *internal.ExtractedTable {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil
	}

	span := raw[start : end+1]
	span = reTrailingComma.ReplaceAllString(span, "$1")
	span = reControlChars.ReplaceAllString(span, "")

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &decoded); err != nil {
		return nil
	}

	headersRaw, hasHeaders := decoded["headers"]
	rowsRaw, hasRows := decoded["rows"]
	if !hasHeaders || !hasRows {
		return nil
	}

	headers, ok := decodeCellList(headersRaw)
	if !ok {
		return nil
	}

	var rowsAny []json.RawMessage
	if err := json.Unmarshal(rowsRaw, &rowsAny); err != nil {
		return nil
	}
	rows := make([][]string, 0, len(rowsAny))
	for _, rowRaw := range rowsAny {
		row, ok := decodeCellList(rowRaw)
		if !ok {
			return nil
		}
		rows = append(rows, row)
	}

	if len(headers) == 0 {
		return nil
	}
	return &internal.ExtractedTable{Headers: headers, Rows: rows}
}

// decodeCellList reads a JSON array of scalars as strings. The service is
// told to quote everything but still emits bare numbers now and then.
func decodeCellList(raw json.RawMessage) ([]string, bool) {
	var cells []any
	if err := json.Unmarshal(raw, &cells); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(cells))
	for _, cell := range cells {
		switch v := cell.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			out = append(out, strconv.FormatBool(v))
		case nil:
			out = append(out, "")
		default:
			return nil, false
		}
	}
	return out, true
}

// salvageParse trades structural rigor for token-level recoverability:
// bracket spans for the headers and rows members are located by pattern,
// then every quoted token inside them is collected. Unbalanced quotes or
// stray commentary elsewhere in the text no longer matter.
func salvageParse(raw string) *internal.ExtractedTable {
	headersMatch := reHeadersSpan.FindStringSubmatch(raw)
	rowsMatch := reRowsSpan.FindStringSubmatch(raw)
	if headersMatch == nil || rowsMatch == nil {
		return nil
	}

	headers := quotedTokens(headersMatch[1])
	if len(headers) == 0 {
		return nil
	}

	rows := make([][]string, 0)
	for _, rowSpan := range reRowSpan.FindAllStringSubmatch(rowsMatch[1], -1) {
		row := quotedTokens(rowSpan[1])
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	return &internal.ExtractedTable{Headers: headers, Rows: rows}
}

func quotedTokens(span string) []string {
	matches := reQuotedToken.FindAllStringSubmatch(span, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// htmlTableParse is the last resort for responses that ignore the JSON
// directive entirely and answer with a rendered HTML table. The first table
// found wins; its first row becomes the header row.
func htmlTableParse(raw string) *internal.ExtractedTable {
	if !strings.Contains(strings.ToLower(raw), "<table") {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil
	}

	var table *internal.ExtractedTable
	doc.Find("table").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		trs := sel.Find("tr")
		if trs.Length() < 2 {
			return true
		}

		headers := []string{}
		trs.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(cell.Text()))
		})
		if len(headers) == 0 {
			return true
		}

		rows := [][]string{}
		trs.Slice(1, trs.Length()).Each(func(_ int, tr *goquery.Selection) {
			row := []string{}
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				row = append(row, strings.TrimSpace(cell.Text()))
			})
			if len(row) > 0 {
				rows = append(rows, row)
			}
		})
		if len(rows) == 0 {
			return true
		}

		table = &internal.ExtractedTable{Headers: headers, Rows: rows}
		return false
	})

	return table
}

// DescribeTable renders a short summary line for progress output.
func DescribeTable(table *internal.ExtractedTable) string {
	if table == nil {
		return "no table"
	}
	return fmt.Sprintf("%d columns, %d rows", len(table.Headers), len(table.Rows))
}
