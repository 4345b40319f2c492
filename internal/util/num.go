package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyRunes = strings.NewReplacer("¥", "", "￥", "", "$", "", "€", "", "£", "", " ", " ")
	thousandsDot  = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	thousandsComa = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

// ParsePrice normalizes a recognized price cell: currency symbols and
// thousands separators are stripped before parsing. Unparsable input
// degrades to 0.0 rather than failing the row.
func ParsePrice(raw string) float64 {
	token := strings.TrimSpace(currencyRunes.Replace(raw))
	token = strings.ReplaceAll(token, " ", "")
	token = normalizeNumericToken(token)
	parsed, err := strconv.ParseFloat(token, 64)
	if err != nil || parsed < 0 {
		return 0.0
	}
	return parsed
}

// ParseQuantity parses a recognized quantity cell, truncating decimals
// toward zero. Unparsable input degrades to 1.
func ParseQuantity(raw string) int {
	token := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	token = strings.ReplaceAll(token, " ", "")
	token = normalizeNumericToken(token)
	parsed, err := strconv.ParseFloat(token, 64)
	if err != nil || parsed < 0 {
		return 1
	}
	return int(parsed)
}

// normalizeNumericToken collapses "1.000" / "1,000" style thousands groups
// and converts a lone decimal comma to a dot.
func normalizeNumericToken(token string) string {
	if thousandsDot.MatchString(token) {
		return strings.ReplaceAll(token, ".", "")
	}
	if thousandsComa.MatchString(token) {
		return strings.ReplaceAll(token, ",", "")
	}
	if strings.Contains(token, ",") && !strings.Contains(token, ".") {
		return strings.ReplaceAll(token, ",", ".")
	}
	return strings.ReplaceAll(token, ",", "")
}
