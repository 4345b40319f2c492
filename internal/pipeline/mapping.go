package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"notescan/internal"
)

// fieldKeywords drives the default column mapping. Delivery notes in the
// field are mostly Spanish, English or Chinese; a header containing any
// keyword claims the field.
var fieldKeywords = map[internal.Field][]string{
	internal.FieldBarcode:   {"código", "codigo", "code", "barcode", "referencia", "条码"},
	internal.FieldName:      {"nombre", "name", "producto", "product", "artículo", "articulo", "产品", "商品"},
	internal.FieldUnitPrice: {"precio", "price", "cost", "价格", "单价"},
	internal.FieldQuantity:  {"cantidad", "quantity", "qty", "数量"},
}

// SuggestMapping proposes a default column mapping for the given headers.
// Fields are tested in FieldOrder; the first matching field wins per
// header, and the first header claiming a field keeps it. Headers matching
// nothing stay unmapped. The result is a starting point the operator can
// override before import.
func SuggestMapping(headers []string) internal.FieldMapping {
	mapping := internal.FieldMapping{}
	for idx, header := range headers {
		lower := strings.ToLower(strings.TrimSpace(header))
		if lower == "" {
			continue
		}
		for _, field := range internal.FieldOrder {
			if _, taken := mapping[field]; taken {
				continue
			}
			if containsAny(lower, fieldKeywords[field]) {
				mapping[field] = idx
				break
			}
		}
	}
	return mapping
}

func containsAny(header string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(header, kw) {
			return true
		}
	}
	return false
}

// ParseMappingOverrides parses operator overrides of the form
// "barcode=2,name=0". Overridden fields replace the suggested defaults;
// assigning -1 drops a field back to ignored.
func ParseMappingOverrides(defaults internal.FieldMapping, spec string) (internal.FieldMapping, error) {
	mapping := internal.FieldMapping{}
	for field, idx := range defaults {
		mapping[field] = idx
	}

	spec = strings.TrimSpace(spec)
	if spec == "" {
		return mapping, nil
	}

	for _, pair := range strings.Split(spec, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid mapping override: %q", pair)
		}

		field := internal.Field(strings.TrimSpace(parts[0]))
		if _, known := fieldKeywords[field]; !known {
			return nil, fmt.Errorf("unknown field in mapping override: %q", parts[0])
		}

		idx, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid column index in mapping override %q: %w", pair, err)
		}
		if idx < 0 {
			delete(mapping, field)
			continue
		}
		mapping[field] = idx
	}

	return mapping, nil
}

// FormatMapping renders a mapping for operator review, in FieldOrder.
func FormatMapping(mapping internal.FieldMapping) string {
	parts := make([]string, 0, len(internal.FieldOrder))
	for _, field := range internal.FieldOrder {
		if idx, ok := mapping[field]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", field, idx))
		} else {
			parts = append(parts, fmt.Sprintf("%s=ignored", field))
		}
	}
	return strings.Join(parts, " ")
}
