package pipeline

import (
	"testing"

	"notescan/internal"
)

func TestSuggestMappingSpanishHeaders(t *testing.T) {
	mapping := SuggestMapping([]string{"Código", "Nombre", "Precio", "Cantidad", "Observaciones"})

	want := map[internal.Field]int{
		internal.FieldBarcode:   0,
		internal.FieldName:      1,
		internal.FieldUnitPrice: 2,
		internal.FieldQuantity:  3,
	}
	for field, idx := range want {
		if got, ok := mapping[field]; !ok || got != idx {
			t.Fatalf("%s mapped to %d (ok=%v), want %d", field, got, ok, idx)
		}
	}
	if len(mapping) != 4 {
		t.Fatalf("unexpected extra mappings: %v", mapping)
	}
}

func TestSuggestMappingEnglishAndChinese(t *testing.T) {
	mapping := SuggestMapping([]string{"商品", "数量", "Barcode", "Price"})
	if mapping[internal.FieldName] != 0 {
		t.Fatalf("name = %d", mapping[internal.FieldName])
	}
	if mapping[internal.FieldQuantity] != 1 {
		t.Fatalf("quantity = %d", mapping[internal.FieldQuantity])
	}
	if mapping[internal.FieldBarcode] != 2 {
		t.Fatalf("barcode = %d", mapping[internal.FieldBarcode])
	}
	if mapping[internal.FieldUnitPrice] != 3 {
		t.Fatalf("unit_price = %d", mapping[internal.FieldUnitPrice])
	}
}

func TestSuggestMappingFieldOrderPriority(t *testing.T) {
	// "product code" contains keywords of both barcode and name; barcode
	// comes first in the fixed field order.
	mapping := SuggestMapping([]string{"Product Code"})
	if idx, ok := mapping[internal.FieldBarcode]; !ok || idx != 0 {
		t.Fatalf("barcode = %d (ok=%v)", idx, ok)
	}
	if _, ok := mapping[internal.FieldName]; ok {
		t.Fatal("name should be unmapped")
	}
}

func TestSuggestMappingUnrecognizedHeaderIgnored(t *testing.T) {
	mapping := SuggestMapping([]string{"Lote", "Caducidad"})
	if len(mapping) != 0 {
		t.Fatalf("mapping = %v, want empty", mapping)
	}
}

func TestParseMappingOverrides(t *testing.T) {
	defaults := internal.FieldMapping{internal.FieldName: 1, internal.FieldQuantity: 3}

	mapping, err := ParseMappingOverrides(defaults, "name=0, barcode=2, quantity=-1")
	if err != nil {
		t.Fatal(err)
	}
	if mapping[internal.FieldName] != 0 {
		t.Fatalf("name = %d, want override 0", mapping[internal.FieldName])
	}
	if mapping[internal.FieldBarcode] != 2 {
		t.Fatalf("barcode = %d", mapping[internal.FieldBarcode])
	}
	if _, ok := mapping[internal.FieldQuantity]; ok {
		t.Fatal("quantity should have been dropped to ignored")
	}

	if _, err := ParseMappingOverrides(defaults, "flavor=1"); err == nil {
		t.Fatal("expected error for unknown field")
	}
	if _, err := ParseMappingOverrides(defaults, "name"); err == nil {
		t.Fatal("expected error for malformed pair")
	}
}
