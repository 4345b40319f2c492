package pipeline

import (
	"reflect"
	"testing"
)

func TestRepairTableStrict(t *testing.T) {
	raw := `{"headers": ["A", "B"], "rows": [["1", "2"]]}`
	table := RepairTable(raw)
	if table == nil {
		t.Fatal("nil table")
	}
	if !reflect.DeepEqual(table.Headers, []string{"A", "B"}) {
		t.Fatalf("headers = %v", table.Headers)
	}
	if !reflect.DeepEqual(table.Rows, [][]string{{"1", "2"}}) {
		t.Fatalf("rows = %v", table.Rows)
	}
}

func TestRepairTableStripsFencingAndTrailingCommas(t *testing.T) {
	raw := "Here is the extracted table:\n```json\n" +
		`{"headers": ["Código", "Nombre",], "rows": [["123", "Leche",],]}` +
		"\n```\nLet me know if you need anything else."
	table := RepairTable(raw)
	if table == nil {
		t.Fatal("nil table")
	}
	if !reflect.DeepEqual(table.Headers, []string{"Código", "Nombre"}) {
		t.Fatalf("headers = %v", table.Headers)
	}
	if !reflect.DeepEqual(table.Rows, [][]string{{"123", "Leche"}}) {
		t.Fatalf("rows = %v", table.Rows)
	}
}

func TestRepairTableCoercesBareNumbers(t *testing.T) {
	raw := `{"headers": ["Producto", "Precio"], "rows": [["Pan", 1.5], ["Agua", 2]]}`
	table := RepairTable(raw)
	if table == nil {
		t.Fatal("nil table")
	}
	if table.Rows[0][1] != "1.5" || table.Rows[1][1] != "2" {
		t.Fatalf("rows = %v", table.Rows)
	}
}

func TestRepairTableSalvage(t *testing.T) {
	// Unbalanced brace inside a cell breaks strict parsing; the quoted
	// tokens are still recoverable.
	raw := `The table is as follows: {"headers": ["A", "B"], "rows": [["1", "2"{]]} done`
	table := RepairTable(raw)
	if table == nil {
		t.Fatal("nil table")
	}
	if !reflect.DeepEqual(table.Headers, []string{"A", "B"}) {
		t.Fatalf("headers = %v", table.Headers)
	}
	if !reflect.DeepEqual(table.Rows, [][]string{{"1", "2"}}) {
		t.Fatalf("rows = %v", table.Rows)
	}
}

func TestRepairTableHTMLFallback(t *testing.T) {
	raw := `I could not produce JSON, here is the table instead:
<table>
<tr><th>Nombre</th><th>Cantidad</th></tr>
<tr><td>Leche</td><td>6</td></tr>
<tr><td>Pan</td><td>2</td></tr>
</table>`
	table := RepairTable(raw)
	if table == nil {
		t.Fatal("nil table")
	}
	if !reflect.DeepEqual(table.Headers, []string{"Nombre", "Cantidad"}) {
		t.Fatalf("headers = %v", table.Headers)
	}
	if len(table.Rows) != 2 || table.Rows[1][0] != "Pan" {
		t.Fatalf("rows = %v", table.Rows)
	}
}

func TestRepairTableTotality(t *testing.T) {
	for _, raw := range []string{"", "no braces here at all", "prose with [brackets] only", "{", "}{"} {
		if table := RepairTable(raw); table != nil {
			t.Fatalf("RepairTable(%q) = %+v, want nil", raw, table)
		}
	}
}

func TestRepairTableRaggedRowsTolerated(t *testing.T) {
	raw := `{"headers": ["A", "B", "C"], "rows": [["1"], ["1", "2", "3", "4"]]}`
	table := RepairTable(raw)
	if table == nil {
		t.Fatal("nil table")
	}
	if len(table.Rows) != 2 || len(table.Rows[0]) != 1 || len(table.Rows[1]) != 4 {
		t.Fatalf("rows = %v", table.Rows)
	}
}
