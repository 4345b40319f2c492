package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"notescan/internal"
)

type fakeRecognizer struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (f *fakeRecognizer) Recognize(_ context.Context, imagePath string) (string, error) {
	f.calls = append(f.calls, imagePath)
	if err, ok := f.errs[imagePath]; ok {
		return "", err
	}
	return f.responses[imagePath], nil
}

func TestScanBatchPartialFailure(t *testing.T) {
	rec := &fakeRecognizer{
		responses: map[string]string{
			"one.jpg": `{"headers": ["Nombre", "Cantidad"], "rows": [["Leche", "6"], ["Pan", "2"]]}`,
		},
		errs: map[string]error{
			"two.jpg": errors.New("request timed out"),
		},
	}

	var events []string
	var lastCurrent, lastTotal int
	svc := NewScanService(rec, func(current, total int, message string) {
		lastCurrent, lastTotal = current, total
		events = append(events, message)
	})

	result := svc.Run(context.Background(), []string{"one.jpg", "two.jpg"})

	if len(result.Tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(result.Tables))
	}
	if len(result.Tables[0].Table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(result.Tables[0].Table.Rows))
	}
	if len(result.Failures) != 1 || result.Failures[0].Image != "two.jpg" {
		t.Fatalf("failures = %+v", result.Failures)
	}
	if len(rec.calls) != 2 {
		t.Fatalf("recognizer calls = %v, want both images despite failure", rec.calls)
	}
	if lastCurrent != 2 || lastTotal != 2 {
		t.Fatalf("final progress = %d/%d", lastCurrent, lastTotal)
	}
	if len(events) < 3 {
		t.Fatalf("expected per-image plus summary progress, got %v", events)
	}
}

func TestScanBatchNoDataRecorded(t *testing.T) {
	rec := &fakeRecognizer{
		responses: map[string]string{"blur.jpg": "I cannot read this image, sorry."},
	}
	svc := NewScanService(rec, nil)

	result := svc.Run(context.Background(), []string{"blur.jpg"})
	if len(result.Tables) != 0 || len(result.Failures) != 0 {
		t.Fatalf("result = %+v", result)
	}
	if len(result.NoData) != 1 || result.NoData[0] != "blur.jpg" {
		t.Fatalf("noData = %v", result.NoData)
	}
}

// End-to-end: scan batch -> suggested mapping -> import -> reconciled
// counter -> export.
func TestScanImportExportFlow(t *testing.T) {
	db := openTestDB(t)
	noteID, err := db.CreateNote("entrega jueves")
	if err != nil {
		t.Fatal(err)
	}

	rec := &fakeRecognizer{
		responses: map[string]string{
			"note1.jpg": `{"headers": ["Código", "Nombre", "Precio", "Cantidad"], "rows": [["8410000000017", "Leche entera", "1.10", "6"], ["", "Pan de molde", "0.95", "2"]]}`,
		},
		errs: map[string]error{
			"note2.jpg": errors.New("request timed out"),
		},
	}

	result := NewScanService(rec, nil).Run(context.Background(), []string{"note1.jpg", "note2.jpg"})
	if len(result.Tables) != 1 || len(result.Failures) != 1 {
		t.Fatalf("batch = %+v", result)
	}

	importer := NewImporter(db)
	total := 0
	for _, entry := range result.Tables {
		mapping := SuggestMapping(entry.Table.Headers)
		count, err := importer.ImportRows(noteID, entry.Table.Rows, mapping)
		if err != nil {
			t.Fatal(err)
		}
		total += count
	}
	if total != 2 {
		t.Fatalf("imported = %d, want 2", total)
	}

	note, err := db.MustNote(noteID)
	if err != nil {
		t.Fatal(err)
	}
	if note.TotalItems != 2 {
		t.Fatalf("totalItems = %d, want 2", note.TotalItems)
	}

	items, err := db.ListItems(noteID)
	if err != nil {
		t.Fatal(err)
	}
	for _, item := range items {
		if item.Status != internal.StatusUnchecked {
			t.Fatalf("imported item status = %s, want unchecked", item.Status)
		}
	}

	tmp := t.TempDir()
	xlsxPath := filepath.Join(tmp, "note.xlsx")
	if err := ExportItemsToXLSX(items, xlsxPath); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(xlsxPath); err != nil {
		t.Fatal(err)
	}

	csvPath := filepath.Join(tmp, "note.csv")
	if err := ExportItemsToCSV(items, csvPath); err != nil {
		t.Fatal(err)
	}
	blob, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(blob[:len("barcode")]) != "barcode" {
		t.Fatalf("csv header missing: %s", blob)
	}
}
