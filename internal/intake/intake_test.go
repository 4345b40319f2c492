package intake

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"notescan/internal"
	"notescan/internal/storage"
)

type fakeConnector struct {
	messages []internal.FetchedMailMessage
}

func (f *fakeConnector) FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error) {
	return f.messages, nil
}

func rawMessageWithAttachment(filename string) []byte {
	lines := []string{
		"From: proveedor@example.com",
		"To: almacen@example.com",
		"Subject: fotos albaran",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="frontier"`,
		"",
		"--frontier",
		"Content-Type: text/plain",
		"",
		"fotos adjuntas",
		"--frontier",
		`Content-Type: image/jpeg; name="` + filename + `"`,
		`Content-Disposition: attachment; filename="` + filename + `"`,
		"Content-Transfer-Encoding: base64",
		"",
		"/9j/2Q==",
		"--frontier--",
		"",
	}
	return []byte(strings.Join(lines, "\r\n"))
}

func TestFetchAndStoreRegistersAttachments(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "inventory.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	intakeDir := filepath.Join(tmp, "intake")
	conn := &fakeConnector{messages: []internal.FetchedMailMessage{
		{Provider: "imap", MessageID: "imap-1", Raw: rawMessageWithAttachment("nota1.jpg")},
	}}

	svc := NewFetchService(db, intakeDir, conn)
	result, err := svc.FetchAndStore("INBOX", 10)
	if err != nil {
		t.Fatal(err)
	}
	if result.Fetched != 1 || result.Stored != 1 {
		t.Fatalf("result = %+v", result)
	}

	entries, err := os.ReadDir(intakeDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".jpg") {
		t.Fatalf("intake entries = %v", entries)
	}

	scans, err := db.ListScansByStatus(internal.ScanFetched, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(scans) != 1 {
		t.Fatalf("scans = %+v", scans)
	}
}

func TestFetchAndStoreDedupesByContentHash(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "inventory.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	// Same photo mailed twice under different names.
	conn := &fakeConnector{messages: []internal.FetchedMailMessage{
		{Provider: "imap", MessageID: "imap-1", Raw: rawMessageWithAttachment("nota1.jpg")},
		{Provider: "imap", MessageID: "imap-2", Raw: rawMessageWithAttachment("nota1-copia.jpg")},
	}}

	svc := NewFetchService(db, filepath.Join(tmp, "intake"), conn)
	if _, err := svc.FetchAndStore("INBOX", 10); err != nil {
		t.Fatal(err)
	}

	scans, err := db.ListScansByStatus(internal.ScanFetched, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(scans) != 1 {
		t.Fatalf("scans = %d, want 1 after dedupe", len(scans))
	}
}

func TestAttachmentExtFiltersUnknownTypes(t *testing.T) {
	if got := attachmentExt("factura.docx"); got != "" {
		t.Fatalf("docx ext = %q", got)
	}
	if got := attachmentExt("NOTA.JPEG"); got != ".jpg" {
		t.Fatalf("jpeg ext = %q", got)
	}
	if got := attachmentExt("packing.pdf"); got != ".pdf" {
		t.Fatalf("pdf ext = %q", got)
	}
}
