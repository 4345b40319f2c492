package internal

import "fmt"

// ExtractedTable is one table recovered from a single recognition response.
// Rows may be ragged; cells beyond a row's length read as empty at mapping
// time.
type ExtractedTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type Field string

const (
	FieldBarcode   Field = "barcode"
	FieldName      Field = "name"
	FieldUnitPrice Field = "unit_price"
	FieldQuantity  Field = "quantity"
)

// FieldOrder is the fixed priority in which headers are tested against the
// keyword sets; a header matching several fields resolves to the first.
var FieldOrder = []Field{FieldBarcode, FieldName, FieldUnitPrice, FieldQuantity}

// FieldMapping maps canonical fields to column indexes of one
// ExtractedTable. A field that is absent is ignored.
type FieldMapping map[Field]int

type ItemStatus string

const (
	StatusUnchecked ItemStatus = "unchecked"
	StatusCorrect   ItemStatus = "correct"
	StatusIncorrect ItemStatus = "incorrect"
)

func ParseItemStatus(value string) (ItemStatus, bool) {
	switch ItemStatus(value) {
	case StatusUnchecked, StatusCorrect, StatusIncorrect:
		return ItemStatus(value), true
	default:
		return "", false
	}
}

type DeliveryNote struct {
	ID         int64
	Name       string
	CreatedAt  string
	TotalItems int
}

type Item struct {
	ID        int64
	NoteID    int64
	Barcode   string
	Name      string
	UnitPrice float64
	Quantity  int
	Status    ItemStatus
	CreatedAt string
}

type ScanStatus string

const (
	ScanFetched  ScanStatus = "fetched"
	ScanImported ScanStatus = "imported"
	ScanNoData   ScanStatus = "no_data"
	ScanFailed   ScanStatus = "failed"
)

// ScanRow tracks one intake file across the watcher lifecycle, keyed by
// content hash so a re-discovered file is never processed twice.
type ScanRow struct {
	ID        int64
	Path      string
	Hash      string
	NoteID    *int64
	Status    ScanStatus
	CreatedAt string
	UpdatedAt string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	ReceivedAt string
	Raw        []byte
}

// RecognitionError marks a per-image transport or service failure. The
// batch records it and moves on; it never aborts sibling images.
type RecognitionError struct {
	Image string
	Err   error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition failed for %s: %v", e.Image, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }
