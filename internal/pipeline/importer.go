package pipeline

import (
	"fmt"
	"strings"

	"notescan/internal"
	"notescan/internal/storage"
	"notescan/internal/util"
)

// unknownProductName is the placeholder the recognition service tends to
// emit for unreadable name cells; rows carrying it are rejected outright.
const unknownProductName = "未知商品"

// legacyFallbackColumns preserves the historical column order assumed for
// tables whose headers matched nothing: barcode, name, price, quantity.
// Tables laid out differently will misassign under this fallback; operators
// resolve that with an explicit mapping override.
var legacyFallbackColumns = map[internal.Field]int{
	internal.FieldBarcode:   0,
	internal.FieldName:      1,
	internal.FieldUnitPrice: 2,
	internal.FieldQuantity:  3,
}

type Importer struct {
	db *storage.DB
}

func NewImporter(db *storage.DB) *Importer {
	return &Importer{db: db}
}

// ImportRows applies a finalized mapping to extracted rows, normalizes the
// numeric fields, persists accepted rows as unchecked items and recounts
// the parent note. Malformed price/quantity cells degrade to defaults; only
// a missing name rejects a row. Store failures propagate: a lost commit
// must never be silent.
func (im *Importer) ImportRows(noteID int64, rows [][]string, mapping internal.FieldMapping) (int, error) {
	if _, err := im.db.MustNote(noteID); err != nil {
		return 0, err
	}

	imported := 0
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}

		name := strings.TrimSpace(resolveCell(row, mapping, internal.FieldName))
		if name == "" || name == unknownProductName {
			continue
		}

		barcode := strings.TrimSpace(resolveCell(row, mapping, internal.FieldBarcode))
		price := util.ParsePrice(resolveCell(row, mapping, internal.FieldUnitPrice))
		quantity := util.ParseQuantity(resolveCell(row, mapping, internal.FieldQuantity))

		if _, err := im.db.AddItem(noteID, barcode, name, price, quantity); err != nil {
			return imported, fmt.Errorf("persist item %q: %w", name, err)
		}
		imported++
	}

	if err := im.db.RecountNote(noteID); err != nil {
		return imported, fmt.Errorf("recount note %d: %w", noteID, err)
	}
	return imported, nil
}

// ReconcileCounts recomputes one note's cached item counter from the live
// item relation.
func (im *Importer) ReconcileCounts(noteID int64) (int, error) {
	if _, err := im.db.MustNote(noteID); err != nil {
		return 0, err
	}
	if err := im.db.RecountNote(noteID); err != nil {
		return 0, err
	}
	note, err := im.db.MustNote(noteID)
	if err != nil {
		return 0, err
	}
	return note.TotalItems, nil
}

// ReconcileAllCounts repairs every note's counter; counters drift after
// direct deletions and must be repairable without replaying imports.
func (im *Importer) ReconcileAllCounts() (int, error) {
	return im.db.RecountAllNotes()
}

// resolveCell resolves a field's source column: the mapped index when the
// operator (or heuristic) assigned one, else the legacy fallback index.
// Either way an index beyond the row's bounds reads as empty.
func resolveCell(row []string, mapping internal.FieldMapping, field internal.Field) string {
	idx, mapped := mapping[field]
	if !mapped {
		idx = legacyFallbackColumns[field]
	}
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
