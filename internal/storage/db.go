package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"notescan/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS delivery_notes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  totalItems INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  noteId INTEGER NOT NULL,
  barcode TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL,
  unitPrice REAL NOT NULL DEFAULT 0,
  quantity INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'unchecked',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(noteId) REFERENCES delivery_notes(id)
);
CREATE INDEX IF NOT EXISTS idx_items_noteId ON items(noteId);
CREATE INDEX IF NOT EXISTS idx_items_barcode ON items(noteId, barcode);

CREATE TABLE IF NOT EXISTS scans (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  path TEXT NOT NULL,
  hash TEXT NOT NULL UNIQUE,
  noteId INTEGER,
  status TEXT NOT NULL DEFAULT 'fetched',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(noteId) REFERENCES delivery_notes(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) CreateNote(name string) (int64, error) {
	result, err := d.conn.Exec(`INSERT INTO delivery_notes (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) GetNote(id int64) (*internal.DeliveryNote, error) {
	var note internal.DeliveryNote
	err := d.conn.QueryRow(`
SELECT id, name, createdAt, totalItems FROM delivery_notes WHERE id = ?
`, id).Scan(&note.ID, &note.Name, &note.CreatedAt, &note.TotalItems)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (d *DB) MustNote(id int64) (internal.DeliveryNote, error) {
	note, err := d.GetNote(id)
	if err != nil {
		return internal.DeliveryNote{}, err
	}
	if note == nil {
		return internal.DeliveryNote{}, fmt.Errorf("delivery note not found: id=%d", id)
	}
	return *note, nil
}

func (d *DB) ListNotes() ([]internal.DeliveryNote, error) {
	rows, err := d.conn.Query(`
SELECT id, name, createdAt, totalItems FROM delivery_notes ORDER BY createdAt DESC, id DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DeliveryNote
	for rows.Next() {
		var note internal.DeliveryNote
		if err := rows.Scan(&note.ID, &note.Name, &note.CreatedAt, &note.TotalItems); err != nil {
			return nil, err
		}
		out = append(out, note)
	}
	return out, rows.Err()
}

// DeleteNote removes a note and everything hanging off it: items and scan
// bookkeeping rows.
func (d *DB) DeleteNote(id int64) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM items WHERE noteId = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE scans SET noteId = NULL, updatedAt = CURRENT_TIMESTAMP WHERE noteId = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM delivery_notes WHERE id = ?`, id); err != nil {
		return err
	}

	return tx.Commit()
}

func (d *DB) AddItem(noteID int64, barcode, name string, unitPrice float64, quantity int) (int64, error) {
	result, err := d.conn.Exec(`
INSERT INTO items (noteId, barcode, name, unitPrice, quantity, status)
VALUES (?, ?, ?, ?, ?, ?)
`, noteID, barcode, name, unitPrice, quantity, string(internal.StatusUnchecked))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) ListItems(noteID int64) ([]internal.Item, error) {
	rows, err := d.conn.Query(`
SELECT id, noteId, barcode, name, unitPrice, quantity, status, createdAt
FROM items WHERE noteId = ? ORDER BY id ASC
`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Item
	for rows.Next() {
		var item internal.Item
		var status string
		if err := rows.Scan(&item.ID, &item.NoteID, &item.Barcode, &item.Name, &item.UnitPrice, &item.Quantity, &status, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.Status = internal.ItemStatus(status)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (d *DB) FindItemByBarcode(noteID int64, barcode string) (*internal.Item, error) {
	var item internal.Item
	var status string
	err := d.conn.QueryRow(`
SELECT id, noteId, barcode, name, unitPrice, quantity, status, createdAt
FROM items WHERE noteId = ? AND barcode = ? LIMIT 1
`, noteID, barcode).Scan(&item.ID, &item.NoteID, &item.Barcode, &item.Name, &item.UnitPrice, &item.Quantity, &status, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item.Status = internal.ItemStatus(status)
	return &item, nil
}

func (d *DB) UpdateItemStatus(itemID int64, status internal.ItemStatus) error {
	_, err := d.conn.Exec(`UPDATE items SET status = ? WHERE id = ?`, string(status), itemID)
	return err
}

func (d *DB) UpdateItemBarcode(itemID int64, barcode string) error {
	_, err := d.conn.Exec(`UPDATE items SET barcode = ? WHERE id = ?`, barcode, itemID)
	return err
}

// RecountNote rewrites totalItems from a live COUNT over the item relation.
// The counter is derived, never incremented, so the operation is idempotent
// and safe after partial failures.
func (d *DB) RecountNote(noteID int64) error {
	_, err := d.conn.Exec(`
UPDATE delivery_notes
SET totalItems = (SELECT COUNT(*) FROM items WHERE noteId = ?)
WHERE id = ?
`, noteID, noteID)
	return err
}

func (d *DB) RecountAllNotes() (int, error) {
	result, err := d.conn.Exec(`
UPDATE delivery_notes
SET totalItems = (SELECT COUNT(*) FROM items WHERE items.noteId = delivery_notes.id)
`)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

func (d *DB) UpsertScan(path, hash string) (internal.ScanRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO scans (path, hash) VALUES (?, ?)
ON CONFLICT(hash) DO UPDATE SET path = excluded.path, updatedAt = CURRENT_TIMESTAMP
`, path, hash)
	if err != nil {
		return internal.ScanRow{}, err
	}

	row, err := d.GetScanByHash(hash)
	if err != nil {
		return internal.ScanRow{}, err
	}
	if row == nil {
		return internal.ScanRow{}, errors.New("failed to upsert scan")
	}
	return *row, nil
}

func (d *DB) GetScanByHash(hash string) (*internal.ScanRow, error) {
	var row internal.ScanRow
	var status string
	err := d.conn.QueryRow(`
SELECT id, path, hash, noteId, status, createdAt, updatedAt FROM scans WHERE hash = ?
`, hash).Scan(&row.ID, &row.Path, &row.Hash, &row.NoteID, &status, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.Status = internal.ScanStatus(status)
	return &row, nil
}

func (d *DB) ListScansByStatus(status internal.ScanStatus, limit int) ([]internal.ScanRow, error) {
	rows, err := d.conn.Query(`
SELECT id, path, hash, noteId, status, createdAt, updatedAt
FROM scans WHERE status = ? ORDER BY createdAt ASC LIMIT ?
`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ScanRow
	for rows.Next() {
		var row internal.ScanRow
		var st string
		if err := rows.Scan(&row.ID, &row.Path, &row.Hash, &row.NoteID, &st, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		row.Status = internal.ScanStatus(st)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateScanStatus(scanID int64, noteID *int64, status internal.ScanStatus) error {
	_, err := d.conn.Exec(`
UPDATE scans SET noteId = ?, status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?
`, noteID, string(status), scanID)
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
