// Package watcher turns the intake directory into an unattended pipeline:
// new note photos are scanned, auto-mapped, imported into a fresh delivery
// note and optionally exported, on a fixed polling interval.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notescan/internal"
	"notescan/internal/config"
	"notescan/internal/pipeline"
	"notescan/internal/recognition"
	"notescan/internal/storage"
)

type Service struct {
	db         *storage.DB
	cfg        config.Config
	recognizer pipeline.Recognizer
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg, recognizer: recognition.NewClient(cfg)}
}

// NewServiceWithRecognizer exists for tests and alternative backends.
func NewServiceWithRecognizer(db *storage.DB, cfg config.Config, recognizer pipeline.Recognizer) *Service {
	return &Service{db: db, cfg: cfg, recognizer: recognizer}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.RunCycle(ctx); err != nil {
			fmt.Printf("watcher cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.WatchIntervalSec) * time.Second):
		}
	}
}

// RunCycle discovers unseen intake files, groups them into one delivery
// note and runs the scan/import pipeline over them. Per-file failures
// degrade that file only; the cycle continues.
func (s *Service) RunCycle(ctx context.Context) error {
	if err := s.discoverIntakeFiles(); err != nil {
		return err
	}

	pending, err := s.db.ListScansByStatus(internal.ScanFetched, s.cfg.WatchBatchMax)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	noteID, err := s.db.CreateNote("intake " + time.Now().Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}

	importer := pipeline.NewImporter(s.db)
	scanner := pipeline.NewScanService(s.recognizer, func(current, total int, message string) {
		fmt.Printf("watcher: %s\n", message)
	})

	imported := 0
	for _, scan := range pending {
		count, status := s.processScan(ctx, scanner, importer, noteID, scan)
		imported += count
		if err := s.db.UpdateScanStatus(scan.ID, &noteID, status); err != nil {
			return err
		}
	}

	if imported == 0 {
		// Nothing committed; drop the empty note rather than leave clutter.
		if err := s.db.DeleteNote(noteID); err != nil {
			return err
		}
		fmt.Printf("watcher cycle done: %d files, no data\n", len(pending))
		return nil
	}

	if s.cfg.WatchAutoExport {
		if err := s.exportNote(noteID); err != nil {
			return err
		}
	}

	fmt.Printf("watcher cycle done: files=%d items=%d noteId=%d\n", len(pending), imported, noteID)
	return nil
}

func (s *Service) processScan(ctx context.Context, scanner *pipeline.ScanService, importer *pipeline.Importer, noteID int64, scan internal.ScanRow) (int, internal.ScanStatus) {
	var table *internal.ExtractedTable

	if strings.EqualFold(filepath.Ext(scan.Path), ".pdf") {
		blob, err := os.ReadFile(scan.Path)
		if err != nil {
			fmt.Printf("watcher: read %s: %v\n", scan.Path, err)
			return 0, internal.ScanFailed
		}
		table, err = pipeline.ExtractTableFromPDF(blob)
		if err != nil {
			fmt.Printf("watcher: pdf %s: %v\n", scan.Path, err)
			return 0, internal.ScanNoData
		}
	} else {
		result := scanner.Run(ctx, []string{scan.Path})
		if len(result.Failures) > 0 {
			return 0, internal.ScanFailed
		}
		if len(result.Tables) == 0 {
			return 0, internal.ScanNoData
		}
		table = &result.Tables[0].Table
	}

	mapping := pipeline.SuggestMapping(table.Headers)
	count, err := importer.ImportRows(noteID, table.Rows, mapping)
	if err != nil {
		fmt.Printf("watcher: import %s: %v\n", scan.Path, err)
		return count, internal.ScanFailed
	}
	if count == 0 {
		return 0, internal.ScanNoData
	}
	return count, internal.ScanImported
}

func (s *Service) exportNote(noteID int64) error {
	items, err := s.db.ListItems(noteID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	outputPath := filepath.Join(s.cfg.OutputDir, "watch", fmt.Sprintf("note_%d.xlsx", noteID))
	if err := pipeline.ExportItemsToXLSX(items, outputPath); err != nil {
		return err
	}
	return s.db.SetMetadata(fmt.Sprintf("watch.note.%d.exported", noteID), time.Now().UTC().Format(time.RFC3339))
}

// discoverIntakeFiles registers any new file in the intake directory as a
// pending scan. Content hashing keeps re-listed or renamed files from
// queueing twice.
func (s *Service) discoverIntakeFiles() error {
	entries, err := os.ReadDir(s.cfg.IntakeDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !isIntakeFile(entry.Name()) {
			continue
		}
		path := filepath.Join(s.cfg.IntakeDir, entry.Name())
		blob, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("watcher: read %s: %v\n", path, err)
			continue
		}
		hashBytes := sha256.Sum256(blob)
		if _, err := s.db.UpsertScan(path, hex.EncodeToString(hashBytes[:])); err != nil {
			return err
		}
	}
	return nil
}

func isIntakeFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".pdf":
		return true
	default:
		return false
	}
}
