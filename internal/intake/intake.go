// Package intake pulls delivery note photographs out of a mailbox and into
// the intake directory the watcher feeds on. Attachments are stored keyed
// by content hash, so a message fetched twice never queues the same scan
// twice.
package intake

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhillyerd/enmime"

	"notescan/internal"
	"notescan/internal/storage"
)

type Connector interface {
	FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error)
}

type FetchService struct {
	db        *storage.DB
	intakeDir string
	connector Connector
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, intakeDir string, connector Connector) *FetchService {
	return &FetchService{db: db, intakeDir: intakeDir, connector: connector}
}

// FetchAndStore downloads up to max messages and registers every image or
// PDF attachment as a pending scan.
func (s *FetchService) FetchAndStore(label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(label, max)
	if err != nil {
		return FetchResult{}, err
	}

	stored := 0
	for _, msg := range messages {
		count, err := s.storeAttachments(msg)
		if err != nil {
			return FetchResult{}, err
		}
		stored += count
	}

	return FetchResult{Fetched: len(messages), Stored: stored}, nil
}

func (s *FetchService) storeAttachments(msg internal.FetchedMailMessage) (int, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(msg.Raw))
	if err != nil {
		// A single unparseable message should not stop the fetch run.
		return 0, nil
	}

	if err := os.MkdirAll(s.intakeDir, 0o755); err != nil {
		return 0, err
	}

	stored := 0
	for _, att := range env.Attachments {
		ext := attachmentExt(att.FileName)
		if ext == "" {
			continue
		}

		hashBytes := sha256.Sum256(att.Content)
		hash := hex.EncodeToString(hashBytes[:])
		path := filepath.Join(s.intakeDir, hash+ext)

		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, att.Content, 0o644); err != nil {
				return stored, err
			}
		}

		if _, err := s.db.UpsertScan(path, hash); err != nil {
			return stored, err
		}
		stored++
	}

	return stored, nil
}

func attachmentExt(filename string) string {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(filename))) {
	case ".jpg", ".jpeg":
		return ".jpg"
	case ".png":
		return ".png"
	case ".webp":
		return ".webp"
	case ".pdf":
		return ".pdf"
	default:
		return ""
	}
}
