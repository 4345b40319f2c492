package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"notescan/internal"
)

// Recognizer is the outbound boundary to the vision service. Implemented
// by recognition.Client; tests substitute fakes.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// ProgressFunc observes batch progress: fired after each image, success or
// not, plus a final summary. Callers that drive an interactive surface
// consume these on their own goroutine; the batch itself is strictly
// sequential so current is monotonic.
type ProgressFunc func(current, total int, message string)

// ImageTable pairs a repaired table with the image it came from.
type ImageTable struct {
	Image string
	Table internal.ExtractedTable
}

// BatchResult is the outcome of one scan batch. Failures never abort the
// batch; NoData lists images whose response yielded no repairable table.
type BatchResult struct {
	Tables   []ImageTable
	NoData   []string
	Failures []*internal.RecognitionError
}

type ScanService struct {
	recognizer Recognizer
	progress   ProgressFunc
}

func NewScanService(recognizer Recognizer, progress ProgressFunc) *ScanService {
	return &ScanService{recognizer: recognizer, progress: progress}
}

// Run processes images one at a time, in order. One request is in flight at
// any moment to respect the service's rate limits and keep progress
// deterministic. A failed image degrades that image's contribution only.
func (s *ScanService) Run(ctx context.Context, imagePaths []string) BatchResult {
	result := BatchResult{}
	total := len(imagePaths)

	for i, imagePath := range imagePaths {
		current := i + 1
		name := filepath.Base(imagePath)
		s.report(current, total, fmt.Sprintf("processing image %d/%d: %s", current, total, name))

		raw, err := s.recognizer.Recognize(ctx, imagePath)
		if err != nil {
			recErr := &internal.RecognitionError{Image: imagePath, Err: err}
			result.Failures = append(result.Failures, recErr)
			s.report(current, total, fmt.Sprintf("image %d/%d failed: %v", current, total, err))
			continue
		}

		table := RepairTable(raw)
		if table == nil {
			result.NoData = append(result.NoData, imagePath)
			s.report(current, total, fmt.Sprintf("image %d/%d yielded no table", current, total))
			continue
		}

		result.Tables = append(result.Tables, ImageTable{Image: imagePath, Table: *table})
		s.report(current, total, fmt.Sprintf("image %d/%d done: %s", current, total, DescribeTable(table)))
	}

	s.report(total, total, fmt.Sprintf("batch complete: %d tables from %d images", len(result.Tables), total))
	return result
}

func (s *ScanService) report(current, total int, message string) {
	if s.progress != nil {
		s.progress(current, total, message)
	}
}
