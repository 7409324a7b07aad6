// Package report persists scan findings and exports scan results.
package report

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/xsspy/xsspy/internal/config"
)

// FindingMarker opens every finding block in the text report
const FindingMarker = "--- VULNERABILITY FOUND ---"

const timestampLayout = "2006-01-02 15:04:05"

// FileSink is the append-only text report. Appends are serialized so a
// concurrent scan can share one sink.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewFileSink truncates or creates path and writes the scan header
func NewFileSink(path, targetURL, scanID string, started time.Time) (*FileSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	header := fmt.Sprintf("Scan initiated for %s at %s\n", targetURL, started.Format(timestampLayout))
	if scanID != "" {
		header += fmt.Sprintf("Scan ID: %s\n", scanID)
	}
	header += "\n"

	if _, err := file.WriteString(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}

	return &FileSink{file: file, path: path}, nil
}

// Path returns the report location
func (s *FileSink) Path() string {
	return s.path
}

// Append writes one finding block and flushes it to disk, so an
// interrupted scan keeps every finding recorded so far.
func (s *FileSink) Append(finding config.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("report %s is closed", s.path)
	}

	if _, err := s.file.WriteString(FormatFinding(finding)); err != nil {
		return fmt.Errorf("failed to append finding: %w", err)
	}
	return s.file.Sync()
}

// Close releases the report file
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// FormatFinding renders a finding as a report block
func FormatFinding(f config.Finding) string {
	return fmt.Sprintf("%s\n  [+] URL:      %s\n  [+] Param:    %s\n  [+] Payload:  %s\n  [+] Insight:  %s\n\n",
		FindingMarker, f.URL, f.Parameter, f.Payload, f.Insight)
}
