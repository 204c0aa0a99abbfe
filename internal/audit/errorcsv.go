package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonathan/corpus-indexer/internal/types"
)

// ErrorCSV collects terminal failures in a single append-only CSV. Each
// failure class writes a free-form section header followed by its rows, so
// the file reads as a report rather than a uniform table.
type ErrorCSV struct {
	mu   sync.Mutex
	path string
}

// NewErrorCSV returns a sink writing to path. The file is created lazily on
// the first append.
func NewErrorCSV(path string) *ErrorCSV {
	return &ErrorCSV{path: path}
}

// Path returns the location of the error CSV.
func (e *ErrorCSV) Path() string {
	return e.path
}

// Reset removes any error CSV left over from a previous run.
func (e *ErrorCSV) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", e.path, err)
	}
	return nil
}

// AppendFetchFailures writes the failed ledger rows under a section header.
// Rows with a content hash are ignored.
func (e *ErrorCSV) AppendFetchFailures(section string, records []types.FetchRecord) error {
	var failed []types.FetchRecord
	for _, r := range records {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		return nil
	}

	rows := [][]string{ledgerHeader()}
	for _, r := range failed {
		rows = append(rows, ledgerRow(r))
	}
	return e.appendSection(section, rows)
}

// AppendParseFailure records one document that could not be parsed after all
// retries, using the reason codes PDF_PARSING_FAILED / HTML_PARSING_FAILED.
func (e *ErrorCSV) AppendParseFailure(section, path, url, reason string) error {
	rows := [][]string{
		{"filepath", "URL", "error_type", "timestamp"},
		{path, orNA(url), reason, time.Now().Format(time.RFC3339)},
	}
	return e.appendSection(section, rows)
}

func (e *ErrorCSV) appendSection(section string, rows [][]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("failed to create error folder: %w", err)
	}
	f, err := os.OpenFile(e.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open error CSV %s: %w", e.path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintf(f, "%s\n", section); err != nil {
		return fmt.Errorf("failed to write section header: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write error rows: %w", err)
	}
	return nil
}

func ledgerHeader() []string {
	return []string{"Heading", "Subheading", "Title", "URL", "Filepath", "Content Type", "Content Hash", "Last Update", "Role"}
}

func ledgerRow(r types.FetchRecord) []string {
	return []string{
		r.Heading, r.Subheading, r.Title, r.URL, r.Filepath,
		r.ContentType, r.ContentHash, r.LastUpdate.Format(time.RFC3339), r.Role,
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
