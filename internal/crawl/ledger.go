package crawl

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jonathan/corpus-indexer/internal/types"
)

var ledgerColumns = []string{
	"Heading", "Subheading", "Title", "URL", "Filepath",
	"Content Type", "Content Hash", "Last Update", "Role",
}

// MergeLedger appends records to the ledger at path, deduplicating against
// prior runs on every column except Last Update, and rewrites the file.
func MergeLedger(path string, records []types.FetchRecord) error {
	existing, err := ReadLedger(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	seen := make(map[string]bool, len(existing))
	merged := make([]types.FetchRecord, 0, len(existing)+len(records))
	for _, r := range append(existing, records...) {
		key := dedupKey(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, r)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create ledger %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	rows := [][]string{ledgerColumns}
	for _, r := range merged {
		rows = append(rows, []string{
			r.Heading, r.Subheading, r.Title, r.URL, r.Filepath,
			r.ContentType, r.ContentHash, r.LastUpdate.Format(time.RFC3339), r.Role,
		})
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write ledger %s: %w", path, err)
	}
	return nil
}

// ReadLedger loads the fetch ledger. A missing file returns the underlying
// os.IsNotExist error so callers can treat it as empty.
func ReadLedger(path string) ([]types.FetchRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(ledgerColumns)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	records := make([]types.FetchRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		ts, _ := time.Parse(time.RFC3339, row[7])
		records = append(records, types.FetchRecord{
			Heading:     row[0],
			Subheading:  row[1],
			Title:       row[2],
			URL:         row[3],
			Filepath:    row[4],
			ContentType: row[5],
			ContentHash: row[6],
			LastUpdate:  ts,
			Role:        row[8],
		})
	}
	return records, nil
}

// dedupKey joins every column except Last Update.
func dedupKey(r types.FetchRecord) string {
	return strings.Join([]string{
		r.Heading, r.Subheading, r.Title, r.URL, r.Filepath,
		r.ContentType, r.ContentHash, r.Role,
	}, "\x1f")
}
