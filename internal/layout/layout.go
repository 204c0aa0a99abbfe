// Package layout defines the on-disk shape of the data root shared by all
// pipeline stages.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout resolves the fixed paths under a data root.
type Layout struct {
	Root string
}

// New returns a Layout rooted at root.
func New(root string) Layout {
	return Layout{Root: root}
}

// Index returns the folder holding the per-source link listings.
func (l Layout) Index() string { return filepath.Join(l.Root, "index") }

// AllLinks returns the merged link table path.
func (l Layout) AllLinks() string { return filepath.Join(l.Root, "all_links.csv") }

// CrawlDir returns the raw-artifact folder for a content class
// ("html", "pdf", "others").
func (l Layout) CrawlDir(class string) string {
	return filepath.Join(l.Root, "crawl", class)
}

// OutDir returns the parsed-output folder for a content class
// ("from_html", "from_pdf", "from_others").
func (l Layout) OutDir(class string) string {
	return filepath.Join(l.Root, "out", class)
}

// Ledger returns the fetch ledger path.
func (l Layout) Ledger() string { return filepath.Join(l.Root, "output_data.csv") }

// ErrorCSV returns the terminal-failure CSV path.
func (l Layout) ErrorCSV() string { return filepath.Join(l.Root, "error", "error.csv") }

// NoMetadata returns the side list of documents with no link metadata.
func (l Layout) NoMetadata() string { return filepath.Join(l.Root, "no_metadata.csv") }

// AuditLog returns the JSONL audit log path.
func (l Layout) AuditLog() string { return filepath.Join(l.Root, "pipeline_detailed_log.jsonl") }

// Create makes every folder of the layout. Existing folders are left alone,
// so re-running never disturbs artifacts from a previous run.
func (l Layout) Create() error {
	dirs := []string{
		l.Index(),
		l.CrawlDir("html"),
		l.CrawlDir("pdf"),
		l.CrawlDir("others"),
		l.OutDir("from_html"),
		l.OutDir("from_pdf"),
		l.OutDir("from_others"),
		filepath.Dir(l.ErrorCSV()),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
