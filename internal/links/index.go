package links

import (
	"context"
	"encoding/csv"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jonathan/corpus-indexer/internal/layout"
	"github.com/jonathan/corpus-indexer/internal/types"
)

// Missing is the placeholder written for blank listing cells.
const Missing = "Missing"

// legacyDomains maps retired hostnames to their canonical replacements.
var legacyDomains = map[string]string{
	"student-services.catalog.prod.coursedog.com": "studentservices.byupathway.edu",
}

// DefaultSources returns the production source listings.
func DefaultSources() []Source {
	return []Source{
		{
			Name: "acm",
			URL:  "https://missionaries.prod.byu-pathway.psdops.com/ACC-site-index",
			Role: "ACM",
			Kind: KindSelectorTable,
			Selectors: Selectors{
				Container: "div.WordSection1",
				Header:    `span[style="font-size:18.0pt"]`,
				SubHeader: "b > i",
				Link:      "a",
				Text:      "a > span",
			},
		},
		{
			Name: "missionary",
			URL:  "https://missionaries.prod.byu-pathway.psdops.com/missionary-services-site-index",
			Role: "missionary",
			Kind: KindSelectorTable,
			Selectors: Selectors{
				Container: "div.WordSection1",
				Header:    "h1",
				SubHeader: "h2",
				Link:      "a",
				Text:      "a > span",
			},
			SkipRows: 2,
		},
		{
			Name: "help",
			URL:  "https://help.byupathway.edu/knowledgebase/",
			Role: "missionary",
			Kind: KindHelpAPI,
		},
		{
			Name: "student_services",
			URL:  "https://studentservices.byupathway.edu/",
			Role: "missionary",
			Kind: KindServicesNav,
		},
	}
}

// NormalizeURL is the identity key for deduplication: legacy domains are
// rewritten to their canonical hostname and trailing fragments stripped.
func NormalizeURL(raw string) string {
	for legacy, canonical := range legacyDomains {
		raw = strings.ReplaceAll(raw, legacy, canonical)
	}
	if idx := strings.Index(raw, "#"); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}

// Filename derives the stable artifact filename for a normalized URL: the
// CRC-32 checksum rendered as lowercase hex. Same URL, same filename, on
// every run — change detection depends on this.
func Filename(url string) string {
	return fmt.Sprintf("%x", crc32.ChecksumIEEE([]byte(url)))
}

// BuildIndex collects every source listing, writes the per-source CSVs,
// merges the rows into the deduplicated link table, and writes
// all_links.csv. An unreachable source contributes zero rows and is logged,
// never fatal. Returns the number of link entries.
func BuildIndex(ctx context.Context, lay layout.Layout, sources []Source) (int, error) {
	if err := lay.Create(); err != nil {
		return 0, err
	}

	var all []Row
	for _, src := range sources {
		rows, err := Collect(ctx, src)
		if err != nil {
			log.Warn().Err(err).Str("source", src.Name).Msg("source listing unreachable, contributing zero rows")
			continue
		}
		log.Info().Str("source", src.Name).Int("rows", len(rows)).Msg("collected listing")

		path := filepath.Join(lay.Index(), src.Name+".csv")
		if err := writeSourceCSV(path, rows, src.Role); err != nil {
			return 0, err
		}
		for _, row := range rows {
			row.Role = src.Role
			all = append(all, row)
		}
	}

	entries := Merge(all)
	if err := WriteAllLinks(lay.AllLinks(), entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Merge groups rows by normalized URL, collapsing Section, Subsection and
// Title into first-seen-order lists (duplicates retained) and keeping the
// first-seen Role. Blank cells become the Missing placeholder.
func Merge(rows []Row) []types.LinkEntry {
	byURL := make(map[string]*types.LinkEntry)
	var order []string

	for _, row := range rows {
		url := NormalizeURL(row.URL)
		if url == "" {
			continue
		}
		entry, ok := byURL[url]
		if !ok {
			entry = &types.LinkEntry{
				URL:      url,
				Role:     row.Role,
				Filename: Filename(url),
			}
			byURL[url] = entry
			order = append(order, url)
		}
		entry.Section = append(entry.Section, orMissing(row.Section))
		entry.Subsection = append(entry.Subsection, orMissing(row.Subsection))
		entry.Title = append(entry.Title, orMissing(row.Title))
	}

	entries := make([]types.LinkEntry, 0, len(order))
	for _, url := range order {
		entries = append(entries, *byURL[url])
	}
	return entries
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return Missing
	}
	return s
}

func writeSourceCSV(path string, rows []Row, role string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	records := [][]string{{"Section", "Subsection", "Title", "URL", "Role"}}
	for _, r := range rows {
		records = append(records, []string{r.Section, r.Subsection, r.Title, r.URL, role})
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
