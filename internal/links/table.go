package links

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/corpus-indexer/internal/types"
)

// WriteAllLinks writes the merged link table. List-valued columns keep
// their textual list form (quoted items in square brackets) so the table
// round-trips across runs and tools.
func WriteAllLinks(path string, entries []types.LinkEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create link table %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	records := [][]string{{"URL", "Section", "Subsection", "Title", "Role", "filename"}}
	for _, e := range entries {
		records = append(records, []string{
			e.URL,
			FormatList(e.Section),
			FormatList(e.Subsection),
			FormatList(e.Title),
			e.Role,
			e.Filename,
		})
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write link table %s: %w", path, err)
	}
	return nil
}

// ReadAllLinks loads the merged link table.
func ReadAllLinks(path string) ([]types.LinkEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open link table %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read link table %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, required := range []string{"URL", "Section", "Subsection", "Title", "Role", "filename"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("link table %s is missing column %q", path, required)
		}
	}

	entries := make([]types.LinkEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		entries = append(entries, types.LinkEntry{
			URL:        row[col["URL"]],
			Section:    ParseList(row[col["Section"]]),
			Subsection: ParseList(row[col["Subsection"]]),
			Title:      ParseList(row[col["Title"]]),
			Role:       row[col["Role"]],
			Filename:   row[col["filename"]],
		})
	}
	return entries, nil
}

// ByFilename indexes link entries by their filename stem.
func ByFilename(entries []types.LinkEntry) map[string]types.LinkEntry {
	m := make(map[string]types.LinkEntry, len(entries))
	for _, e := range entries {
		m[e.Filename] = e
	}
	return m
}

// FormatList renders values as ['a', 'b']. Single quotes inside items are
// dropped rather than escaped; the downstream metadata cleaner treats
// quotes as noise anyway.
func FormatList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + strings.ReplaceAll(item, "'", "") + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// ParseList is the inverse of FormatList. A bare scalar comes back as a
// single-item list.
func ParseList(s string) []string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil
	}
	parts := strings.Split(inner, ", ")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		items = append(items, strings.Trim(strings.TrimSpace(part), "'"))
	}
	return items
}
