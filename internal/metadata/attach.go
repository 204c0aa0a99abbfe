package metadata

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/corpus-indexer/internal/audit"
	"github.com/jonathan/corpus-indexer/internal/layout"
	"github.com/jonathan/corpus-indexer/internal/links"
	"github.com/jonathan/corpus-indexer/internal/stats"
	"github.com/jonathan/corpus-indexer/internal/types"
)

// titlePrefix marks the provisional first line emitted by the parser when
// the source HTML carried a <title>.
const titlePrefix = "title: "

// Attacher joins parsed documents to their link provenance and rewrites
// each with a YAML front matter block and a cleaned body.
type Attacher struct {
	Layout layout.Layout
	Audit  *audit.Log
	Stats  *stats.Run

	// ExcludedTitleDomains lists hosts whose <title> tags are navigation
	// chrome rather than document titles; their title lines are dropped
	// instead of promoted into the front matter.
	ExcludedTitleDomains []string
}

// New returns an Attacher over the given data root.
func New(lay layout.Layout, auditLog *audit.Log, run *stats.Run) *Attacher {
	return &Attacher{Layout: lay, Audit: auditLog, Stats: run}
}

// AttachAll walks every parsed output folder, attaches metadata to each
// document, and writes the side list of documents with no matching link
// entry. Documents already carrying front matter are rewritten from
// scratch, so the pass is idempotent.
func (a *Attacher) AttachAll() error {
	entries, err := links.ReadAllLinks(a.Layout.AllLinks())
	if err != nil {
		return fmt.Errorf("failed to load link table: %w", err)
	}
	byStem := links.ByFilename(entries)

	var unmatched []string
	for _, class := range []string{"from_html", "from_pdf", "from_others"} {
		dir := a.Layout.OutDir(class)
		walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() {
				if d.Name() == "error" {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".md" {
				return nil
			}

			stem := strings.TrimSuffix(d.Name(), ".md")
			entry, ok := byStem[stem]
			if !ok {
				unmatched = append(unmatched, path)
				a.Audit.Record(audit.Event{
					Stage:    types.StageMeta,
					Status:   "NO_METADATA",
					Filepath: path,
				})
				return nil
			}
			if err := a.attachOne(path, entry); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to attach metadata")
			}
			return nil
		})
		if walkErr != nil && !os.IsNotExist(walkErr) {
			return fmt.Errorf("failed to walk %s: %w", dir, walkErr)
		}
	}

	sort.Strings(unmatched)
	if err := writeNoMetadata(a.Layout.NoMetadata(), unmatched); err != nil {
		return err
	}
	return nil
}

// attachOne rewrites a single document with fresh front matter and a
// cleaned body.
func (a *Attacher) attachOne(path string, entry types.LinkEntry) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	body, titleTag := popTitleLine(string(raw))
	if titleTag == "" {
		// Re-runs see front matter from the previous pass instead of the
		// parser's provisional title line.
		titleTag = existingTitleTag(body)
	}
	if titleTag != "" && a.titleExcluded(entry.URL) {
		titleTag = ""
	}

	body = StripFrontMatter(body)
	body = CleanMarkdown(body)
	body = strings.TrimLeft(body, "\n")

	meta := types.MetadataRecord{
		URL:        entry.URL,
		Heading:    joinField(entry.Section),
		Subheading: joinField(entry.Subsection),
		Title:      joinField(entry.Title),
		Role:       entry.Role,
		TitleTag:   titleTag,
	}
	block, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata for %s: %w", path, err)
	}

	var out strings.Builder
	out.WriteString("---\n")
	out.Write(block)
	out.WriteString("---\n\n")
	out.WriteString(body)

	if err := os.WriteFile(path, []byte(out.String()), 0o644); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", path, err)
	}
	a.Audit.Record(audit.Event{
		Stage:    types.StageMeta,
		URL:      entry.URL,
		Status:   types.StatusSuccess,
		Filepath: path,
	})
	return nil
}

func (a *Attacher) titleExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	for _, domain := range a.ExcludedTitleDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// existingTitleTag recovers the title tag from a front matter block written
// by a previous pass.
func existingTitleTag(content string) string {
	loc := frontMatterRe.FindStringIndex(content)
	if loc == nil || loc[0] != 0 {
		return ""
	}
	block := strings.TrimPrefix(content[:loc[1]], "---")
	if idx := strings.LastIndex(block, "---"); idx >= 0 {
		block = block[:idx]
	}
	var meta types.MetadataRecord
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return ""
	}
	return meta.TitleTag
}

// popTitleLine splits off the parser's provisional title line, if present.
func popTitleLine(content string) (body, title string) {
	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !sc.Scan() {
		return content, ""
	}
	first := sc.Text()
	if !strings.HasPrefix(first, titlePrefix) {
		return content, ""
	}
	title = strings.TrimSpace(strings.TrimPrefix(first, titlePrefix))
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		return content[idx+1:], title
	}
	return "", title
}

// joinField flattens the accumulated list values of a link column into one
// display string. Placeholder values are dropped.
func joinField(items []string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || item == links.Missing {
			continue
		}
		kept = append(kept, item)
	}
	return strings.Join(kept, " | ")
}

// writeNoMetadata records the documents that had no link entry. The file is
// rewritten whole each pass.
func writeNoMetadata(path string, paths []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	records := [][]string{{"filepath"}}
	for _, p := range paths {
		records = append(records, []string{p})
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// CountMetadataOnly inspects the parsed output folders after a full run and
// updates the run counters: total Markdown files generated and how many of
// them carry nothing beyond their front matter.
func CountMetadataOnly(lay layout.Layout, run *stats.Run) error {
	total, onlyMeta := 0, 0
	for _, class := range []string{"from_html", "from_pdf", "from_others"} {
		dir := lay.OutDir(class)
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() {
				if d.Name() == "error" {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".md" {
				return nil
			}
			total++
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil
			}
			if strings.TrimSpace(StripFrontMatter(string(raw))) == "" {
				onlyMeta++
			}
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to inspect %s: %w", dir, err)
		}
	}
	run.Set(func(r *stats.Run) {
		r.MDFilesGenerated = total
		r.FilesWithOnlyMetadata = onlyMeta
	})
	return nil
}
