// Package crawl fetches raw artifacts for every link entry: concurrent
// batched fetches with content-type dispatch, skip-if-exists change
// detection, HTTP retry and a rendering-engine fallback for blocked pages.
package crawl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/corpus-indexer/internal/audit"
	"github.com/jonathan/corpus-indexer/internal/extract"
	"github.com/jonathan/corpus-indexer/internal/fetch"
	"github.com/jonathan/corpus-indexer/internal/layout"
	"github.com/jonathan/corpus-indexer/internal/links"
	"github.com/jonathan/corpus-indexer/internal/retry"
	"github.com/jonathan/corpus-indexer/internal/stats"
	"github.com/jonathan/corpus-indexer/internal/types"
)

const (
	// BatchSize bounds the number of in-flight fetches. The next batch
	// never starts before the current one fully completes.
	BatchSize = 10
	// PreFetchDelay is the soft rate limit before each fetch attempt.
	PreFetchDelay = 3 * time.Second
	// RetryDelay is the fixed wait between fetch attempts.
	RetryDelay = 10 * time.Second
	// MaxAttempts is the fetch attempt budget for transient failures.
	MaxAttempts = 3
)

// excludedURLs are never fetched: no artifact, no record.
var excludedURLs = []string{
	"sharepoint.com",
	"https://www.byupathway.edu/pathwayconnect-block-academic-calendar",
}

// deniedDomains are rejected as a synthetic 403 without a plain fetch of
// body content; the default fetch path structurally cannot retrieve them.
var deniedDomains = []string{
	"articulate.com",
	"myinstitute.churchofjesuschrist.org",
}

// Crawler fetches raw artifacts and appends the fetch ledger.
type Crawler struct {
	Layout    layout.Layout
	Options   *fetch.Options
	Renderer  fetch.Renderer
	Extractor *extract.Extractor
	Audit     *audit.Log
	Errors    *audit.ErrorCSV
	Stats     *stats.Run

	// BatchSize overrides the default in-flight fetch bound when positive.
	BatchSize int
	// PreFetch overrides PreFetchDelay when non-negative (tests).
	PreFetch time.Duration
	Retry    retry.Policy
}

// New returns a Crawler with production delays and the shared retry policy.
func New(lay layout.Layout, renderer fetch.Renderer, auditLog *audit.Log, errCSV *audit.ErrorCSV, run *stats.Run) *Crawler {
	return &Crawler{
		Layout:    lay,
		Options:   fetch.DefaultOptions(),
		Renderer:  renderer,
		Extractor: extract.New(renderer),
		Audit:     auditLog,
		Errors:    errCSV,
		Stats:     run,
		BatchSize: BatchSize,
		PreFetch:  PreFetchDelay,
		Retry: retry.Policy{
			MaxAttempts: MaxAttempts,
			Delay:       RetryDelay,
			Retryable:   fetch.IsTransient,
		},
	}
}

// Crawl processes the link entries in fixed-size batches, writes raw
// artifacts, and persists the merged ledger. Individual failures never
// abort the run.
func (c *Crawler) Crawl(ctx context.Context, entries []types.LinkEntry) ([]types.FetchRecord, error) {
	var (
		mu      sync.Mutex
		records []types.FetchRecord
	)

	size := c.BatchSize
	if size <= 0 {
		size = BatchSize
	}
	for start := 0; start < len(entries); start += size {
		end := start + size
		if end > len(entries) {
			end = len(entries)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, entry := range entries[start:end] {
			entry := entry
			g.Go(func() error {
				rec := c.processEntry(gctx, entry)
				if rec != nil {
					mu.Lock()
					records = append(records, *rec)
					mu.Unlock()
				}
				return nil
			})
		}
		// Waiting out the full batch bounds concurrent browser instances
		// and file descriptors.
		if err := g.Wait(); err != nil {
			return records, err
		}
		if err := ctx.Err(); err != nil {
			return records, err
		}
	}

	if err := c.Errors.AppendFetchFailures("Failed HTTP Errors", records); err != nil {
		log.Warn().Err(err).Msg("failed to append fetch failures to error CSV")
	}
	if err := MergeLedger(c.Layout.Ledger(), records); err != nil {
		return records, err
	}
	return records, nil
}

// processEntry runs the per-entry state machine. A panic while handling one
// document is contained here and never aborts the batch.
func (c *Crawler) processEntry(ctx context.Context, entry types.LinkEntry) (rec *types.FetchRecord) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("url", entry.URL).Msg("recovered from panic while processing entry")
			rec = c.failedRecord(entry, fmt.Sprintf("panic: %v", r), "Error")
		}
	}()

	if isExcluded(entry.URL) {
		return nil
	}

	htmlPath := filepath.Join(c.Layout.CrawlDir("html"), entry.Filename+".html")
	pdfPath := filepath.Join(c.Layout.CrawlDir("pdf"), entry.Filename+".pdf")

	// Presence of an artifact of either extension is the change-detection
	// boundary: re-runs never re-fetch it. A URL whose content type flips
	// between runs keeps its stale artifact; see the skip caveat in the
	// audit log when that matters.
	if existing := firstExisting(htmlPath, pdfPath); existing != "" {
		c.Stats.Add(func(r *stats.Run) { r.FilesSkippedNoChange++ })
		c.Audit.Record(audit.Event{
			Stage:    types.StageCrawl,
			URL:      entry.URL,
			Status:   types.StatusSkipped,
			Reason:   "File already exists",
			Filepath: existing,
		})
		return nil
	}

	if isDenied(entry.URL) {
		c.Audit.Record(audit.Event{
			Stage:  types.StageCrawl,
			URL:    entry.URL,
			Status: types.StatusHTTPError,
			Reason: "Access forbidden (403) - using rendering fallback",
		})
		return c.renderFallback(ctx, entry, htmlPath)
	}

	log.Info().Str("url", entry.URL).Msg("fetching")

	var result *fetch.Result
	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		if c.PreFetch > 0 {
			select {
			case <-time.After(c.PreFetch):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		var ferr error
		result, ferr = fetch.Get(ctx, entry.URL, c.Options)
		return ferr
	})

	switch {
	case err == nil:
		return c.store(ctx, entry, result)
	case fetch.IsHTTPStatus(err, http.StatusForbidden):
		// 403 never retries the plain path; it is rescued once through
		// the rendering engine.
		c.Audit.Record(audit.Event{
			Stage:  types.StageCrawl,
			URL:    entry.URL,
			Status: types.StatusHTTPError,
			Reason: "Access forbidden (403) - using rendering fallback",
		})
		return c.renderFallback(ctx, entry, htmlPath)
	default:
		return c.recordFailure(entry, err)
	}
}

// store dispatches on the response content type, writes the artifact, and
// returns the ledger record with the content hash of the bytes written.
func (c *Crawler) store(ctx context.Context, entry types.LinkEntry, result *fetch.Result) *types.FetchRecord {
	var (
		path    string
		content []byte
		status  = types.StatusSuccess
		reason  = "Content Type: " + result.ContentType
	)

	switch {
	case result.IsHTML():
		extracted, err := c.Extractor.ForURL(ctx, entry.URL, result.Body)
		if err != nil {
			return c.recordFailure(entry, err)
		}
		if extracted.Status == types.StatusParseError {
			status = types.StatusParseError
			reason = extracted.Reason
		} else if extracted.Reason != "" {
			reason = extracted.Reason
		}
		path = filepath.Join(c.Layout.CrawlDir("html"), entry.Filename+".html")
		content = []byte(extracted.HTML)
	case result.IsPDF():
		path = filepath.Join(c.Layout.CrawlDir("pdf"), entry.Filename+".pdf")
		content = result.Body
	default:
		path = filepath.Join(c.Layout.CrawlDir("others"), entry.Filename+"."+result.Extension())
		content = result.Body
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return c.recordFailure(entry, fmt.Errorf("failed to write artifact %s: %w", path, err))
	}

	c.Stats.Add(func(r *stats.Run) { r.FilesProcessed++ })
	c.Audit.Record(audit.Event{
		Stage:    types.StageCrawl,
		URL:      entry.URL,
		Status:   status,
		Reason:   reason,
		Filepath: path,
	})

	return &types.FetchRecord{
		Heading:     links.FormatList(entry.Section),
		Subheading:  links.FormatList(entry.Subsection),
		Title:       links.FormatList(entry.Title),
		URL:         entry.URL,
		Filepath:    path,
		ContentType: result.Extension(),
		ContentHash: hashContent(content),
		LastUpdate:  time.Now(),
		Role:        entry.Role,
	}
}

// renderFallback captures a fully rendered page once via the rendering
// engine. It does not count against the transient retry budget.
func (c *Crawler) renderFallback(ctx context.Context, entry types.LinkEntry, htmlPath string) *types.FetchRecord {
	html, err := c.Renderer.RenderPage(ctx, entry.URL)
	if err != nil {
		c.Audit.Record(audit.Event{
			Stage:  types.StageCrawl,
			URL:    entry.URL,
			Status: types.StatusFailedHTTP,
			Reason: "Rendering fallback failed: " + err.Error(),
		})
		return c.failedRecord(entry, err.Error(), "Error")
	}

	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return c.recordFailure(entry, fmt.Errorf("failed to write artifact %s: %w", htmlPath, err))
	}

	c.Stats.Add(func(r *stats.Run) { r.FilesProcessed++ })
	c.Audit.Record(audit.Event{
		Stage:    types.StageCrawl,
		URL:      entry.URL,
		Status:   types.StatusRenderedFallback,
		Reason:   "Access forbidden (403), rescued with rendering engine",
		Filepath: htmlPath,
	})

	return &types.FetchRecord{
		Heading:     links.FormatList(entry.Section),
		Subheading:  links.FormatList(entry.Subsection),
		Title:       links.FormatList(entry.Title),
		URL:         entry.URL,
		Filepath:    htmlPath,
		ContentType: "html",
		ContentHash: hashContent([]byte(html)),
		LastUpdate:  time.Now(),
		Role:        entry.Role,
	}
}

// recordFailure classifies the terminal error and emits the failed record.
func (c *Crawler) recordFailure(entry types.LinkEntry, err error) *types.FetchRecord {
	status := types.StatusFailedRequest
	contentType := "Error"
	var fe *fetch.Error
	if errors.As(err, &fe) && fe.StatusCode != 0 {
		status = types.StatusFailedHTTP
		contentType = fmt.Sprintf("%d", fe.StatusCode)
	}

	reason := err.Error()
	if errors.Is(err, retry.ErrAttemptsExhausted) {
		reason += ". Max retries reached."
	}
	c.Audit.Record(audit.Event{
		Stage:  types.StageCrawl,
		URL:    entry.URL,
		Status: status,
		Reason: reason,
	})
	return c.failedRecord(entry, err.Error(), contentType)
}

// failedRecord builds the nil-hash ledger row marking a terminal failure.
// The Filepath column carries the error text, as the ledger consumers
// expect.
func (c *Crawler) failedRecord(entry types.LinkEntry, errText, contentType string) *types.FetchRecord {
	c.Stats.Add(func(r *stats.Run) { r.FetchFailures++ })
	return &types.FetchRecord{
		Heading:     links.FormatList(entry.Section),
		Subheading:  links.FormatList(entry.Subsection),
		Title:       links.FormatList(entry.Title),
		URL:         entry.URL,
		Filepath:    errText,
		ContentType: contentType,
		LastUpdate:  time.Now(),
		Role:        entry.Role,
	}
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func isExcluded(url string) bool {
	for _, pattern := range excludedURLs {
		if strings.Contains(url, pattern) || url == pattern {
			return true
		}
	}
	return false
}

func isDenied(url string) bool {
	for _, domain := range deniedDomains {
		if strings.Contains(url, domain) {
			return true
		}
	}
	return false
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
