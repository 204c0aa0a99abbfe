package parse

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jonathan/corpus-indexer/internal/audit"
	"github.com/jonathan/corpus-indexer/internal/layout"
	"github.com/jonathan/corpus-indexer/internal/links"
	"github.com/jonathan/corpus-indexer/internal/retry"
	"github.com/jonathan/corpus-indexer/internal/stats"
	"github.com/jonathan/corpus-indexer/internal/types"
)

const (
	// MaxAttempts is the per-document conversion and structuring budget.
	MaxAttempts = 3
	// RetryDelay is the fixed wait between parse attempts.
	RetryDelay = 4 * time.Second
)

// Parser converts the raw artifacts under crawl/ into normalized Markdown
// under out/. Parsing is sequential: the structuring engine dominates
// latency and is rate-limited upstream.
type Parser struct {
	Layout layout.Layout
	Engine Engine
	Audit  *audit.Log
	Errors *audit.ErrorCSV
	Stats  *stats.Run
	Retry  retry.Policy
}

// New returns a Parser with the shared retry policy.
func New(lay layout.Layout, engine Engine, auditLog *audit.Log, errCSV *audit.ErrorCSV, run *stats.Run) *Parser {
	return &Parser{
		Layout: lay,
		Engine: engine,
		Audit:  auditLog,
		Errors: errCSV,
		Stats:  run,
		Retry:  retry.Fixed(MaxAttempts, RetryDelay),
	}
}

// ParseAll processes every HTML and PDF artifact. PDFs bypass change
// detection and are always re-processed: byte comparison of externally
// generated PDFs does not reliably detect content change.
func (p *Parser) ParseAll(ctx context.Context) error {
	urlByStem := p.loadURLIndex()

	if err := p.walk(ctx, p.Layout.CrawlDir("html"), ".html", urlByStem); err != nil {
		return err
	}
	return p.walk(ctx, p.Layout.CrawlDir("pdf"), ".pdf", urlByStem)
}

// loadURLIndex maps filename stems to source URLs for audit context. A
// missing link table only degrades logging.
func (p *Parser) loadURLIndex() map[string]string {
	entries, err := links.ReadAllLinks(p.Layout.AllLinks())
	if err != nil {
		log.Warn().Err(err).Msg("link table unavailable, parse audit events will lack URLs")
		return nil
	}
	urls := make(map[string]string, len(entries))
	for _, e := range entries {
		urls[e.Filename] = e.URL
	}
	return urls
}

func (p *Parser) walk(ctx context.Context, dir, ext string, urlByStem map[string]string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if d.Name() == "error" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		p.processDocument(ctx, path, ext, urlByStem[stem])
		return nil
	})
}

// processDocument runs the per-document pipeline. Any failure, including a
// panic, is contained here: one document never aborts the walk.
func (p *Parser) processDocument(ctx context.Context, path, ext, url string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("path", path).Msg("recovered from panic while parsing document")
		}
	}()

	log.Info().Str("path", path).Str("url", url).Msg("parsing document")

	switch ext {
	case ".pdf":
		p.Stats.Add(func(r *stats.Run) { r.PDFsAlwaysProcessed++ })
		p.processPDF(ctx, path, url)
	default:
		p.processHTML(ctx, path, url)
	}
}

func (p *Parser) processHTML(ctx context.Context, path, url string) {
	p.Audit.Record(audit.Event{
		Stage: types.StageParse, Filepath: path, URL: url,
		Status: "HTML_PROCESSING_ATTEMPT", Reason: "Attempting to process HTML file.",
	})

	body, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to read artifact")
		return
	}

	var (
		text     string
		titleTag string
	)
	err = p.Retry.Do(ctx, func(context.Context) error {
		var cerr error
		text, titleTag, cerr = ConvertHTML(body)
		if cerr != nil {
			p.Audit.Record(audit.Event{
				Stage: types.StageParse, Filepath: path, URL: url,
				Status: "HTML_TO_TEXT_FAILED", Reason: "Failed to convert HTML. Retrying.",
			})
		}
		return cerr
	})
	if err != nil {
		p.failDocument(path, url, OriginHTML)
		return
	}

	outPath := filepath.Join(p.Layout.OutDir("from_html"), stem(path)+".md")
	p.structure(ctx, text, OriginHTML, titleTag, outPath, path, url)
}

func (p *Parser) processPDF(ctx context.Context, path, url string) {
	p.Audit.Record(audit.Event{
		Stage: types.StageParse, Filepath: path, URL: url,
		Status: "PDF_PROCESSING_ATTEMPT", Reason: "Attempting to process PDF file.",
	})

	var text string
	err := p.Retry.Do(ctx, func(context.Context) error {
		var perr error
		text, perr = ExtractPDF(path)
		if perr != nil {
			p.Audit.Record(audit.Event{
				Stage: types.StageParse, Filepath: path, URL: url,
				Status: "PDF_TO_TEXT_FAILED", Reason: "Failed to extract PDF text. Retrying.",
			})
		}
		return perr
	})
	if err != nil {
		p.failDocument(path, url, OriginPDF)
		return
	}

	outPath := filepath.Join(p.Layout.OutDir("from_pdf"), stem(path)+".md")
	p.structure(ctx, text, OriginPDF, "", outPath, path, url)
}

// structure runs the text through the structuring engine (unless it
// already holds a well-formed Markdown table), falls back to the raw text
// on empty output, and writes the final Markdown.
func (p *Parser) structure(ctx context.Context, text string, origin Origin, titleTag, outPath, srcPath, url string) {
	var final string

	if HasMarkdownTable(text) {
		// Re-structuring an existing table risks corrupting it.
		final = text
		p.Audit.Record(audit.Event{
			Stage: types.StageParse, Filepath: srcPath, URL: url,
			Status: types.StatusDirectLoad, Reason: "Content already contains Markdown tables.",
		})
	} else {
		p.Stats.Add(func(r *stats.Run) { r.DocumentsSentToEngine++ })
		err := p.Retry.Do(ctx, func(ctx context.Context) error {
			structured, serr := p.Engine.Structure(ctx, text, origin)
			if serr != nil {
				// Engine unavailable is treated as empty output.
				log.Warn().Err(serr).Str("path", srcPath).Msg("structuring engine error")
				structured = ""
			}
			if IsEmptyContent(structured) {
				p.Stats.Add(func(r *stats.Run) { r.DocumentsEmptyEngine++ })
				structured = text
			}
			if IsEmptyContent(structured) {
				p.Audit.Record(audit.Event{
					Stage: types.StageParse, Filepath: srcPath, URL: url,
					Status: types.StatusEngineEmpty, Reason: "Engine returned empty content. Retrying.",
				})
				return fmt.Errorf("structured content is empty")
			}
			final = structured
			return nil
		})
		if err != nil {
			p.failDocument(srcPath, url, origin)
			return
		}
		p.Audit.Record(audit.Event{
			Stage: types.StageParse, Filepath: srcPath, URL: url,
			Status: types.StatusEngineUsed, Reason: "Structuring engine produced content.",
		})
	}

	var builder strings.Builder
	if titleTag != "" {
		builder.WriteString("title: " + titleTag + "\n")
	}
	builder.WriteString(final)

	if err := os.WriteFile(outPath, []byte(builder.String()), 0o644); err != nil {
		log.Error().Err(err).Str("path", outPath).Msg("failed to write Markdown output")
		return
	}

	p.Stats.Add(func(r *stats.Run) {
		r.MDFilesGenerated++
		r.SuccessfulAfterRetries++
	})
	p.Audit.Record(audit.Event{
		Stage: types.StageParse, Filepath: srcPath, URL: url,
		Status: "FINISHED", Reason: "Markdown written to " + outPath,
	})
}

// failDocument buckets a terminal failure: the artifact is moved to the
// class error folder, a row is appended to the error CSV, and the audit
// log records the move.
func (p *Parser) failDocument(path, url string, origin Origin) {
	reason := types.StatusHTMLFailed
	section := "HTML Parsing Failures"
	if origin == OriginPDF {
		reason = types.StatusPDFFailed
		section = "PDF Parsing Failures"
	}

	if err := p.Errors.AppendParseFailure(section, path, url, reason); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to append parse failure to error CSV")
	}

	errDir := filepath.Join(filepath.Dir(path), "error")
	moved := filepath.Join(errDir, filepath.Base(path))
	if err := os.MkdirAll(errDir, 0o755); err == nil {
		if err := os.Rename(path, moved); err != nil {
			log.Error().Err(err).Str("path", path).Msg("failed to move artifact to error folder")
			moved = path
		}
	}

	p.Stats.Add(func(r *stats.Run) { r.FailedAfterRetries++ })
	p.Audit.Record(audit.Event{
		Stage: types.StageParse, Filepath: moved, URL: url,
		Status: types.StatusMovedToError,
		Reason: reason + " after " + fmt.Sprint(p.Retry.MaxAttempts) + " retries. File moved to error folder.",
	})
	log.Warn().Str("path", path).Str("reason", reason).Msg("document failed after all retries")
}

func stem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
