// Package types defines the shared data model for the indexing pipeline.
package types

import "time"

// LinkEntry is the canonical, deduplicated record of one source URL.
// Section, Subsection and Title hold every raw tuple seen for the URL,
// in first-seen order with duplicates retained.
type LinkEntry struct {
	URL        string
	Section    []string
	Subsection []string
	Title      []string
	Role       string
	Filename   string
}

// FetchRecord is one row of the crawl ledger. It is created on the first
// fetch attempt for a URL and never mutated once appended. ContentHash is
// empty for terminal failures.
type FetchRecord struct {
	Heading     string
	Subheading  string
	Title       string
	URL         string
	Filepath    string
	ContentType string
	ContentHash string
	LastUpdate  time.Time
	Role        string
}

// Failed reports whether the record marks a terminal fetch failure.
func (r FetchRecord) Failed() bool {
	return r.ContentHash == ""
}

// MetadataRecord is the provenance block attached to a parsed document.
type MetadataRecord struct {
	URL        string `yaml:"url"`
	Heading    string `yaml:"heading"`
	Subheading string `yaml:"subheading"`
	Title      string `yaml:"title"`
	Role       string `yaml:"role"`
	TitleTag   string `yaml:"title_tag,omitempty"`
}

// Stage identifies the pipeline stage emitting an audit event.
type Stage string

// Pipeline stages.
const (
	StageIndex Stage = "index"
	StageCrawl Stage = "crawl"
	StageParse Stage = "parse"
	StageMeta  Stage = "metadata"
)

// Fetch and parse statuses recorded in the audit log and ledger.
const (
	StatusSuccess          = "SUCCESS"
	StatusSkipped          = "SKIPPED"
	StatusHTTPError        = "HTTP_ERROR"
	StatusRequestError     = "REQUEST_ERROR"
	StatusParseError       = "PARSE_ERROR"
	StatusRenderedFallback = "SUCCESS_WITH_PLAYWRIGHT_FALLBACK"
	StatusFailedHTTP       = "FAILED_HTTP_ERROR"
	StatusFailedRequest    = "FAILED_REQUEST_ERROR"

	StatusDirectLoad    = "DIRECT_LOAD"
	StatusEngineUsed    = "ENGINE_USED"
	StatusEngineEmpty   = "ENGINE_EMPTY_RETRY"
	StatusMovedToError  = "MOVED_TO_ERROR"
	StatusPDFFailed     = "PDF_PARSING_FAILED"
	StatusHTMLFailed    = "HTML_PARSING_FAILED"
	StatusRetryExceeded = "FAILED_AFTER_ALL_RETRIES"
)
