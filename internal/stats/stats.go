// Package stats tracks aggregate counters for one pipeline run. A single
// *Run is created by the CLI and threaded through every stage; stages never
// keep their own package-level counters.
package stats

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

// Run holds the counters reported at the end of a pipeline run.
type Run struct {
	mu sync.Mutex

	started time.Time

	TotalDocumentsIndexed int `json:"total_documents_indexed"`
	FilesSkippedNoChange  int `json:"files_skipped_due_to_no_change"`
	FilesProcessed        int `json:"files_processed"`
	FetchFailures         int `json:"fetch_failures"`

	DocumentsSentToEngine  int `json:"documents_sent_to_engine"`
	DocumentsEmptyEngine   int `json:"documents_empty_from_engine"`
	SuccessfulAfterRetries int `json:"documents_successful_after_retries"`
	FailedAfterRetries     int `json:"documents_failed_after_retries"`
	MDFilesGenerated       int `json:"md_files_generated"`
	FilesWithOnlyMetadata  int `json:"files_with_only_metadata"`
	PDFsAlwaysProcessed    int `json:"pdf_files_always_processed"`

	ExecutionTime string `json:"execution_time"`
}

// NewRun returns a Run with the clock started.
func NewRun() *Run {
	return &Run{started: time.Now()}
}

// Add increments the counter selected by fn under the run lock.
func (r *Run) Add(fn func(*Run)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

// Set overwrites a counter under the run lock.
func (r *Run) Set(fn func(*Run)) {
	r.Add(fn)
}

// Snapshot returns a copy safe to read without the lock.
func (r *Run) Snapshot() Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Run{
		started:                r.started,
		TotalDocumentsIndexed:  r.TotalDocumentsIndexed,
		FilesSkippedNoChange:   r.FilesSkippedNoChange,
		FilesProcessed:         r.FilesProcessed,
		FetchFailures:          r.FetchFailures,
		DocumentsSentToEngine:  r.DocumentsSentToEngine,
		DocumentsEmptyEngine:   r.DocumentsEmptyEngine,
		SuccessfulAfterRetries: r.SuccessfulAfterRetries,
		FailedAfterRetries:     r.FailedAfterRetries,
		MDFilesGenerated:       r.MDFilesGenerated,
		FilesWithOnlyMetadata:  r.FilesWithOnlyMetadata,
		PDFsAlwaysProcessed:    r.PDFsAlwaysProcessed,
		ExecutionTime:          r.ExecutionTime,
	}
}

// Summary renders the counters as indented JSON with the elapsed run time
// filled in.
func (r *Run) Summary() string {
	snap := r.Snapshot()
	snap.ExecutionTime = formatDuration(time.Since(snap.started))
	out, err := json.MarshalIndent(&snap, "", "    ")
	if err != nil {
		return ""
	}
	return string(out)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return plural(int(h), "hour") + ", " + plural(int(m), "minute") + ", " + plural(int(s), "second")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
