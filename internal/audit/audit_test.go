package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/corpus-indexer/internal/types"
)

func TestLog_RecordsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	l, err := Open(path)
	require.NoError(t, err)

	l.Record(Event{Stage: types.StageCrawl, URL: "https://example.com", Status: types.StatusSuccess})
	l.Record(Event{Stage: types.StageParse, Status: "FINISHED", Filepath: "out.md"})
	require.NoError(t, l.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}

	require.Len(t, events, 2)
	assert.Equal(t, types.StageCrawl, events[0].Stage)
	assert.Equal(t, "https://example.com", events[0].URL)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, l.RunID(), events[0].RunID)
	assert.Equal(t, l.RunID(), events[1].RunID)
}

func TestOpen_TruncatesPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("old line\n"), 0644))

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestLog_NilIsNoop(t *testing.T) {
	var l *Log
	assert.NotPanics(t, func() {
		l.Record(Event{Status: types.StatusSuccess})
	})
	assert.NoError(t, l.Close())
}

func TestErrorCSV_AppendFetchFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error", "error.csv")
	sink := NewErrorCSV(path)

	records := []types.FetchRecord{
		{URL: "https://a.example.com", ContentHash: "abc123"},
		{URL: "https://b.example.com", Filepath: "connection refused", ContentType: "Error"},
	}
	require.NoError(t, sink.AppendFetchFailures("Failed HTTP Errors", records))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	// Only the failed row is written, under the section header.
	assert.Contains(t, string(content), "Failed HTTP Errors\n")
	assert.Contains(t, string(content), "https://b.example.com")
	assert.NotContains(t, string(content), "https://a.example.com")
}

func TestErrorCSV_NoFailuresNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error.csv")
	sink := NewErrorCSV(path)

	records := []types.FetchRecord{{URL: "https://a.example.com", ContentHash: "abc123"}}
	require.NoError(t, sink.AppendFetchFailures("Failed HTTP Errors", records))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestErrorCSV_AppendParseFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error.csv")
	sink := NewErrorCSV(path)

	require.NoError(t, sink.AppendParseFailure("PDF Parsing Failures", "crawl/pdf/x.pdf", "", types.StatusPDFFailed))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "PDF Parsing Failures\n")
	assert.Contains(t, string(content), "crawl/pdf/x.pdf")
	assert.Contains(t, string(content), "N/A")
	assert.Contains(t, string(content), types.StatusPDFFailed)
}

func TestErrorCSV_Reset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error.csv")
	sink := NewErrorCSV(path)

	require.NoError(t, sink.AppendParseFailure("HTML Parsing Failures", "x.html", "u", types.StatusHTMLFailed))
	require.NoError(t, sink.Reset())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Resetting a missing file is not an error.
	assert.NoError(t, sink.Reset())
}
