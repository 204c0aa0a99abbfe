package stats

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_ConcurrentIncrements(t *testing.T) {
	run := NewRun()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run.Add(func(r *Run) { r.FilesProcessed++ })
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, run.Snapshot().FilesProcessed)
}

func TestSummary_ValidJSON(t *testing.T) {
	run := NewRun()
	run.Add(func(r *Run) { r.TotalDocumentsIndexed = 42 })
	run.Add(func(r *Run) { r.FetchFailures = 3 })

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(run.Summary()), &decoded))

	assert.EqualValues(t, 42, decoded["total_documents_indexed"])
	assert.EqualValues(t, 3, decoded["fetch_failures"])
	assert.Contains(t, decoded["execution_time"], "second")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 hours, 0 minutes, 0 seconds"},
		{time.Second, "0 hours, 0 minutes, 1 second"},
		{61 * time.Second, "0 hours, 1 minute, 1 second"},
		{3*time.Hour + 2*time.Minute + 5*time.Second, "3 hours, 2 minutes, 5 seconds"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}
