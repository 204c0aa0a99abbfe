// Package audit provides the append-only run artifacts shared by every
// pipeline stage: a JSON Lines log of stage transitions and a CSV sink for
// terminal failures.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jonathan/corpus-indexer/internal/types"
)

// Event is one stage transition. Events are never mutated or deleted within
// a run; the log file is truncated only at run start.
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	RunID     string      `json:"run_id"`
	Stage     types.Stage `json:"stage"`
	URL       string      `json:"url,omitempty"`
	Status    string      `json:"status"`
	Reason    string      `json:"reason,omitempty"`
	Filepath  string      `json:"filepath,omitempty"`
}

// Log writes events as JSON Lines. Appends are serialized so concurrent
// fetch tasks never interleave partial lines.
type Log struct {
	mu    sync.Mutex
	f     *os.File
	runID string
}

// Open truncates the log file at path and returns a Log ready for appends.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log %s: %w", path, err)
	}
	return &Log{f: f, runID: uuid.NewString()}, nil
}

// RunID returns the identifier stamped on every event of this run.
func (l *Log) RunID() string {
	return l.runID
}

// Record appends one event. Errors are logged rather than returned: a
// broken audit log must not abort the pipeline.
func (l *Log) Record(ev Event) {
	if l == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ev.RunID = l.runID

	line, err := json.Marshal(ev)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal audit event")
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(append(line, '\n')); err != nil {
		log.Warn().Err(err).Msg("failed to append audit event")
	}
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	if l == nil || l.f == nil {
		return nil
	}
	return l.f.Close()
}
