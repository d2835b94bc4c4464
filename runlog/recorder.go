package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"sandbox-harness/config"
)

// Recorder collects diagnostic events for one harness run. Recording must
// never influence the run outcome, so implementations hold their own
// failures until Flush and callers are free to ignore even that.
type Recorder interface {
	RecordStage(stage string, duration time.Duration, success bool, metadata map[string]string)
	RecordError(stage string, err error)
	Flush() error
	Close() error
}

// SessionInfo identifies one harness invocation in the trace output.
type SessionInfo struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	Pipeline  string    `json:"pipeline"`
}

// sessionDocument is the on-disk shape of one flushed session.
type sessionDocument struct {
	Session SessionInfo `json:"session"`
	Events  []Event     `json:"events"`
	SavedAt time.Time   `json:"saved_at"`
}

// FileRecorder buffers events in memory and writes one JSON document per
// session into the trace directory.
type FileRecorder struct {
	dir     string
	session SessionInfo
	mu      sync.Mutex
	buffer  []Event
}

// NewFileRecorder creates a recorder writing into dir, creating it if
// needed.
func NewFileRecorder(dir, pipeline string) (*FileRecorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory %s: %w", dir, err)
	}
	return &FileRecorder{
		dir: dir,
		session: SessionInfo{
			ID:        uuid.New().String(),
			StartTime: time.Now(),
			Pipeline:  pipeline,
		},
		buffer: make([]Event, 0, 16),
	}, nil
}

// RecordStage appends a stage event to the session buffer
func (r *FileRecorder) RecordStage(stage string, duration time.Duration, success bool, metadata map[string]string) {
	r.append(&StageEvent{
		BaseEvent:  r.base("stage"),
		Stage:      stage,
		DurationMS: duration.Milliseconds(),
		Success:    success,
		Metadata:   metadata,
	})
}

// RecordError appends an error event to the session buffer
func (r *FileRecorder) RecordError(stage string, err error) {
	if err == nil {
		return
	}
	r.append(&ErrorEvent{
		BaseEvent: r.base("error"),
		Stage:     stage,
		Message:   err.Error(),
	})
}

func (r *FileRecorder) base(eventType string) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		CreatedAt: time.Now(),
		SessionID: r.session.ID,
	}
}

func (r *FileRecorder) append(event Event) {
	if event.Validate() != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffer = append(r.buffer, event)
}

// Flush writes the session document with everything buffered so far.
// The buffer stays intact; a later flush rewrites the same session file.
func (r *FileRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buffer) == 0 {
		return nil
	}

	doc := sessionDocument{
		Session: r.session,
		Events:  r.buffer,
		SavedAt: time.Now(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	path := filepath.Join(r.dir, fmt.Sprintf("run_%s.json", r.session.ID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Close flushes and releases the recorder
func (r *FileRecorder) Close() error {
	return r.Flush()
}

// NoopRecorder drops every event; it stands in whenever tracing is off.
type NoopRecorder struct{}

// NewNoopRecorder creates a recorder that does nothing
func NewNoopRecorder() *NoopRecorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) RecordStage(string, time.Duration, bool, map[string]string) {}
func (n *NoopRecorder) RecordError(string, error)                                 {}
func (n *NoopRecorder) Flush() error                                              { return nil }
func (n *NoopRecorder) Close() error                                              { return nil }

// FromEnv returns a file recorder when a trace directory is configured
// and the noop recorder otherwise. Setup failures also degrade to noop:
// a grading run must not die for its diagnostics.
func FromEnv(pipeline string) Recorder {
	dir := config.TraceDir()
	if dir == "" {
		return NewNoopRecorder()
	}
	rec, err := NewFileRecorder(dir, pipeline)
	if err != nil {
		return NewNoopRecorder()
	}
	return rec
}

// StageTimer measures one stage and records it on End.
type StageTimer struct {
	rec   Recorder
	stage string
	start time.Time
}

// StartStage begins timing a named stage.
func StartStage(rec Recorder, stage string) *StageTimer {
	return &StageTimer{rec: rec, stage: stage, start: time.Now()}
}

// End records the stage with its elapsed time; a non-nil err also
// records an error event.
func (t *StageTimer) End(err error) {
	t.rec.RecordStage(t.stage, time.Since(t.start), err == nil, nil)
	if err != nil {
		t.rec.RecordError(t.stage, err)
	}
}
