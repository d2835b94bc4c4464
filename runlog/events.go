package runlog

import (
	"errors"
	"time"
)

// Event is one diagnostic record inside a run log session.
type Event interface {
	EventType() string
	Timestamp() time.Time
	Validate() error
}

// BaseEvent provides the fields shared by every event type.
type BaseEvent struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
}

// EventType returns the type identifier for this event
func (b BaseEvent) EventType() string {
	return b.Type
}

// Timestamp returns when this event occurred
func (b BaseEvent) Timestamp() time.Time {
	return b.CreatedAt
}

// StageEvent records one pipeline stage execution
type StageEvent struct {
	BaseEvent
	Stage      string            `json:"stage"`
	DurationMS int64             `json:"duration_ms"`
	Success    bool              `json:"success"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Validate ensures the event data is complete
func (e *StageEvent) Validate() error {
	if e.Stage == "" {
		return errors.New("stage is required")
	}
	return nil
}

// ErrorEvent records an infrastructure failure and the stage it hit
type ErrorEvent struct {
	BaseEvent
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Validate ensures the event data is complete
func (e *ErrorEvent) Validate() error {
	if e.Message == "" {
		return errors.New("message is required")
	}
	return nil
}
