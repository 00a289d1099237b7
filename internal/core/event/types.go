package event

import "time"

type EventType string

const (
	EventJobCreated   EventType = "job.created"
	EventJobCompleted EventType = "job.completed"
	EventJobFailed    EventType = "job.failed"
	// EventJobCleanupFailed fires when the staged upload of a finished job
	// could not be removed.
	EventJobCleanupFailed EventType = "job.cleanup_failed"

	// Any subscribes to every event type.
	Any EventType = "*"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

type JobEvent struct {
	JobID    string
	Input    string
	AudioID  string
	Error    string
	Duration time.Duration
}
