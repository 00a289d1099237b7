package job

import (
	"context"
	"encoding/json"
	"iter"
	"sync"
	"time"
)

type Kind string

const (
	KindInfo  Kind = "info"
	KindStep  Kind = "step"
	KindOK    Kind = "ok"
	KindError Kind = "error"
	// KindDone marks the synthetic terminal event every subscriber sees last.
	KindDone Kind = "done"
)

// DefaultWakeInterval bounds how long a subscriber sleeps between re-checks.
const DefaultWakeInterval = time.Second

// Event is one entry of a job's progress log. Seq is the 1-based position in
// the log; the terminal event is numbered one past the last entry.
type Event struct {
	Seq          int
	Type         Kind
	Text         string
	Time         time.Time
	Result       any
	Error        string
	CleanupError string
}

func (e Event) MarshalJSON() ([]byte, error) {
	ts := float64(e.Time.UnixNano()) / 1e9
	if e.Type == KindDone {
		var errMsg, cleanupMsg *string
		if e.Error != "" {
			errMsg = &e.Error
		}
		if e.CleanupError != "" {
			cleanupMsg = &e.CleanupError
		}
		return json.Marshal(struct {
			Seq          int     `json:"seq"`
			Type         Kind    `json:"type"`
			Result       any     `json:"result"`
			Error        *string `json:"error"`
			CleanupError *string `json:"cleanup_error"`
			TS           float64 `json:"ts"`
		}{e.Seq, e.Type, e.Result, errMsg, cleanupMsg, ts})
	}
	return json.Marshal(struct {
		Seq  int     `json:"seq"`
		Type Kind    `json:"type"`
		Text string  `json:"text"`
		TS   float64 `json:"ts"`
	}{e.Seq, e.Type, e.Text, ts})
}

// Status is a point-in-time snapshot of a job.
type Status struct {
	Done         bool
	Result       any
	Error        string
	CleanupError string
	Events       int
}

// Job is one tracked pipeline execution. Its log only grows and it completes
// exactly once; all fields are guarded by mu.
type Job struct {
	ID        string
	CreatedAt time.Time

	wake time.Duration

	mu         sync.Mutex
	events     []Event
	changed    chan struct{}
	done       bool
	final      Event
	result     any
	err        string
	cleanupErr string
	finished   chan struct{}
}

func newJob(id string, wake time.Duration) *Job {
	if wake <= 0 {
		wake = DefaultWakeInterval
	}
	return &Job{
		ID:        id,
		CreatedAt: time.Now(),
		wake:      wake,
		changed:   make(chan struct{}),
		finished:  make(chan struct{}),
	}
}

// Push appends an event and wakes subscribers. Events pushed after completion
// are dropped and Push reports false.
func (j *Job) Push(kind Kind, text string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done {
		return false
	}
	j.events = append(j.events, Event{
		Seq:  len(j.events) + 1,
		Type: kind,
		Text: text,
		Time: time.Now(),
	})
	close(j.changed)
	j.changed = make(chan struct{})
	return true
}

// Complete finalizes the job with either a result or an error. Only the first
// call has any effect; later calls report false.
func (j *Job) Complete(result any, err error) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done {
		return false
	}
	j.done = true
	if err != nil {
		j.err = err.Error()
	} else {
		j.result = result
	}
	j.final = Event{
		Seq:          len(j.events) + 1,
		Type:         KindDone,
		Time:         time.Now(),
		Result:       j.result,
		Error:        j.err,
		CleanupError: j.cleanupErr,
	}
	close(j.changed)
	close(j.finished)
	return true
}

// recordCleanupFailure logs a failed upload removal as an error event and
// keeps it apart from the job outcome.
func (j *Job) recordCleanupFailure(msg string) {
	if !j.Push(KindError, msg) {
		return
	}
	j.mu.Lock()
	j.cleanupErr = msg
	j.mu.Unlock()
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Status{
		Done:         j.done,
		Result:       j.result,
		Error:        j.err,
		CleanupError: j.cleanupErr,
		Events:       len(j.events),
	}
}

// Finished is closed once the job completes.
func (j *Job) Finished() <-chan struct{} {
	return j.finished
}

// Subscribe returns an independent cursor positioned after the first from
// events.
func (j *Job) Subscribe(from int) *Cursor {
	return &Cursor{job: j, next: max(from, 0)}
}

// Events replays the log from offset from, follows it live and ends after the
// terminal done event or when ctx is cancelled.
func (j *Job) Events(ctx context.Context, from int) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		c := j.Subscribe(from)
		for {
			e, ok := c.Next(ctx)
			if !ok || !yield(e) {
				return
			}
		}
	}
}

// Cursor reads a job's log at its own pace. It is not safe for concurrent use.
type Cursor struct {
	job  *Job
	next int
	end  bool
}

// Next blocks until the next event is available. It returns false once the
// terminal event has been delivered or ctx is done.
func (c *Cursor) Next(ctx context.Context) (Event, bool) {
	j := c.job
	for !c.end {
		j.mu.Lock()
		if c.next < len(j.events) {
			e := j.events[c.next]
			c.next++
			j.mu.Unlock()
			return e, true
		}
		if j.done {
			e := j.final
			j.mu.Unlock()
			c.end = true
			return e, true
		}
		changed := j.changed
		j.mu.Unlock()

		timer := time.NewTimer(j.wake)
		select {
		case <-changed:
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return Event{}, false
		}
		timer.Stop()
	}
	return Event{}, false
}
