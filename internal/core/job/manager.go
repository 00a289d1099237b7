package job

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/viperadnan-git/meeting-summary/internal/core/errdefs"
	"github.com/viperadnan-git/meeting-summary/internal/core/event"
	"github.com/viperadnan-git/meeting-summary/internal/core/util"
)

// Manager is the registry of jobs known to this process. Jobs are kept for
// the life of the process.
type Manager struct {
	bus  event.Bus
	wake time.Duration

	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewManager(bus event.Bus, wake time.Duration) *Manager {
	return &Manager{
		bus:  bus,
		wake: wake,
		jobs: make(map[string]*Job),
	}
}

func (m *Manager) Create(ctx context.Context) *Job {
	j := newJob(util.NewHexID(), m.wake)

	m.mu.Lock()
	m.jobs[j.ID] = j
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(ctx, event.Event{
			Type:    event.EventJobCreated,
			Payload: event.JobEvent{JobID: j.ID},
		})
	}
	return j
}

func (m *Manager) Get(id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, errdefs.ErrNotFound)
	}
	return j, nil
}

// List returns all jobs, oldest first.
func (m *Manager) List() []*Job {
	m.mu.RLock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	m.mu.RUnlock()

	slices.SortFunc(jobs, func(a, b *Job) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return jobs
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}
