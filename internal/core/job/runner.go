package job

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/viperadnan-git/meeting-summary/internal/core/event"
	"github.com/viperadnan-git/meeting-summary/internal/core/pipeline"
)

const startMessage = "Starting pipeline: video ➜ audio ➜ transcript ➜ summary"

type Pipeline interface {
	Run(ctx context.Context, req pipeline.Request, hooks pipeline.Hooks) (*pipeline.Result, error)
}

type StartRequest struct {
	pipeline.Request
	// Cleanup is removed once the stages have finished, whatever the outcome.
	Cleanup string
}

type RunnerOptions struct {
	// View converts a pipeline result into the payload stored on the job.
	// Defaults to the result itself.
	View func(*pipeline.Result) any
	// Remove deletes the staged upload. Defaults to os.Remove.
	Remove func(path string) error
}

// Runner executes pipelines in the background, one goroutine per job.
type Runner struct {
	jobs     *Manager
	pipeline Pipeline
	bus      event.Bus
	opts     RunnerOptions
	wg       sync.WaitGroup
}

func NewRunner(jobs *Manager, p Pipeline, bus event.Bus, opts RunnerOptions) *Runner {
	if opts.View == nil {
		opts.View = func(r *pipeline.Result) any { return r }
	}
	if opts.Remove == nil {
		opts.Remove = os.Remove
	}
	return &Runner{jobs: jobs, pipeline: p, bus: bus, opts: opts}
}

// Start registers a job and runs it on its own goroutine. The job is detached
// from ctx cancellation and has no deadline of its own.
func (r *Runner) Start(ctx context.Context, req StartRequest) *Job {
	j := r.jobs.Create(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(context.WithoutCancel(ctx), j, req)
	}()
	return j
}

// Wait blocks until every started job has completed.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, j *Job, req StartRequest) {
	l := log.With().Str("job_id", j.ID).Logger()
	started := time.Now()

	j.Push(KindInfo, startMessage)
	res, err := r.execute(ctx, j, req.Request)
	if err != nil {
		j.Push(KindError, "Pipeline failed: "+err.Error())
	}

	r.cleanup(ctx, j, req.Cleanup)

	payload := event.JobEvent{JobID: j.ID, Input: req.VideoPath, Duration: time.Since(started)}
	if err != nil {
		j.Complete(nil, err)
		payload.Error = err.Error()
		r.publish(ctx, event.EventJobFailed, payload)
		l.Debug().Err(err).Msg("job failed")
		return
	}
	j.Complete(r.opts.View(res), nil)
	if res != nil {
		payload.AudioID = res.AudioID()
	}
	r.publish(ctx, event.EventJobCompleted, payload)
}

func (r *Runner) execute(ctx context.Context, j *Job, req pipeline.Request) (res *pipeline.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.pipeline.Run(ctx, req, pipeline.Hooks{
		OnStep: func(text string) { j.Push(KindStep, text) },
		OnOK:   func(text string) { j.Push(KindOK, text) },
	})
}

func (r *Runner) cleanup(ctx context.Context, j *Job, path string) {
	if path == "" {
		return
	}
	err := r.opts.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return
	}
	j.recordCleanupFailure("Failed to cleanup uploaded video " + err.Error())
	r.publish(ctx, event.EventJobCleanupFailed, event.JobEvent{JobID: j.ID, Input: path, Error: err.Error()})
}

func (r *Runner) publish(ctx context.Context, t event.EventType, payload event.JobEvent) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(ctx, event.Event{Type: t, Payload: payload})
}
