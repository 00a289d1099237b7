// Package setup wires the media, transcription and summarization components
// into a ready pipeline, job runner and process Manager. It sits above the
// individual core packages so commands and the HTTP server share one wiring.
package setup

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog/log"
	appconfig "github.com/viperadnan-git/meeting-summary/internal/config"
	"github.com/viperadnan-git/meeting-summary/internal/core/event"
	"github.com/viperadnan-git/meeting-summary/internal/core/job"
	"github.com/viperadnan-git/meeting-summary/internal/core/media"
	"github.com/viperadnan-git/meeting-summary/internal/core/pipeline"
	"github.com/viperadnan-git/meeting-summary/internal/core/process"
	"github.com/viperadnan-git/meeting-summary/internal/core/storage"
	"github.com/viperadnan-git/meeting-summary/internal/core/summarize"
	"github.com/viperadnan-git/meeting-summary/internal/core/transcribe"
)

type Options struct {
	// View builds the function that shapes the payload stored on completed
	// jobs. Optional.
	View func(store *storage.Store) func(*pipeline.Result) any
	// Runner overrides the subprocess runner, mostly for tests.
	Runner process.Runner
}

// Services holds everything a command or the server needs.
type Services struct {
	Config      *appconfig.Config
	Store       *storage.Store
	Stager      *media.Stager
	Transcriber *transcribe.Transcriber
	Backends    *summarize.Registry
	Summarizer  *summarize.Summarizer
	Pipeline    *pipeline.Pipeline
	Bus         event.Bus
	Jobs        *job.Manager
	Runner      *job.Runner
	ProcMgr     *process.Manager

	stopLog func()
}

// Build constructs the services described by cfg. Missing external binaries
// are reported but not fatal; the stage that needs them fails when used.
func Build(ctx context.Context, cfg *appconfig.Config, opts Options) (*Services, error) {
	store, err := storage.New(cfg.Paths.Output, cfg.Paths.Uploads)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	runner := opts.Runner
	if runner == nil {
		runner = process.NewExecRunner()
	}

	checkBinary(cfg.Media.FFmpegBinary, "ffmpeg")
	checkBinary(cfg.Whisper.Binary, "whisper")

	stager := media.NewStager(cfg.Media.FFmpegBinary, runner, cfg.Media.SampleRate)
	transcriber := transcribe.NewTranscriber(transcribe.Options{
		Binary:         cfg.Whisper.Binary,
		ModelDir:       cfg.Whisper.ModelDir,
		DefaultModel:   cfg.Whisper.Model,
		Threads:        cfg.Whisper.Threads,
		Captions:       cfg.Whisper.Captions,
		SimpleTime:     cfg.Whisper.SimpleTime,
		AutoConvertWAV: cfg.Whisper.AutoConvertWAV,
		SampleRate:     cfg.Media.SampleRate,
	}, runner, stager)

	backends := summarize.NewRegistry()
	procMgr := process.NewManager()
	if err := tryInitOllama(cfg.Summarize.Ollama, backends, procMgr); err != nil {
		return nil, err
	}
	tryInitGemini(ctx, cfg.Summarize.Gemini, backends)

	if !backends.Has(cfg.Summarize.Backend) {
		log.Warn().Str("backend", cfg.Summarize.Backend).Strs("available", backends.List()).
			Msg("default summarization backend is not registered")
	}

	summarizer := summarize.New(backends, summarize.Options{
		DefaultBackend: cfg.Summarize.Backend,
		DefaultModel:   cfg.Summarize.Model,
	})

	p := pipeline.New(stager, transcriber, summarizer, pipeline.Config{
		OutputDir:  store.OutputDir(),
		SampleRate: cfg.Media.SampleRate,
		Docx:       cfg.Summarize.Docx,
	})

	bus := event.NewBus()
	jobs := job.NewManager(bus, cfg.Server.EventWakeInterval)
	runnerOpts := job.RunnerOptions{Remove: store.Remove}
	if opts.View != nil {
		runnerOpts.View = opts.View(store)
	}
	jobRunner := job.NewRunner(jobs, p, bus, runnerOpts)

	return &Services{
		Config:      cfg,
		Store:       store,
		Stager:      stager,
		Transcriber: transcriber,
		Backends:    backends,
		Summarizer:  summarizer,
		Pipeline:    p,
		Bus:         bus,
		Jobs:        jobs,
		Runner:      jobRunner,
		ProcMgr:     procMgr,
		stopLog:     event.LogJobs(bus),
	}, nil
}

// PipelineRequest fills a pipeline request with the configured defaults.
func (s *Services) PipelineRequest(videoPath string) pipeline.Request {
	return pipeline.Request{
		VideoPath:         videoPath,
		WhisperModel:      s.Config.Whisper.Model,
		Language:          s.Config.Whisper.Language,
		SummaryModel:      s.Config.Summarize.Model,
		MaxChunkChars:     s.Config.Summarize.MaxChunkChars,
		ExtraInstructions: s.Config.Summarize.ExtraInstructions,
	}
}

// StartDaemons launches managed helper processes, if any are configured.
func (s *Services) StartDaemons(ctx context.Context) error {
	if s.ProcMgr.Len() == 0 {
		return nil
	}
	return s.ProcMgr.StartAll(ctx)
}

// Shutdown stops managed daemons and drops the job log subscription. Running
// jobs are left alone; they are not persisted and cannot be cancelled.
func (s *Services) Shutdown(ctx context.Context) {
	s.ProcMgr.StopAll(ctx)
	if s.stopLog != nil {
		s.stopLog()
		s.stopLog = nil
	}
}

// Close waits for background jobs, then shuts down.
func (s *Services) Close(ctx context.Context) {
	s.Runner.Wait()
	s.Shutdown(ctx)
}

func tryInitOllama(cfg appconfig.OllamaConfig, registry *summarize.Registry, procMgr *process.Manager) error {
	backend, err := summarize.NewOllama(cfg.Host)
	if err != nil {
		return fmt.Errorf("ollama backend: %w", err)
	}
	registry.Register(backend)
	log.Debug().Str("host", cfg.Host).Msg("ollama backend registered")

	if !cfg.Manage {
		return nil
	}
	binary := cfg.Binary
	if binary == "" {
		binary = "ollama"
	}
	if _, err := exec.LookPath(binary); err != nil {
		log.Warn().Str("binary", binary).Msg("ollama not found in PATH, not managing it")
		return nil
	}
	procMgr.Register(backend.Daemon(binary))
	return nil
}

func tryInitGemini(ctx context.Context, cfg appconfig.GeminiConfig, registry *summarize.Registry) {
	if cfg.APIKey == "" {
		return
	}
	backend, err := summarize.NewGemini(ctx, cfg.APIKey)
	if err != nil {
		log.Warn().Err(err).Msg("gemini backend init failed")
		return
	}
	registry.Register(backend)
	log.Info().Msg("gemini backend registered")
}

func checkBinary(binary, what string) {
	if binary == "" {
		return
	}
	if _, err := exec.LookPath(binary); err != nil {
		log.Warn().Str("binary", binary).Msgf("%s not found in PATH", what)
	}
}
