package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/viperadnan-git/meeting-summary/internal/core/media"
)

// Handler processes one newly created video file.
type Handler func(ctx context.Context, path string) error

type Options struct {
	MaxConcurrent int
	// SettleDelay is how long to wait after a create event before the file
	// is assumed to be fully written.
	SettleDelay time.Duration
}

// Watcher runs a Handler for every video file created in a directory.
type Watcher struct {
	dir     string
	handler Handler
	opts    Options
	fsw     *fsnotify.Watcher
	sem     chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending map[string]bool
}

func New(dir string, handler Handler, opts Options) (*Watcher, error) {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	return &Watcher{
		dir:     dir,
		handler: handler,
		opts:    opts,
		fsw:     fsw,
		sem:     make(chan struct{}, opts.MaxConcurrent),
		pending: make(map[string]bool),
	}, nil
}

// Run blocks until ctx is cancelled, then waits for in-flight handlers and
// closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	log.Info().Str("dir", w.dir).Int("max_concurrent", w.opts.MaxConcurrent).Msg("watching for new videos")
	defer func() {
		w.wg.Wait()
		_ = w.fsw.Close()
		log.Info().Str("dir", w.dir).Msg("watcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !ev.Has(fsnotify.Create) {
				continue
			}
			if !media.IsVideo(ev.Name) {
				log.Debug().Str("path", ev.Name).Msg("ignoring non-video file")
				continue
			}
			w.dispatch(ctx, ev.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			log.Error().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, path string) {
	w.mu.Lock()
	if w.pending[path] {
		w.mu.Unlock()
		return
	}
	w.pending[path] = true
	w.mu.Unlock()

	log.Info().Str("path", path).Msg("new video detected")

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.pending, path)
			w.mu.Unlock()
		}()

		select {
		case <-time.After(w.opts.SettleDelay):
		case <-ctx.Done():
			return
		}

		select {
		case w.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-w.sem }()

		if err := w.handler(ctx, path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("failed to process video")
		}
	}()
}
