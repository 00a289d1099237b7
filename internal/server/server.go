package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/viperadnan-git/meeting-summary/internal/config"
	"github.com/viperadnan-git/meeting-summary/internal/core/setup"
	"github.com/viperadnan-git/meeting-summary/internal/server/api"
	"github.com/viperadnan-git/meeting-summary/internal/server/api/handlers"
	"github.com/viperadnan-git/meeting-summary/internal/server/web"
)

const (
	daemonWatchInterval = 30 * time.Second
	shutdownTimeout     = 10 * time.Second
)

// Deps adapts the wired services to what the API handlers need.
func Deps(svc *setup.Services) handlers.Deps {
	cfg := svc.Config
	return handlers.Deps{
		Store:       svc.Store,
		Stager:      svc.Stager,
		Transcriber: svc.Transcriber,
		Summarizer:  svc.Summarizer,
		Pipeline:    svc.Pipeline,
		Jobs:        svc.Jobs,
		Runner:      svc.Runner,
		Defaults: handlers.Defaults{
			SampleRate:        cfg.Media.SampleRate,
			WhisperModel:      cfg.Whisper.Model,
			Language:          cfg.Whisper.Language,
			SummaryModel:      cfg.Summarize.Model,
			MaxChunkChars:     cfg.Summarize.MaxChunkChars,
			ExtraInstructions: cfg.Summarize.ExtraInstructions,
		},
	}
}

// New builds the echo instance serving the API and the web UI.
func New(svc *setup.Services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request contexts end when shutdown starts, so open event streams
	// return instead of holding the server until the timeout.
	baseCtx, cancel := context.WithCancel(context.Background())
	e.Server.BaseContext = func(net.Listener) context.Context { return baseCtx }
	e.Server.RegisterOnShutdown(cancel)

	api.SetupRouter(e, api.RouterConfig{
		Deps:           Deps(svc),
		MaxUpload:      svc.Config.Server.MaxUpload,
		MaxUploadBytes: svc.Config.MaxUploadBytes(),
	})
	web.NewHandler().RegisterRoutes(e)
	return e
}

func Run(ctx context.Context, cfg *config.Config) error {
	svc, err := setup.Build(ctx, cfg, setup.Options{
		// Async results carry the same download links as the synchronous API.
		View: handlers.NewPipelineView,
	})
	if err != nil {
		return err
	}

	if err := svc.StartDaemons(ctx); err != nil {
		log.Warn().Err(err).Msg("process manager start (summaries may fail until ollama is reachable)")
	}

	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	go svc.ProcMgr.Watch(watchCtx, daemonWatchInterval)

	e := New(svc)
	errCh := make(chan error, 1)
	go func() {
		addr := cfg.Addr()
		log.Info().Str("addr", addr).Str("output", svc.Store.OutputDir()).Strs("backends", svc.Backends.List()).Msg("HTTP server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case <-quit:
	case <-ctx.Done():
	case err := <-errCh:
		runErr = fmt.Errorf("http server: %w", err)
	}

	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	watchCancel()
	svc.Shutdown(shutdownCtx)
	return runErr
}
