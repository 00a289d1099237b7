package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github.com/viperadnan-git/meeting-summary/internal/server/api/handlers"
)

type RouterConfig struct {
	Deps handlers.Deps
	// MaxUpload is the request body cap in echo's size notation ("2G").
	MaxUpload      string
	MaxUploadBytes int64
}

func SetupRouter(e *echo.Echo, cfg RouterConfig) huma.API {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))
	if cfg.MaxUpload != "" {
		e.Use(echomw.BodyLimit(cfg.MaxUpload))
	}
	e.Use(requestLogger())

	deps := cfg.Deps

	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Summarizer, deps.Jobs)
	e.GET("/health", healthHandler.Health)

	group := e.Group("/api")
	handlers.InitErrors()
	config := huma.DefaultConfig("Meeting Summary API", "1.0.0")
	config.Servers = []*huma.Server{{URL: "/api"}}
	config.Info.Description = "Turn meeting recordings into transcripts and Markdown summaries"

	api := humaecho.NewWithGroup(e, group, config)

	// Plain echo routes: file downloads and the mixed-content transcribe call.
	downloadsHandler := handlers.NewDownloadsHandler(deps.Store)
	group.GET("/download/audio/:id", downloadsHandler.Audio)
	group.GET("/download/:kind/:id", downloadsHandler.Artifact)

	transcribeHandler := handlers.NewTranscribeHandler(deps)
	group.POST("/transcribe", transcribeHandler.Transcribe)
	group.POST("/audio-to-transcript", transcribeHandler.Transcribe)

	pipelineHandler := handlers.NewPipelineHandler(deps)
	huma.Register(api, huma.Operation{
		OperationID:     "stage-audio",
		Method:          http.MethodPost,
		Path:            "/stage-audio",
		Summary:         "Upload a video and extract its audio",
		Tags:            []string{"Media"},
		MaxBodyBytes:    cfg.MaxUploadBytes,
		BodyReadTimeout: -1,
	}, pipelineHandler.StageAudio)

	huma.Register(api, huma.Operation{
		OperationID:     "video-to-audio",
		Method:          http.MethodPost,
		Path:            "/video-to-audio",
		Summary:         "Upload a video and extract its audio",
		Tags:            []string{"Media"},
		Deprecated:      true,
		MaxBodyBytes:    cfg.MaxUploadBytes,
		BodyReadTimeout: -1,
	}, pipelineHandler.StageAudio)

	summarizeHandler := handlers.NewSummarizeHandler(deps)
	huma.Register(api, huma.Operation{
		OperationID: "summarize",
		Method:      http.MethodPost,
		Path:        "/summarize",
		Summary:     "Summarize a transcript",
		Tags:        []string{"Summary"},
	}, summarizeHandler.Summarize)

	huma.Register(api, huma.Operation{
		OperationID:     "pipeline-run",
		Method:          http.MethodPost,
		Path:            "/pipeline",
		Summary:         "Run video to summary synchronously",
		Tags:            []string{"Pipeline"},
		MaxBodyBytes:    cfg.MaxUploadBytes,
		BodyReadTimeout: -1,
	}, pipelineHandler.Run)

	huma.Register(api, huma.Operation{
		OperationID:     "pipeline-start",
		Method:          http.MethodPost,
		Path:            "/pipeline/start",
		Summary:         "Start a pipeline job",
		Tags:            []string{"Pipeline"},
		MaxBodyBytes:    cfg.MaxUploadBytes,
		BodyReadTimeout: -1,
	}, pipelineHandler.Start)

	huma.Register(api, huma.Operation{
		OperationID: "pipeline-events",
		Method:      http.MethodGet,
		Path:        "/pipeline/events/{job_id}",
		Summary:     "Stream job progress (server-sent events)",
		Tags:        []string{"Pipeline"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Event stream, one JSON event per data frame",
				Content: map[string]*huma.MediaType{
					"text/event-stream": {Schema: &huma.Schema{Type: huma.TypeString}},
				},
			},
		},
	}, pipelineHandler.Events)

	huma.Register(api, huma.Operation{
		OperationID: "pipeline-result",
		Method:      http.MethodGet,
		Path:        "/pipeline/result/{job_id}",
		Summary:     "Get job outcome",
		Tags:        []string{"Pipeline"},
	}, pipelineHandler.Result)

	return api
}

func requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v echomw.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
