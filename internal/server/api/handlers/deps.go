package handlers

import (
	"context"
	"mime/multipart"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"
	"github.com/viperadnan-git/meeting-summary/internal/core/job"
	"github.com/viperadnan-git/meeting-summary/internal/core/storage"
	"github.com/viperadnan-git/meeting-summary/internal/core/summarize"
	"github.com/viperadnan-git/meeting-summary/internal/core/transcribe"
)

type Stager interface {
	Stage(ctx context.Context, inputPath, outputDir string, sampleRate int) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, req summarize.Request) (string, error)
	Backends() []string
}

// Defaults are applied to requests that leave a field empty.
type Defaults struct {
	SampleRate        int
	WhisperModel      string
	Language          string
	SummaryModel      string
	MaxChunkChars     int
	ExtraInstructions string
}

// Deps is everything the API handlers operate on.
type Deps struct {
	Store       *storage.Store
	Stager      Stager
	Transcriber Transcriber
	Summarizer  Summarizer
	Pipeline    job.Pipeline
	Jobs        *job.Manager
	Runner      *job.Runner
	Defaults    Defaults
}

func formValue(form *multipart.Form, keys ...string) string {
	for _, key := range keys {
		if v := form.Value[key]; len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return ""
}

// saveFormFile stores the first file of field in the upload directory.
func saveFormFile(store *storage.Store, form *multipart.Form, field string, allowed []string, missing string) (string, error) {
	files := form.File[field]
	if len(files) == 0 {
		return "", huma.Error400BadRequest(missing)
	}
	fh := files[0]
	if fh.Filename == "" {
		return "", huma.Error400BadRequest("Empty upload")
	}

	f, err := fh.Open()
	if err != nil {
		return "", huma.Error400BadRequest("Unreadable upload", err)
	}
	defer func() { _ = f.Close() }()

	path, err := store.SaveUpload(filepath.Base(fh.Filename), f, allowed)
	if err != nil {
		return "", statusError(err, "Upload failed: ")
	}
	return path, nil
}

func discardUpload(store *storage.Store, path string) {
	if err := store.Remove(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to cleanup uploaded file")
	}
}
