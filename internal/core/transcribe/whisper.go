package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/viperadnan-git/meeting-summary/internal/core/errdefs"
	"github.com/viperadnan-git/meeting-summary/internal/core/media"
	"github.com/viperadnan-git/meeting-summary/internal/core/process"
)

const (
	TranscriptSuffix = ".transcript.txt"
	CaptionSuffix    = ".srt"
)

var modelAliases = map[string]string{
	"turbo": "large-v3-turbo",
}

// Converter re-encodes audio into the mono WAV layout whisper prefers.
type Converter interface {
	ConvertToWAV(ctx context.Context, audioPath, outputDir string, sampleRate int) (string, error)
}

type Options struct {
	Binary         string
	ModelDir       string
	DefaultModel   string
	Threads        int
	Captions       bool
	SimpleTime     bool
	AutoConvertWAV bool
	SampleRate     int
}

type Request struct {
	AudioPath string
	OutputDir string
	Model     string
	Language  string
}

type Result struct {
	Text           string
	TranscriptPath string
	// CaptionPath is empty when no caption file exists for the audio.
	CaptionPath string
	Segments    []Segment
	Cached      bool
}

// Transcriber runs the whisper.cpp CLI over staged audio and persists the
// transcript next to it. Like media staging, outputs are cached by name.
type Transcriber struct {
	opts      Options
	runner    process.Runner
	converter Converter
}

func NewTranscriber(opts Options, runner process.Runner, converter Converter) *Transcriber {
	if opts.Binary == "" {
		opts.Binary = "whisper-cli"
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = "turbo"
	}
	return &Transcriber{opts: opts, runner: runner, converter: converter}
}

func (t *Transcriber) DefaultModel() string { return t.opts.DefaultModel }

func (t *Transcriber) Transcribe(ctx context.Context, req Request) (Result, error) {
	if err := media.RequireExt(req.AudioPath, media.AudioExtensions, "audio"); err != nil {
		return Result{}, err
	}
	if _, err := os.Stat(req.AudioPath); err != nil {
		return Result{}, errdefs.Validation("Audio not found: %s", req.AudioPath)
	}

	audio := req.AudioPath
	if t.opts.AutoConvertWAV && t.converter != nil {
		converted, err := t.converter.ConvertToWAV(ctx, audio, req.OutputDir, t.opts.SampleRate)
		if err != nil {
			return Result{}, err
		}
		audio = converted
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}

	stem := media.Stem(audio)
	res := Result{TranscriptPath: filepath.Join(req.OutputDir, stem+TranscriptSuffix)}
	captionPath := filepath.Join(req.OutputDir, stem+CaptionSuffix)

	if data, err := os.ReadFile(res.TranscriptPath); err == nil {
		log.Info().Str("path", res.TranscriptPath).Msg("reusing existing transcript")
		res.Text = string(data)
		res.Cached = true
		if fileExists(captionPath) {
			res.CaptionPath = captionPath
		}
		return res, nil
	}

	model := req.Model
	if model == "" {
		model = t.opts.DefaultModel
	}
	modelPath, err := t.ResolveModel(model)
	if err != nil {
		return Result{}, err
	}

	segments, err := t.infer(ctx, audio, modelPath, req.Language)
	if err != nil {
		return Result{}, err
	}
	res.Segments = segments
	res.Text = joinText(segments)

	if err := os.WriteFile(res.TranscriptPath, []byte(res.Text), 0o644); err != nil {
		return Result{}, fmt.Errorf("write transcript: %w", err)
	}
	log.Info().Str("path", res.TranscriptPath).Msg("transcript saved")

	if t.opts.Captions && len(segments) > 0 {
		if fileExists(captionPath) {
			log.Info().Str("path", captionPath).Msg("caption file already exists")
		} else if err := os.WriteFile(captionPath, []byte(FormatSRT(segments, t.opts.SimpleTime)), 0o644); err != nil {
			return Result{}, fmt.Errorf("write captions: %w", err)
		}
	}
	if fileExists(captionPath) {
		res.CaptionPath = captionPath
	}
	return res, nil
}

// ResolveModel maps a model name to a ggml model file. A name that already
// points at an existing file is used as-is.
func (t *Transcriber) ResolveModel(name string) (string, error) {
	if fileExists(name) {
		return name, nil
	}
	if strings.ContainsRune(name, filepath.Separator) || strings.HasSuffix(name, ".bin") {
		return "", &errdefs.ModelLoadError{Model: name, Err: os.ErrNotExist}
	}

	file := name
	if alias, ok := modelAliases[name]; ok {
		file = alias
	}
	path := filepath.Join(t.opts.ModelDir, "ggml-"+file+".bin")
	if !fileExists(path) {
		return "", &errdefs.ModelLoadError{Model: name, Err: fmt.Errorf("%s: %w", path, os.ErrNotExist)}
	}
	return path, nil
}

type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func (t *Transcriber) infer(ctx context.Context, audio, modelPath, language string) ([]Segment, error) {
	tmp, err := os.MkdirTemp("", "whisper-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	prefix := filepath.Join(tmp, "out")
	args := []string{"-m", modelPath, "-f", audio, "-oj", "-of", prefix}
	if language != "" && language != "auto" {
		args = append(args, "-l", language)
	}
	if t.opts.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(t.opts.Threads))
	}

	log.Info().Str("model", modelPath).Str("audio", audio).Msg("transcribing")
	if _, err := t.runner.Run(ctx, t.opts.Binary, args...); err != nil {
		return nil, &errdefs.InferenceError{Stage: "transcription", Err: err}
	}

	data, err := os.ReadFile(prefix + ".json")
	if err != nil {
		return nil, &errdefs.InferenceError{Stage: "transcription", Err: err}
	}
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &errdefs.InferenceError{Stage: "transcription", Err: fmt.Errorf("decode output: %w", err)}
	}

	segments := make([]Segment, 0, len(out.Transcription))
	for _, s := range out.Transcription {
		segments = append(segments, Segment{
			Start: float64(s.Offsets.From) / 1000,
			End:   float64(s.Offsets.To) / 1000,
			Text:  s.Text,
		})
	}
	return segments, nil
}

func joinText(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return strings.TrimSpace(b.String())
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
