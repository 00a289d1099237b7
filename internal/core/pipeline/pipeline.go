package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/viperadnan-git/meeting-summary/internal/core/errdefs"
	"github.com/viperadnan-git/meeting-summary/internal/core/media"
	"github.com/viperadnan-git/meeting-summary/internal/core/summarize"
	"github.com/viperadnan-git/meeting-summary/internal/core/transcribe"
)

const (
	SummarySuffix = ".summary.md"
	DocxSuffix    = ".summary.docx"
)

type Stager interface {
	Stage(ctx context.Context, inputPath, outputDir string, sampleRate int) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, req summarize.Request) (string, error)
}

type Config struct {
	OutputDir  string
	SampleRate int
	// Docx also renders the summary as a Word document.
	Docx bool
}

type Request struct {
	VideoPath         string
	WhisperModel      string
	Language          string
	SummaryModel      string
	MaxChunkChars     int
	ExtraInstructions string
	// RequireSummary turns an empty summary into an EmptyResultError instead
	// of a result without one.
	RequireSummary bool
}

type Result struct {
	AudioPath      string `json:"-"`
	TranscriptPath string `json:"-"`
	CaptionPath    string `json:"-"`
	SummaryPath    string `json:"-"`
	DocxPath       string `json:"-"`
	Transcript     string `json:"transcript"`
	Summary        string `json:"summary"`
}

// AudioID is the handle clients use to fetch artifacts derived from the audio.
func (r *Result) AudioID() string {
	return filepath.Base(r.AudioPath)
}

// Hooks receive progress notifications. Either may be nil.
type Hooks struct {
	OnStep func(text string)
	OnOK   func(text string)
}

func (h Hooks) step(text string) {
	if h.OnStep != nil {
		h.OnStep(text)
	}
}

func (h Hooks) ok(text string) {
	if h.OnOK != nil {
		h.OnOK(text)
	}
}

// Pipeline runs video -> audio -> transcript -> summary.
type Pipeline struct {
	stager      Stager
	transcriber Transcriber
	summarizer  Summarizer
	cfg         Config
}

func New(stager Stager, transcriber Transcriber, summarizer Summarizer, cfg Config) *Pipeline {
	return &Pipeline{
		stager:      stager,
		transcriber: transcriber,
		summarizer:  summarizer,
		cfg:         cfg,
	}
}

func (p *Pipeline) OutputDir() string { return p.cfg.OutputDir }

// Run executes the stages in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context, req Request, hooks Hooks) (*Result, error) {
	l := log.With().Str("video", req.VideoPath).Logger()
	res := &Result{}

	hooks.step("Extracting audio...")
	l.Info().Str("stage", "extract").Msg("pipeline stage started")
	audio, err := p.stager.Stage(ctx, req.VideoPath, p.cfg.OutputDir, p.cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	res.AudioPath = audio
	hooks.ok("Audio ready: " + filepath.Base(audio))

	whisperModel := req.WhisperModel
	if whisperModel == "" {
		whisperModel = defaultModel(p.transcriber)
	}
	hooks.step(fmt.Sprintf("Transcribing with Whisper model %q...", whisperModel))
	l.Info().Str("stage", "transcribe").Str("model", whisperModel).Msg("pipeline stage started")
	tr, err := p.transcriber.Transcribe(ctx, transcribe.Request{
		AudioPath: audio,
		OutputDir: p.cfg.OutputDir,
		Model:     req.WhisperModel,
		Language:  req.Language,
	})
	if err != nil {
		return nil, err
	}
	res.Transcript = tr.Text
	res.TranscriptPath = tr.TranscriptPath
	res.CaptionPath = tr.CaptionPath
	hooks.ok("Transcription completed")

	summaryModel := req.SummaryModel
	if summaryModel == "" {
		summaryModel = defaultModel(p.summarizer)
	}
	hooks.step(fmt.Sprintf("Generating summary with model %q...", summaryModel))
	l.Info().Str("stage", "summarize").Str("model", summaryModel).Msg("pipeline stage started")
	summary, err := p.summarizer.Summarize(ctx, summarize.Request{
		Text:              tr.Text,
		Model:             req.SummaryModel,
		MaxChunkChars:     req.MaxChunkChars,
		ExtraInstructions: req.ExtraInstructions,
	})
	if err != nil {
		return nil, err
	}
	if summary == "" {
		if req.RequireSummary {
			return nil, &errdefs.EmptyResultError{Msg: "Summary generation returned empty result"}
		}
		l.Warn().Msg("no summary produced")
		return res, nil
	}
	res.Summary = summary

	if err := p.writeSummary(res); err != nil {
		return nil, err
	}
	hooks.ok("Summary completed")
	l.Info().Str("audio_id", res.AudioID()).Msg("pipeline finished")
	return res, nil
}

func (p *Pipeline) writeSummary(res *Result) error {
	stem := media.Stem(res.AudioPath)
	res.SummaryPath = filepath.Join(p.cfg.OutputDir, stem+SummarySuffix)
	if err := os.WriteFile(res.SummaryPath, []byte(res.Summary), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if !p.cfg.Docx {
		return nil
	}
	res.DocxPath = filepath.Join(p.cfg.OutputDir, stem+DocxSuffix)
	if err := summarize.WriteDocx(stem, res.Summary, res.DocxPath); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func defaultModel(v any) string {
	if d, ok := v.(interface{ DefaultModel() string }); ok {
		return d.DefaultModel()
	}
	return "default"
}
