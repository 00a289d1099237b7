package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/viperadnan-git/meeting-summary/internal/core/errdefs"
	"github.com/viperadnan-git/meeting-summary/internal/core/process"
)

const whisperJSON = `{
  "result": {"language": "en"},
  "transcription": [
    {"offsets": {"from": 0, "to": 1234}, "text": " Hello there."},
    {"offsets": {"from": 61000, "to": 62500}, "text": " Second line"}
  ]
}`

type fakeWhisper struct {
	calls  [][]string
	output string
	err    error
}

func (f *fakeWhisper) Run(_ context.Context, name string, args ...string) (process.Result, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return process.Result{ExitCode: 2}, f.err
	}
	i := slices.Index(args, "-of")
	if err := os.WriteFile(args[i+1]+".json", []byte(f.output), 0o644); err != nil {
		return process.Result{}, err
	}
	return process.Result{}, nil
}

type fakeConverter struct{ called bool }

func (c *fakeConverter) ConvertToWAV(_ context.Context, audioPath, outputDir string, _ int) (string, error) {
	c.called = true
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(outputDir, "converted.wav")
	return out, os.WriteFile(out, []byte("RIFF"), 0o644)
}

func setup(t *testing.T, opts Options, runner process.Runner) (*Transcriber, string, string) {
	t.Helper()
	dir := t.TempDir()
	models := filepath.Join(dir, "models")
	if err := os.MkdirAll(models, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(models, "ggml-large-v3-turbo.bin"), []byte("m"), 0o644); err != nil {
		t.Fatal(err)
	}
	audio := filepath.Join(dir, "meeting.wav")
	if err := os.WriteFile(audio, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts.ModelDir = models
	return NewTranscriber(opts, runner, &fakeConverter{}), audio, filepath.Join(dir, "out")
}

func TestTranscribeWritesTranscriptAndCaptions(t *testing.T) {
	runner := &fakeWhisper{output: whisperJSON}
	tr, audio, out := setup(t, Options{Captions: true, Threads: 4}, runner)

	res, err := tr.Transcribe(context.Background(), Request{AudioPath: audio, OutputDir: out, Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if res.Text != "Hello there. Second line" {
		t.Fatalf("text = %q", res.Text)
	}
	if res.Cached {
		t.Fatal("first run must not be cached")
	}

	data, err := os.ReadFile(filepath.Join(out, "meeting.transcript.txt"))
	if err != nil || string(data) != res.Text {
		t.Fatalf("transcript file = %q, %v", data, err)
	}
	srt, err := os.ReadFile(res.CaptionPath)
	if err != nil {
		t.Fatalf("caption file: %v", err)
	}
	if want := FormatSRT(res.Segments, false); string(srt) != want {
		t.Fatalf("captions = %q, want %q", srt, want)
	}

	args := runner.calls[0]
	if args[0] != "whisper-cli" || !slices.Contains(args, "-oj") {
		t.Fatalf("unexpected command %v", args)
	}
	if i := slices.Index(args, "-l"); i < 0 || args[i+1] != "en" {
		t.Fatalf("language hint missing: %v", args)
	}
	if i := slices.Index(args, "-t"); i < 0 || args[i+1] != "4" {
		t.Fatalf("threads missing: %v", args)
	}
	if i := slices.Index(args, "-m"); filepath.Base(args[i+1]) != "ggml-large-v3-turbo.bin" {
		t.Fatalf("model = %v", args[i+1])
	}
}

func TestTranscribeAutoLanguageOmitsHint(t *testing.T) {
	runner := &fakeWhisper{output: whisperJSON}
	tr, audio, out := setup(t, Options{}, runner)

	res, err := tr.Transcribe(context.Background(), Request{AudioPath: audio, OutputDir: out, Language: "auto"})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if slices.Contains(runner.calls[0], "-l") {
		t.Fatalf("unexpected language flag: %v", runner.calls[0])
	}
	if res.CaptionPath != "" {
		t.Fatal("captions disabled, no caption file expected")
	}
}

func TestTranscribeReusesExistingTranscript(t *testing.T) {
	runner := &fakeWhisper{output: whisperJSON}
	tr, audio, out := setup(t, Options{Captions: true}, runner)
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	cached := filepath.Join(out, "meeting.transcript.txt")
	if err := os.WriteFile(cached, []byte("previous run"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := tr.Transcribe(context.Background(), Request{AudioPath: audio, OutputDir: out, Model: "missing"})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if !res.Cached || res.Text != "previous run" {
		t.Fatalf("result = %+v", res)
	}
	if len(runner.calls) != 0 {
		t.Fatal("model must not run on cache hit")
	}
}

func TestTranscribeKeepsExistingCaptions(t *testing.T) {
	runner := &fakeWhisper{output: whisperJSON}
	tr, audio, out := setup(t, Options{Captions: true}, runner)
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	srt := filepath.Join(out, "meeting.srt")
	if err := os.WriteFile(srt, []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := tr.Transcribe(context.Background(), Request{AudioPath: audio, OutputDir: out})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	data, _ := os.ReadFile(srt)
	if string(data) != "keep me" || res.CaptionPath != srt {
		t.Fatalf("caption overwritten: %q (%q)", data, res.CaptionPath)
	}
}

func TestTranscribeRejectsExtension(t *testing.T) {
	runner := &fakeWhisper{output: whisperJSON}
	tr, _, out := setup(t, Options{}, runner)
	bad := filepath.Join(filepath.Dir(out), "slides.pdf")
	if err := os.WriteFile(bad, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := tr.Transcribe(context.Background(), Request{AudioPath: bad, OutputDir: out})
	var verr *errdefs.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatal("no output expected")
	}
}

func TestTranscribeMissingModel(t *testing.T) {
	runner := &fakeWhisper{output: whisperJSON}
	tr, audio, out := setup(t, Options{}, runner)

	_, err := tr.Transcribe(context.Background(), Request{AudioPath: audio, OutputDir: out, Model: "tiny"})
	var merr *errdefs.ModelLoadError
	if !errors.As(err, &merr) || merr.Model != "tiny" {
		t.Fatalf("error = %v, want ModelLoadError for tiny", err)
	}
	if len(runner.calls) != 0 {
		t.Fatal("whisper must not run without a model")
	}
}

func TestTranscribeInferenceFailure(t *testing.T) {
	toolErr := &errdefs.ExternalToolError{Command: "whisper-cli", ExitCode: 2}
	tr, audio, out := setup(t, Options{}, &fakeWhisper{err: toolErr})

	_, err := tr.Transcribe(context.Background(), Request{AudioPath: audio, OutputDir: out})
	var ierr *errdefs.InferenceError
	if !errors.As(err, &ierr) {
		t.Fatalf("error = %v, want InferenceError", err)
	}
	if !errors.Is(err, toolErr) {
		t.Fatal("tool error should be wrapped")
	}
	if _, statErr := os.Stat(filepath.Join(out, "meeting.transcript.txt")); !os.IsNotExist(statErr) {
		t.Fatal("no transcript expected after failure")
	}
}

func TestTranscribeAutoConvert(t *testing.T) {
	runner := &fakeWhisper{output: whisperJSON}
	tr, audio, out := setup(t, Options{AutoConvertWAV: true}, runner)
	conv := tr.converter.(*fakeConverter)

	res, err := tr.Transcribe(context.Background(), Request{AudioPath: audio, OutputDir: out})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if !conv.called {
		t.Fatal("converter not called")
	}
	if filepath.Base(res.TranscriptPath) != "converted.transcript.txt" {
		t.Fatalf("transcript path = %q", res.TranscriptPath)
	}
}
