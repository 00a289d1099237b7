package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/viperadnan-git/meeting-summary/internal/core/errdefs"
)

const (
	DefaultModel = "qwen3:30b-a3b"

	systemPrompt = "You are an assistant that reads a meeting transcript and produces concise meeting summary. Respond with valid Markdown format."
)

type Options struct {
	DefaultBackend string
	DefaultModel   string
}

type Request struct {
	Text  string
	Model string
	// MaxChunkChars bounds the characters sent per request. Zero or negative
	// sends the whole text at once.
	MaxChunkChars     int
	ExtraInstructions string
}

// Summarizer splits a transcript into chunks, asks a backend for one summary
// per chunk and stitches the results together.
type Summarizer struct {
	backends *Registry
	opts     Options
}

func New(backends *Registry, opts Options) *Summarizer {
	if opts.DefaultBackend == "" {
		opts.DefaultBackend = "ollama"
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = DefaultModel
	}
	return &Summarizer{backends: backends, opts: opts}
}

func (s *Summarizer) DefaultModel() string { return s.opts.DefaultModel }

func (s *Summarizer) Backends() []string { return s.backends.List() }

// Summarize returns the Markdown summary of req.Text. Chunks whose request
// fails or comes back empty are skipped; if none succeed the result is "".
func (s *Summarizer) Summarize(ctx context.Context, req Request) (string, error) {
	backend, model, err := s.resolve(req.Model)
	if err != nil {
		return "", err
	}

	chunks := SplitChunks(req.Text, req.MaxChunkChars)
	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		l := log.With().
			Str("backend", backend.Name()).
			Str("model", model).
			Int("chunk", i+1).
			Int("chunks", len(chunks)).
			Logger()
		if len(chunks) > 1 {
			l.Info().Int("chars", len([]rune(chunk))).Msg("summarizing chunk")
		}

		out, err := backend.Complete(ctx, model, BuildMessages(chunk, req.ExtraInstructions))
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			l.Warn().Err(err).Msg("chunk summary failed, skipping")
			continue
		}
		out = strings.TrimSpace(out)
		if out == "" {
			l.Warn().Msg("empty chunk summary, skipping")
			continue
		}
		summaries = append(summaries, out)
	}

	switch len(summaries) {
	case 0:
		log.Warn().Int("chunks", len(chunks)).Msg("no summary generated: all requests failed")
		return "", nil
	case 1:
		return summaries[0], nil
	}

	parts := make([]string, len(summaries))
	for i, sum := range summaries {
		parts[i] = fmt.Sprintf("### Segment %d\n\n%s", i+1, sum)
	}
	return strings.Join(parts, "\n\n"), nil
}

// resolve picks the backend for model. A "<backend>/" prefix selects a
// registered backend; anything else goes to the default one.
func (s *Summarizer) resolve(model string) (Backend, string, error) {
	if model == "" {
		model = s.opts.DefaultModel
	}
	name := s.opts.DefaultBackend
	if prefix, rest, ok := strings.Cut(model, "/"); ok && rest != "" && s.backends.Has(prefix) {
		name, model = prefix, rest
	}
	b, err := s.backends.Get(name)
	if err != nil {
		return nil, "", errdefs.Validation("Unknown summarization backend: %s", name)
	}
	return b, model, nil
}

// SplitChunks cuts text into consecutive slices of at most size characters.
func SplitChunks(text string, size int) []string {
	runes := []rune(text)
	if size <= 0 || size >= len(runes) {
		return []string{text}
	}
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// BuildMessages renders the prompt for a single chunk.
func BuildMessages(chunk, extra string) []Message {
	user := "Input transcript:\n" + chunk
	if extra = strings.TrimSpace(extra); extra != "" {
		user += "\n\nAdditional instructions:\n" + extra
	}
	return []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: user},
	}
}
