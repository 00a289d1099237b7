package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/viperadnan-git/meeting-summary/internal/core/summarize"
)

type SummarizeHandler struct {
	deps Deps
}

func NewSummarizeHandler(deps Deps) *SummarizeHandler {
	return &SummarizeHandler{deps: deps}
}

type SummarizeInput struct {
	Body struct {
		Transcript        string `json:"transcript,omitempty" doc:"Transcript text to summarize"`
		Model             string `json:"model,omitempty" doc:"Model, optionally prefixed with a backend (gemini/gemini-2.5-flash)"`
		OllamaModel       string `json:"ollama_model,omitempty" doc:"Alias of model"`
		MaxChunkChars     *int   `json:"max_chunk_chars,omitempty" minimum:"0" doc:"Characters per request; 0 sends the whole transcript"`
		ContextLength     *int   `json:"context_length,omitempty" minimum:"0" doc:"Alias of max_chunk_chars"`
		ExtraInstructions string `json:"extra_instructions,omitempty" doc:"Appended to the prompt"`
		ExtraPrompt       string `json:"extra_prompt,omitempty" doc:"Alias of extra_instructions"`
	}
}

type SummarizeBody struct {
	Summary string `json:"summary" doc:"Markdown summary"`
}

type SummarizeOutput struct {
	Body SummarizeBody
}

func (h *SummarizeHandler) Summarize(ctx context.Context, input *SummarizeInput) (*SummarizeOutput, error) {
	in := input.Body
	text := strings.TrimSpace(in.Transcript)
	if text == "" {
		return nil, huma.Error422UnprocessableEntity("Transcript cannot be empty")
	}

	d := h.deps.Defaults
	req := summarize.Request{
		Text:              text,
		Model:             firstNonEmpty(in.Model, in.OllamaModel, d.SummaryModel),
		MaxChunkChars:     d.MaxChunkChars,
		ExtraInstructions: firstNonEmpty(in.ExtraInstructions, in.ExtraPrompt, d.ExtraInstructions),
	}
	switch {
	case in.MaxChunkChars != nil:
		req.MaxChunkChars = *in.MaxChunkChars
	case in.ContextLength != nil:
		req.MaxChunkChars = *in.ContextLength
	}

	summary, err := h.deps.Summarizer.Summarize(ctx, req)
	if err != nil {
		return nil, statusError(err, "Summary generation failed: ")
	}
	if summary == "" {
		return nil, huma.NewError(http.StatusBadGateway, "Empty summary")
	}
	return &SummarizeOutput{Body: SummarizeBody{Summary: summary}}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
