package cmd

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v3"
	"github.com/viperadnan-git/meeting-summary/internal/core/pipeline"
)

func whisperFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "whisper-model",
			Aliases: []string{"w"},
			Usage:   "Whisper model name or path to a ggml model file",
		},
		&cli.StringFlag{
			Name:    "language",
			Aliases: []string{"l"},
			Usage:   "Spoken language (auto-detected when empty)",
		},
	}
}

func summaryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "model",
			Aliases: []string{"m", "ollama-model"},
			Usage:   "Summarization model, optionally prefixed with a backend (gemini/gemini-2.5-flash)",
		},
		&cli.IntFlag{
			Name:    "max-chunk-chars",
			Aliases: []string{"context-length"},
			Usage:   "Characters per summarization request (0 sends the whole transcript)",
		},
		&cli.StringFlag{
			Name:    "extra-instructions",
			Aliases: []string{"p", "extra-prompt"},
			Usage:   "Additional instructions appended to the summary prompt",
		},
		&cli.BoolFlag{
			Name:  "docx",
			Usage: "Also write the summary as a Word document",
		},
	}
}

// applyRequestFlags overrides the configured defaults with any flag the user
// set explicitly.
func applyRequestFlags(cmd *cli.Command, req *pipeline.Request) {
	if v := cmd.String("whisper-model"); v != "" {
		req.WhisperModel = v
	}
	if v := cmd.String("language"); v != "" {
		req.Language = v
	}
	if v := cmd.String("model"); v != "" {
		req.SummaryModel = v
	}
	if cmd.IsSet("max-chunk-chars") {
		req.MaxChunkChars = int(cmd.Int("max-chunk-chars"))
	}
	if v := cmd.String("extra-instructions"); v != "" {
		req.ExtraInstructions = v
	}
}

func consoleHooks(w io.Writer) pipeline.Hooks {
	return pipeline.Hooks{
		OnStep: func(text string) { fmt.Fprintf(w, "> %s\n", text) },
		OnOK:   func(text string) { fmt.Fprintf(w, "  ok %s\n", text) },
	}
}
