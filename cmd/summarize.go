package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"github.com/viperadnan-git/meeting-summary/internal/core/errdefs"
	"github.com/viperadnan-git/meeting-summary/internal/core/media"
	"github.com/viperadnan-git/meeting-summary/internal/core/pipeline"
	"github.com/viperadnan-git/meeting-summary/internal/core/setup"
	"github.com/viperadnan-git/meeting-summary/internal/core/summarize"
)

func summarizeCmd() *cli.Command {
	return &cli.Command{
		Name:      "summarize",
		Usage:     "Summarize existing transcript files",
		ArgsUsage: "<transcript> [transcript...]",
		Flags:     slices.Concat([]cli.Flag{outputFlag()}, summaryFlags()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			inputs := cmd.Args().Slice()
			if len(inputs) == 0 {
				return cli.Exit("at least one transcript path is required", 2)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.IsSet("docx") {
				cfg.Summarize.Docx = cmd.Bool("docx")
			}

			svc, err := setup.Build(ctx, cfg, setup.Options{})
			if err != nil {
				return err
			}
			defer svc.Close(context.Background())

			if err := svc.StartDaemons(ctx); err != nil {
				log.Warn().Err(err).Msg("process manager start")
			}

			out := stdout(cmd)
			for _, in := range inputs {
				req := svc.PipelineRequest("")
				applyRequestFlags(cmd, &req)

				path, err := summarizeFile(ctx, svc, in, req)
				if err != nil {
					return fmt.Errorf("%s: %w", in, err)
				}
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}
}

// summarizeFile writes <stem>.summary.md (and the docx, if enabled) for one
// transcript into the output directory.
func summarizeFile(ctx context.Context, svc *setup.Services, transcriptPath string, req pipeline.Request) (string, error) {
	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errdefs.Validation("Transcript cannot be empty")
	}

	summary, err := svc.Summarizer.Summarize(ctx, summarize.Request{
		Text:              string(data),
		Model:             req.SummaryModel,
		MaxChunkChars:     req.MaxChunkChars,
		ExtraInstructions: req.ExtraInstructions,
	})
	if err != nil {
		return "", err
	}
	if summary == "" {
		return "", &errdefs.EmptyResultError{Msg: "Summary generation returned empty result"}
	}

	stem := media.Stem(transcriptPath)
	dir := svc.Store.OutputDir()
	summaryPath := filepath.Join(dir, stem+pipeline.SummarySuffix)
	if err := os.WriteFile(summaryPath, []byte(summary), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	if svc.Config.Summarize.Docx {
		if err := summarize.WriteDocx(stem, summary, filepath.Join(dir, stem+pipeline.DocxSuffix)); err != nil {
			return "", fmt.Errorf("write docx: %w", err)
		}
	}
	return summaryPath, nil
}
