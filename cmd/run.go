package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"github.com/viperadnan-git/meeting-summary/internal/core/setup"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Extract audio, transcribe and summarize videos",
		ArgsUsage: "<video> [video...]",
		Flags: slices.Concat(
			[]cli.Flag{outputFlag()},
			whisperFlags(),
			summaryFlags(),
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			videos := cmd.Args().Slice()
			if len(videos) == 0 {
				return cli.Exit("at least one video path is required", 2)
			}
			for _, v := range videos {
				if _, err := os.Stat(v); err != nil {
					return cli.Exit("Video not found: "+v, 2)
				}
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
			for _, video := range videos {
				req := svc.PipelineRequest(video)
				applyRequestFlags(cmd, &req)
				req.RequireSummary = true

				res, err := svc.Pipeline.Run(ctx, req, consoleHooks(out))
				if err != nil {
					return fmt.Errorf("%s: %w", filepath.Base(video), err)
				}
				fmt.Fprintf(out, "  transcript: %s\n  summary:    %s\n", res.TranscriptPath, res.SummaryPath)
				if res.DocxPath != "" {
					fmt.Fprintf(out, "  document:   %s\n", res.DocxPath)
				}
			}

			dir, err := filepath.Abs(svc.Store.OutputDir())
			if err != nil {
				dir = svc.Store.OutputDir()
			}
			fmt.Fprintf(out, "Workflow finished. Outputs are in: %s\n", dir)
			return nil
		},
	}
}
