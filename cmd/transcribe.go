package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"
	"github.com/viperadnan-git/meeting-summary/internal/core/setup"
	"github.com/viperadnan-git/meeting-summary/internal/core/transcribe"
)

func transcribeCmd() *cli.Command {
	return &cli.Command{
		Name:      "transcribe",
		Usage:     "Transcribe audio files with whisper.cpp",
		ArgsUsage: "<audio> [audio...]",
		Flags:     slices.Concat([]cli.Flag{outputFlag()}, whisperFlags()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			inputs := cmd.Args().Slice()
			if len(inputs) == 0 {
				return cli.Exit("at least one audio path is required", 2)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			svc, err := setup.Build(ctx, cfg, setup.Options{})
			if err != nil {
				return err
			}
			defer svc.Close(context.Background())

			language := cmd.String("language")
			if language == "" {
				language = cfg.Whisper.Language
			}

			out := stdout(cmd)
			for _, in := range inputs {
				res, err := svc.Transcriber.Transcribe(ctx, transcribe.Request{
					AudioPath: in,
					OutputDir: svc.Store.OutputDir(),
					Model:     cmd.String("whisper-model"),
					Language:  language,
				})
				if err != nil {
					return fmt.Errorf("%s: %w", in, err)
				}
				fmt.Fprintln(out, res.TranscriptPath)
				if res.CaptionPath != "" {
					fmt.Fprintln(out, res.CaptionPath)
				}
			}
			return nil
		},
	}
}
