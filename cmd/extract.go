package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/viperadnan-git/meeting-summary/internal/core/setup"
)

func extractCmd() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract mono WAV audio from videos",
		ArgsUsage: "<video> [video...]",
		Flags: []cli.Flag{
			outputFlag(),
			&cli.IntFlag{
				Name:  "sample-rate",
				Usage: "Output sample rate in Hz",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			inputs := cmd.Args().Slice()
			if len(inputs) == 0 {
				return cli.Exit("at least one video path is required", 2)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.IsSet("sample-rate") {
				cfg.Media.SampleRate = int(cmd.Int("sample-rate"))
			}

			svc, err := setup.Build(ctx, cfg, setup.Options{})
			if err != nil {
				return err
			}
			defer svc.Close(context.Background())

			out := stdout(cmd)
			for _, in := range inputs {
				audio, err := svc.Stager.Stage(ctx, in, svc.Store.OutputDir(), cfg.Media.SampleRate)
				if err != nil {
					return fmt.Errorf("%s: %w", in, err)
				}
				fmt.Fprintln(out, audio)
			}
			return nil
		},
	}
}
