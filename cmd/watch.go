package cmd

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"github.com/viperadnan-git/meeting-summary/internal/core/pipeline"
	"github.com/viperadnan-git/meeting-summary/internal/core/setup"
	"github.com/viperadnan-git/meeting-summary/internal/watcher"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Run the full workflow for every video dropped into a directory",
		ArgsUsage: "<dir>",
		Flags: slices.Concat(
			[]cli.Flag{
				outputFlag(),
				&cli.IntFlag{
					Name:  "max-concurrent",
					Usage: "Videos processed at the same time",
				},
				&cli.DurationFlag{
					Name:  "settle-delay",
					Usage: "Wait after a file appears before processing it",
				},
			},
			whisperFlags(),
			summaryFlags(),
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				return cli.Exit("a directory to watch is required", 2)
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return cli.Exit("Not a directory: "+dir, 2)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.IsSet("docx") {
				cfg.Summarize.Docx = cmd.Bool("docx")
			}
			if cmd.IsSet("max-concurrent") {
				cfg.Watch.MaxConcurrent = int(cmd.Int("max-concurrent"))
			}
			if cmd.IsSet("settle-delay") {
				cfg.Watch.SettleDelay = cmd.Duration("settle-delay")
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := setup.Build(ctx, cfg, setup.Options{})
			if err != nil {
				return err
			}
			defer svc.Close(context.Background())

			if err := svc.StartDaemons(ctx); err != nil {
				log.Warn().Err(err).Msg("process manager start")
			}

			w, err := watcher.New(dir, func(ctx context.Context, path string) error {
				req := svc.PipelineRequest(path)
				applyRequestFlags(cmd, &req)
				req.RequireSummary = true
				_, err := svc.Pipeline.Run(ctx, req, pipeline.Hooks{})
				return err
			}, watcher.Options{
				MaxConcurrent: cfg.Watch.MaxConcurrent,
				SettleDelay:   cfg.Watch.SettleDelay,
			})
			if err != nil {
				return err
			}

			return w.Run(ctx)
		},
	}
}
