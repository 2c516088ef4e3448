package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AndrewDonelson/slideshow-compositor/internal/models"
	"github.com/AndrewDonelson/slideshow-compositor/internal/worker"
)

func newComposeCommand(ctx *commandContext) *cobra.Command {
	var flags manifestFlags

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose one slideshow video and wait for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := flags.manifest()
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			job := &models.Job{RunID: uuid.NewString(), Status: models.StatusProcessing}
			processor := worker.NewProcessor(cfg, worker.Toolchain{}, nil, nil, nil, logger)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Composing %s (run %s)\n", manifest.MediaDir, job.RunID)
			start := time.Now()
			if err := processor.Process(runCtx, job, manifest); err != nil {
				if runCtx.Err() != nil {
					return context.Canceled
				}
				return fmt.Errorf("compose: %w", err)
			}

			fmt.Fprintf(out, "Wrote %s (%s) in %s\n",
				job.OutputPath,
				humanize.Bytes(uint64(job.OutputSize)),
				time.Since(start).Round(time.Second),
			)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
