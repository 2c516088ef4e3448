package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AndrewDonelson/slideshow-compositor/internal/database"
	"github.com/AndrewDonelson/slideshow-compositor/internal/handlers"
	"github.com/AndrewDonelson/slideshow-compositor/internal/logging"
	"github.com/AndrewDonelson/slideshow-compositor/internal/services"
	"github.com/AndrewDonelson/slideshow-compositor/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the job API and worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			if err := database.InitDB(cfg.Paths.DBPath); err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}
			defer database.Close()

			jobRepo := database.NewJobRepository(database.DB)
			stageRepo := database.NewStageLogRepository(database.DB)
			broadcaster := services.NewProgressBroadcaster(logger)

			processor := worker.NewProcessor(cfg, worker.Toolchain{}, jobRepo, stageRepo, broadcaster, logger)
			jobWorker := worker.NewWorker(jobRepo, broadcaster, processor,
				time.Duration(cfg.Server.PollIntervalSeconds)*time.Second, logger)
			go jobWorker.Start()

			if cfg.IsProduction() {
				gin.SetMode(gin.ReleaseMode)
			}
			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:           handlers.NewRouter(jobRepo, stageRepo, broadcaster, logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("server listening",
					logging.Int("port", cfg.Server.Port),
					logging.String("environment", cfg.Server.Environment),
					logging.String("config", ctx.configPath),
				)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case <-sigCtx.Done():
				logger.Info("shutting down")
			case err, ok := <-serveErr:
				if ok {
					jobWorker.Stop()
					return fmt.Errorf("serve: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http shutdown incomplete", logging.Error(err))
			}
			jobWorker.Stop()
			logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides server.port)")
	return cmd
}
