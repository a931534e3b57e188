package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"match-engine/internal/app"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching API and the live match feed",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	addr, err := app.ListenAddr(cfg.App.HTTPPort)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := app.NewContainer(ctx, cfg, logger, app.Options{Migrate: true})
	if err != nil {
		logger.Error("building container", zap.Error(err))
		return err
	}

	bootstrap, cleanup, err := app.Bootstrap(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Warn("cleanup error", zap.Error(err))
		}
	}()

	go c.Recorder.RunPruner(ctx, c.Tuning.PruneInterval())

	errCh := make(chan error, 1)
	go func() {
		errCh <- bootstrap.Fiber.Listen(addr)
	}()
	logger.Info("matchd started",
		zap.String("addr", addr),
		zap.String("version", version),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("auth", c.JWT != nil),
	)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := bootstrap.Fiber.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Warn("shutdown error", zap.Error(err))
		}
		logger.Info("matchd stopped")
	}
	return nil
}
