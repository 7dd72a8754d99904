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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pavel-fokin/pdf-toolbox/internal/logging"
	"github.com/pavel-fokin/pdf-toolbox/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pdf-toolbox",
		Short:        "Upload relay and ephemeral file store for the PDF tools site",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and background sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Run one eviction sweep and orphan collection, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sweep(cmd)
		},
	})

	return root
}

func setup() (*server.Config, *zap.Logger, *server.App, error) {
	cfg, err := server.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}

	app, err := server.Build(cfg, logger)
	if err != nil {
		logger.Sync()
		return nil, nil, nil, err
	}
	return cfg, logger, app, nil
}

func serve(ctx context.Context) error {
	cfg, logger, app, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer app.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go app.Files.RunSweeper(ctx, cfg.SweepInterval)

	srv := server.New(cfg, app, logger)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

func sweep(cmd *cobra.Command) error {
	_, logger, app, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer app.Close()

	deleted, err := app.Files.Sweep()
	if err != nil {
		return err
	}
	orphans, err := app.Files.CollectOrphans()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired files, removed %d orphaned blobs\n", deleted, orphans)
	return nil
}
