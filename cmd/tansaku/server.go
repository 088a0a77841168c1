package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/server"
	"github.com/hyperjump/tansaku/internal/watcher"
)

var watchDirs []string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	Long: `Starts the HTTP API. Report inbox directories from the config (watch.directories)
and --watch are indexed on startup and kept in sync while the server runs.`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringSliceVar(&watchDirs, "watch", nil, "additional report inbox directory to keep indexed (repeatable)")
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, resolvedConfigPath, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || debugFlag),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize components", zap.Error(err))
		return err
	}
	defer components.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if dirs := append(cfg.Watch.Directories, watchDirs...); len(dirs) > 0 {
		inbox := watcher.New(dirs, components.Indexer,
			watcher.WithLogger(logger),
			watcher.WithDebounce(cfg.Watch.Debounce),
			watcher.WithRecursive(cfg.Watch.RecursiveOrDefault()),
		)
		if err := inbox.Start(ctx); err != nil {
			logger.Error("failed to start watcher", zap.Error(err))
			return err
		}
		defer inbox.Stop()
		n := inbox.Sync(ctx)
		logger.Info("report inbox synced", zap.Strings("directories", inbox.Roots()), zap.Int("indexed", n))
	}

	srv := server.NewServer(
		components.Pipeline,
		components.Indexer,
		components.Storage,
		&cfg.Server,
		components.Status,
		logger,
	)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
			components.SaveVectorIndex()
			return err
		}
	}

	logger.Info("shutting down")
	stop()
	components.SaveVectorIndex()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
