package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/api"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/dispatch"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/logging"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/queue"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/store"
)

func newServeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configFlag)
		},
	}
}

func runServe(cmdCtx context.Context, configPath string) error {
	ctx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// One API process per data directory; workers scale separately.
	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "duniyad.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another duniyad serve instance is already running")
	}
	defer func() { _ = lock.Unlock() }()

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	broker, err := queue.NewRedisBroker(cfg)
	if err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer broker.Close()

	dispatcher := dispatch.New(st, broker, logger)
	server := api.NewServer(cfg, st, broker, dispatcher, logger)
	if err := server.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	server.Stop()
	logger.Info("api server stopped")
	return nil
}
