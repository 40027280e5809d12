package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/lifecycle"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/llm"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/logging"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/notify"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/pipeline"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/queue"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/search"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/store"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/worker"
)

func newWorkerCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a generation worker",
		Long:  "Run a worker that consumes queued jobs. Run more worker processes to scale out.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), *configFlag)
		},
	}
}

func runWorker(cmdCtx context.Context, configPath string) error {
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

	broker, err := queue.NewRedisBroker(cfg)
	if err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer broker.Close()

	runner := pipeline.NewRunner(
		llm.New(cfg.LLM),
		search.New(cfg.Search),
		search.NewExtractor(time.Duration(cfg.Search.TimeoutSeconds)*time.Second),
		cfg,
		logger,
	)
	notifier := notify.NewService(cfg, logger)
	openStore := func(context.Context) (*store.Store, error) {
		return store.Open(cfg)
	}
	controller := lifecycle.NewController(openStore, runner, notifier, logger)

	return worker.New(broker, controller, cfg, logger).Run(ctx)
}
