// Package worker consumes the task queue and drives the job lifecycle. Each
// process runs one task at a time; scale out by running more processes.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/config"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/logging"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/queue"
)

// TaskRunner settles one decoded task. The lifecycle controller satisfies it.
type TaskRunner interface {
	Run(ctx context.Context, task queue.Task) error
}

// Worker pops tasks from the broker until its context is cancelled.
type Worker struct {
	broker     queue.Broker
	runner     TaskRunner
	jobTimeout time.Duration
	logger     *slog.Logger
	sleep      func(time.Duration)
}

// popErrorBackoff paces the loop when the broker itself is failing, so a
// Redis outage does not turn into a hot spin.
const popErrorBackoff = 2 * time.Second

func New(broker queue.Broker, runner TaskRunner, cfg *config.Config, logger *slog.Logger) *Worker {
	timeout := time.Duration(cfg.Pipeline.JobTimeoutMinutes) * time.Minute
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &Worker{
		broker:     broker,
		runner:     runner,
		jobTimeout: timeout,
		logger:     logging.NewComponentLogger(logger, "worker"),
		sleep:      time.Sleep,
	}
}

// WithSleeper overrides the broker-error pause. Test hook.
func (w *Worker) WithSleeper(sleep func(time.Duration)) *Worker {
	if sleep != nil {
		w.sleep = sleep
	}
	return w
}

// Run consumes tasks until ctx is cancelled. Malformed payloads go to the
// dead-letter list; task failures are logged (the job row already records
// them) and never stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", logging.Duration("job_timeout", w.jobTimeout))
	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("worker stopping")
			return nil
		}

		payload, err := w.broker.Pop(ctx)
		if errors.Is(err, queue.ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("worker stopping")
				return nil
			}
			w.logger.Error("broker pop failed", logging.Error(err))
			w.sleep(popErrorBackoff)
			continue
		}

		task, err := queue.DecodeTask(payload)
		if err != nil {
			w.logger.Error("discarding malformed task",
				logging.Error(err),
				logging.Int("payload_bytes", len(payload)))
			if deadErr := w.broker.PushDead(ctx, payload); deadErr != nil {
				w.logger.Error("dead-letter push failed", logging.Error(deadErr))
			}
			continue
		}

		w.process(ctx, task)
	}
}

func (w *Worker) process(ctx context.Context, task queue.Task) {
	runCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	log := w.logger.With(
		logging.Int64(logging.FieldJobID, task.JobID),
		logging.String(logging.FieldJobKind, string(task.Kind)))
	log.Info("task picked up", logging.String(logging.FieldTrigger, string(task.Trigger)))

	if err := w.runner.Run(runCtx, task); err != nil {
		log.Error("task failed", logging.Error(err))
		return
	}
	log.Info("task finished")
}
