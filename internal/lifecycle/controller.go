package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/logging"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/normalize"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/notify"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/pipeline"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/queue"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/services"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/store"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/usage"
)

// Fixed failure reasons the frontend matches on. Do not reword.
const (
	missingTopicsReason  = "Missing topics in response from AI Agents"
	missingArticleReason = "Missing article in response from AI Agents"
)

// Runner is the crew execution surface the controller drives.
type Runner interface {
	RunTopics(ctx context.Context, task queue.Task) (pipeline.Result, error)
	RunArticle(ctx context.Context, task queue.Task) (pipeline.Result, error)
}

// StoreFactory opens a store connection scoped to a single job run.
type StoreFactory func(ctx context.Context) (*store.Store, error)

// Controller settles one job per Run call. It is safe to share across
// sequential runs; each run opens and closes its own store connection.
type Controller struct {
	openStore  StoreFactory
	closeStore func(*store.Store) error
	runner     Runner
	notifier   notify.Service
	logger     *slog.Logger
	now        func() time.Time
}

func NewController(openStore StoreFactory, runner Runner, notifier notify.Service, logger *slog.Logger) *Controller {
	return &Controller{
		openStore:  openStore,
		closeStore: (*store.Store).Close,
		runner:     runner,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, "lifecycle"),
		now:        time.Now,
	}
}

// Run drives a task to a terminal state. The returned error reports why the
// run failed; by then the job row already carries the failed status, so
// callers only log it. A task whose job is already terminal is a no-op.
func (c *Controller) Run(ctx context.Context, task queue.Task) (err error) {
	ctx = services.WithJobID(ctx, task.JobID)
	ctx = services.WithJobKind(ctx, string(task.Kind))
	ctx = services.WithRequestID(ctx, task.CorrelationID)
	log := logging.WithContext(ctx, c.logger)

	st, err := c.openStore(ctx)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "lifecycle", "open-store", "open store for job run", err)
	}
	defer func() {
		if closeErr := c.closeStore(st); closeErr != nil {
			log.Warn("close store after job run", logging.Error(closeErr))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("internal error: %v", r)
			log.Error("job run panicked", logging.Any("panic", r))
			c.settleFailure(ctx, st, task, reason)
			err = services.Wrap(services.ErrTransient, "lifecycle", "run", reason, nil)
		}
	}()

	if err := st.MarkProcessing(ctx, task.JobID); err != nil {
		if errors.Is(err, store.ErrNoTransition) {
			log.Warn("job not runnable, dropping task", logging.Int64(logging.FieldJobID, task.JobID))
			return nil
		}
		return services.Wrap(nil, "lifecycle", "mark-processing", "mark job processing", err)
	}
	log.Info("job processing", logging.String(logging.FieldTrigger, string(task.Trigger)))

	// The frontend revalidates article pages as soon as generation starts.
	if task.Kind == store.KindArticleGeneration {
		_ = c.notifier.Revalidate(ctx, task.Trigger, store.StatusProcessing, task.Kind)
	}

	switch task.Kind {
	case store.KindTopicGeneration:
		return c.runTopics(ctx, st, task, log)
	case store.KindArticleGeneration:
		return c.runArticle(ctx, st, task, log)
	default:
		reason := fmt.Sprintf("unknown job kind %q", task.Kind)
		c.settleFailure(ctx, st, task, reason)
		return services.Wrap(services.ErrValidation, "lifecycle", "dispatch", reason, nil)
	}
}

func (c *Controller) runTopics(ctx context.Context, st *store.Store, task queue.Task, log *slog.Logger) error {
	result, err := c.runner.RunTopics(ctx, task)
	if err != nil {
		c.settleFailure(ctx, st, task, err.Error())
		return err
	}
	c.recordUsage(ctx, st, task, result.Usage, log)

	list := normalize.Topics(result.Payload())
	if list.Empty() {
		log.Warn("topic crew produced no usable topics",
			logging.String("snippet", normalize.Snippet(result.Raw)))
		c.settleFailure(ctx, st, task, missingTopicsReason)
		return services.Wrap(services.ErrMissingData, "lifecycle", "topics", missingTopicsReason, nil)
	}

	topics := make([]store.Topic, 0, len(list.Items))
	for _, item := range list.Items {
		topics = append(topics, store.Topic{
			JobID:      task.JobID,
			CategoryID: task.CategoryID,
			Title:      item.Title,
			Summary:    item.Summary,
			Sources:    item.Sources,
			Published:  item.Published,
		})
	}
	written, err := st.CreateTopics(ctx, topics)
	if err != nil {
		c.settleFailure(ctx, st, task, err.Error())
		return services.Wrap(nil, "lifecycle", "persist-topics", "persist generated topics", err)
	}
	if err := st.MarkCompleted(ctx, task.JobID, written); err != nil {
		return services.Wrap(nil, "lifecycle", "mark-completed", "mark topic job completed", err)
	}
	log.Info("topic job completed", logging.Int64("topics", written))

	job := c.loadJob(ctx, st, task, store.StatusCompleted)
	persisted, err := st.TopicsByJob(ctx, task.JobID)
	if err != nil {
		log.Warn("load topics for notification failed", logging.Error(err))
	}
	if err := c.notifier.NotifyTopicsCompleted(ctx, job, persisted, result.Usage); err != nil {
		log.Warn("topic notification failed", logging.Error(err))
	}
	_ = c.notifier.Revalidate(ctx, task.Trigger, store.StatusCompleted, task.Kind)
	return nil
}

func (c *Controller) runArticle(ctx context.Context, st *store.Store, task queue.Task, log *slog.Logger) error {
	result, err := c.runner.RunArticle(ctx, task)
	if err != nil {
		c.settleFailure(ctx, st, task, err.Error())
		return err
	}
	c.recordUsage(ctx, st, task, result.Usage, log)

	review := normalize.Article(result.Payload())
	if review.Empty() {
		log.Warn("article crew produced no usable article",
			logging.String("snippet", normalize.Snippet(result.Raw)))
		c.settleFailure(ctx, st, task, missingArticleReason)
		return services.Wrap(services.ErrMissingData, "lifecycle", "article", missingArticleReason, nil)
	}

	status := store.ArticleRejected
	if review.Approved() {
		status = store.ArticleApproved
	}
	article := store.Article{
		JobID:      task.JobID,
		CategoryID: task.CategoryID,
		UserID:     task.UserID,
		Title:      review.Article.Title,
		Summary:    review.Article.Summary,
		Content:    review.Article.Content,
		Tags:       review.Article.Tags,
		Sources:    review.Article.Sources,
		Status:     status,
		Accuracy:   review.AccuracyScore,
		Reasoning:  review.Reason,
		Feedback:   review.Feedback,
	}
	if task.Topic != nil {
		article.TopicID = task.Topic.ID
	}

	saved, err := st.CreateArticle(ctx, article)
	if err != nil {
		c.settleFailure(ctx, st, task, err.Error())
		return services.Wrap(nil, "lifecycle", "persist-article", "persist generated article", err)
	}
	if err := st.MarkArticleCompleted(ctx, task.JobID); err != nil {
		return services.Wrap(nil, "lifecycle", "mark-completed", "mark article job completed", err)
	}
	log.Info("article job completed",
		logging.String("title", saved.Title),
		logging.String("status", string(saved.Status)))

	job := c.loadJob(ctx, st, task, store.StatusCompleted)
	if err := c.notifier.NotifyArticleCompleted(ctx, job, saved, result.Usage); err != nil {
		log.Warn("article notification failed", logging.Error(err))
	}
	_ = c.notifier.Revalidate(ctx, task.Trigger, store.StatusCompleted, task.Kind)
	return nil
}

// recordUsage persists token accounting when the crew consumed anything.
// Accounting failures never change the job outcome.
func (c *Controller) recordUsage(ctx context.Context, st *store.Store, task queue.Task, counters usage.Counters, log *slog.Logger) {
	if !counters.Billable() {
		return
	}
	record := usage.Record(counters, task.JobID, task.Trigger, c.now())
	if err := st.RecordUsage(ctx, record); err != nil {
		log.Warn("usage record failed", logging.Error(err))
	}
}

// settleFailure marks the job failed and notifies once. Both steps are
// best-effort; the run's error travels back to the worker separately.
func (c *Controller) settleFailure(ctx context.Context, st *store.Store, task queue.Task, reason string) {
	log := logging.WithContext(ctx, c.logger)
	if err := st.MarkFailed(ctx, task.JobID, reason); err != nil && !errors.Is(err, store.ErrNoTransition) {
		log.Error("mark failed did not apply", logging.Error(err))
	}
	job := c.loadJob(ctx, st, task, store.StatusFailed)
	job.ErrorMessage = reason
	if err := c.notifier.NotifyJobFailed(ctx, job, reason); err != nil {
		log.Warn("failure notification failed", logging.Error(err))
	}
	_ = c.notifier.Revalidate(ctx, task.Trigger, store.StatusFailed, task.Kind)
}

// loadJob fetches the settled row, falling back to a synthetic one built from
// the task so notification payloads always carry the job identifiers.
func (c *Controller) loadJob(ctx context.Context, st *store.Store, task queue.Task, status store.Status) *store.Job {
	job, err := st.GetJob(ctx, task.JobID)
	if err == nil && job != nil {
		return job
	}
	return &store.Job{
		ID:         task.JobID,
		Kind:       task.Kind,
		Status:     status,
		Trigger:    task.Trigger,
		CategoryID: task.CategoryID,
	}
}
