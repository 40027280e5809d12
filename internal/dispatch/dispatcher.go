// Package dispatch turns validated generation requests into queued jobs and
// broker task envelopes. It owns the write path into the queue; workers own
// everything after.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/logging"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/queue"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/services"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/store"
)

// CategorySpec names one category inside a fan-out request.
type CategorySpec struct {
	ID            int64
	Name          string
	ExcludeTitles []string
}

// TopicsRequest is the cron fan-out: shared limits applied per category.
type TopicsRequest struct {
	MinTopics  int
	MaxTopics  int
	TimeWindow string
	Categories []CategorySpec
}

// TopicRequest is a single topic-generation job for one category.
type TopicRequest struct {
	CategoryID    int64
	CategoryName  string
	MinTopics     int
	MaxTopics     int
	TimeWindow    string
	ExcludeTitles []string
	Prompt        string
	Trigger       store.Trigger
}

// ArticleRequest drafts an article from an already-generated topic.
type ArticleRequest struct {
	CategoryID int64
	TopicID    int64
	Title      string
	Summary    string
	Sources    []string
	Trigger    store.Trigger
}

// ManualArticleRequest drafts an article from an operator-written prompt.
type ManualArticleRequest struct {
	CategoryID int64
	Prompt     string
	UserID     string
}

// Ack reports one enqueued job back to the caller.
type Ack struct {
	JobID      int64 `json:"job_id"`
	CategoryID int64 `json:"category_id"`
}

// Dispatcher creates job rows and pushes their task envelopes. Jobs whose
// envelope could not be pushed stay queued so a later pass can re-enqueue.
type Dispatcher struct {
	store  *store.Store
	broker queue.Broker
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func New(st *store.Store, broker queue.Broker, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  st,
		broker: broker,
		logger: logging.NewComponentLogger(logger, "dispatch"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// DispatchTopics fans a shared request out to one job per category. The
// returned acks cover every job enqueued before the first failure.
func (d *Dispatcher) DispatchTopics(ctx context.Context, req TopicsRequest) ([]Ack, error) {
	if len(req.Categories) == 0 {
		return nil, services.Wrap(services.ErrValidation, "dispatch", "topics", "no categories in request", nil)
	}
	acks := make([]Ack, 0, len(req.Categories))
	for _, category := range req.Categories {
		ack, err := d.DispatchTopic(ctx, TopicRequest{
			CategoryID:    category.ID,
			CategoryName:  category.Name,
			MinTopics:     req.MinTopics,
			MaxTopics:     req.MaxTopics,
			TimeWindow:    req.TimeWindow,
			ExcludeTitles: category.ExcludeTitles,
			Trigger:       store.TriggerCron,
		})
		if err != nil {
			return acks, err
		}
		acks = append(acks, ack)
	}
	return acks, nil
}

// DispatchTopic creates and enqueues one topic-generation job.
func (d *Dispatcher) DispatchTopic(ctx context.Context, req TopicRequest) (Ack, error) {
	if req.CategoryID <= 0 {
		return Ack{}, services.Wrap(services.ErrValidation, "dispatch", "topic", "category id is required", nil)
	}
	if strings.TrimSpace(req.CategoryName) == "" && strings.TrimSpace(req.Prompt) == "" {
		return Ack{}, services.Wrap(services.ErrValidation, "dispatch", "topic", "category name or prompt is required", nil)
	}
	trigger := req.Trigger
	if trigger == "" {
		trigger = store.TriggerManual
	}

	job, err := d.store.CreateJob(ctx, store.KindTopicGeneration, trigger, req.CategoryID)
	if err != nil {
		return Ack{}, services.Wrap(nil, "dispatch", "topic", "create topic job", err)
	}

	task := queue.Task{
		Kind:          store.KindTopicGeneration,
		JobID:         job.ID,
		Trigger:       trigger,
		CategoryID:    req.CategoryID,
		CategoryName:  req.CategoryName,
		MinTopics:     req.MinTopics,
		MaxTopics:     req.MaxTopics,
		TimeWindow:    req.TimeWindow,
		ExcludeTitles: req.ExcludeTitles,
		Prompt:        req.Prompt,
		CorrelationID: d.newID(),
		EnqueuedAt:    d.now().UTC(),
	}
	if err := d.push(ctx, task); err != nil {
		return Ack{}, err
	}
	return Ack{JobID: job.ID, CategoryID: req.CategoryID}, nil
}

// RetryTopic re-runs a failed topic job on its original identifier. The
// request re-supplies the generation parameters the job row does not store.
func (d *Dispatcher) RetryTopic(ctx context.Context, jobID int64, req TopicRequest) (Ack, error) {
	job, err := d.store.GetJob(ctx, jobID)
	if err != nil {
		return Ack{}, services.Wrap(nil, "dispatch", "retry", "load job for retry", err)
	}
	if job == nil {
		return Ack{}, services.Wrap(services.ErrNotFound, "dispatch", "retry", "unknown job", nil)
	}
	if job.Kind != store.KindTopicGeneration {
		return Ack{}, services.Wrap(services.ErrValidation, "dispatch", "retry", "job is not a topic job", nil)
	}

	job, err = d.store.ResetForRetry(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNoTransition) {
			return Ack{}, services.Wrap(services.ErrValidation, "dispatch", "retry", "only failed jobs can be retried", nil)
		}
		return Ack{}, services.Wrap(nil, "dispatch", "retry", "reset job for retry", err)
	}

	task := queue.Task{
		Kind:          store.KindTopicGeneration,
		JobID:         job.ID,
		Trigger:       store.TriggerRetry,
		CategoryID:    job.CategoryID,
		CategoryName:  req.CategoryName,
		MinTopics:     req.MinTopics,
		MaxTopics:     req.MaxTopics,
		TimeWindow:    req.TimeWindow,
		ExcludeTitles: req.ExcludeTitles,
		Prompt:        req.Prompt,
		CorrelationID: d.newID(),
		EnqueuedAt:    d.now().UTC(),
	}
	if err := d.push(ctx, task); err != nil {
		return Ack{}, err
	}
	return Ack{JobID: job.ID, CategoryID: job.CategoryID}, nil
}

// DispatchArticle creates and enqueues an article job drafted from a topic.
func (d *Dispatcher) DispatchArticle(ctx context.Context, req ArticleRequest) (Ack, error) {
	if req.CategoryID <= 0 {
		return Ack{}, services.Wrap(services.ErrValidation, "dispatch", "article", "category id is required", nil)
	}
	if strings.TrimSpace(req.Title) == "" {
		return Ack{}, services.Wrap(services.ErrValidation, "dispatch", "article", "topic title is required", nil)
	}
	trigger := req.Trigger
	if trigger == "" {
		trigger = store.TriggerCron
	}

	job, err := d.store.CreateJob(ctx, store.KindArticleGeneration, trigger, req.CategoryID)
	if err != nil {
		return Ack{}, services.Wrap(nil, "dispatch", "article", "create article job", err)
	}

	task := queue.Task{
		Kind:       store.KindArticleGeneration,
		JobID:      job.ID,
		Trigger:    trigger,
		CategoryID: req.CategoryID,
		Topic: &queue.TopicRef{
			ID:      req.TopicID,
			Title:   req.Title,
			Summary: req.Summary,
			Sources: req.Sources,
		},
		CorrelationID: d.newID(),
		EnqueuedAt:    d.now().UTC(),
	}
	if err := d.push(ctx, task); err != nil {
		return Ack{}, err
	}
	return Ack{JobID: job.ID, CategoryID: req.CategoryID}, nil
}

// DispatchManualArticle creates and enqueues a prompt-driven article job.
func (d *Dispatcher) DispatchManualArticle(ctx context.Context, req ManualArticleRequest) (Ack, error) {
	if req.CategoryID <= 0 {
		return Ack{}, services.Wrap(services.ErrValidation, "dispatch", "manual-article", "category id is required", nil)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return Ack{}, services.Wrap(services.ErrValidation, "dispatch", "manual-article", "prompt is required", nil)
	}

	job, err := d.store.CreateJob(ctx, store.KindArticleGeneration, store.TriggerManual, req.CategoryID)
	if err != nil {
		return Ack{}, services.Wrap(nil, "dispatch", "manual-article", "create article job", err)
	}

	task := queue.Task{
		Kind:          store.KindArticleGeneration,
		JobID:         job.ID,
		Trigger:       store.TriggerManual,
		CategoryID:    req.CategoryID,
		Prompt:        req.Prompt,
		UserID:        req.UserID,
		CorrelationID: d.newID(),
		EnqueuedAt:    d.now().UTC(),
	}
	if err := d.push(ctx, task); err != nil {
		return Ack{}, err
	}
	return Ack{JobID: job.ID, CategoryID: req.CategoryID}, nil
}

// push enqueues the envelope. On failure the job row stays queued so the
// request can be repeated without losing the identifier.
func (d *Dispatcher) push(ctx context.Context, task queue.Task) error {
	if err := d.broker.Push(ctx, task); err != nil {
		d.logger.Error("enqueue failed, job left queued",
			logging.Int64(logging.FieldJobID, task.JobID),
			logging.String(logging.FieldJobKind, string(task.Kind)),
			logging.Error(err))
		return services.Wrap(services.ErrExternalService, "dispatch", "enqueue", "push task to broker", err)
	}
	d.logger.Info("job enqueued",
		logging.Int64(logging.FieldJobID, task.JobID),
		logging.String(logging.FieldJobKind, string(task.Kind)),
		logging.String(logging.FieldTrigger, string(task.Trigger)))
	return nil
}
