package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/config"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/logging"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/store"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/usage"
)

const userAgent = "duniya-backend/0.1.0"

// Service defines the outcome delivery surface exposed to the lifecycle
// controller. Every terminal job state maps to exactly one call.
type Service interface {
	NotifyTopicsCompleted(ctx context.Context, job *store.Job, topics []store.Topic, counters usage.Counters) error
	NotifyArticleCompleted(ctx context.Context, job *store.Job, article *store.Article, counters usage.Counters) error
	NotifyJobFailed(ctx context.Context, job *store.Job, reason string) error
	Revalidate(ctx context.Context, trigger store.Trigger, status store.Status, kind store.Kind) error
}

// NewService builds the sink selected by webhooks.mode. The revalidation
// signal rides along in webhook mode and degrades to a noop otherwise.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	log := logging.NewComponentLogger(logger, "notify")
	base := strings.TrimRight(strings.TrimSpace(cfg.Webhooks.FrontendBaseURL), "/")

	if cfg.Webhooks.Mode != "webhook" || base == "" {
		return &storeService{logger: log}
	}

	timeout := time.Duration(cfg.Webhooks.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	revalidateTimeout := time.Duration(cfg.Webhooks.RevalidateTimeout) * time.Second
	if revalidateTimeout <= 0 {
		revalidateTimeout = 10 * time.Second
	}

	return &webhookService{
		baseURL:           base,
		secret:            cfg.Auth.SecretKey,
		client:            &http.Client{Timeout: timeout},
		revalidateClient:  &http.Client{Timeout: revalidateTimeout},
		revalidateEnabled: cfg.Webhooks.RevalidateEnabled,
		logger:            log,
	}
}

type usagePayload struct {
	PromptTokens       int64 `json:"prompt_tokens"`
	CompletionTokens   int64 `json:"completion_tokens"`
	TotalTokens        int64 `json:"total_tokens"`
	SuccessfulRequests int64 `json:"successful_requests"`
}

type topicPayload struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Sources   []string `json:"sources"`
	Published string   `json:"published,omitempty"`
}

type topicsPayload struct {
	JobID      int64          `json:"job_id"`
	CategoryID int64          `json:"category_id"`
	Trigger    string         `json:"trigger"`
	Status     string         `json:"status"`
	Topics     []topicPayload `json:"topics"`
	Usage      usagePayload   `json:"usage"`
	Error      string         `json:"error,omitempty"`
}

type articleBody struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Content     string   `json:"content"`
	ContentHTML string   `json:"content_html"`
	Tags        []string `json:"tags"`
	Sources     []string `json:"sources"`
	Status      string   `json:"status"`
	Accuracy    int      `json:"accuracy_score"`
	Reason      string   `json:"reason"`
	Feedback    string   `json:"feedback,omitempty"`
}

type articlePayload struct {
	JobID      int64        `json:"job_id"`
	CategoryID int64        `json:"category_id"`
	TopicID    int64        `json:"topic_id,omitempty"`
	UserID     string       `json:"user_id,omitempty"`
	Trigger    string       `json:"trigger"`
	Status     string       `json:"status"`
	Article    *articleBody `json:"article"`
	Usage      usagePayload `json:"usage"`
	Error      string       `json:"error,omitempty"`
}

type revalidatePayload struct {
	Trigger string `json:"trigger"`
	Status  string `json:"status"`
	Type    string `json:"type"`
}

type webhookService struct {
	baseURL           string
	secret            string
	client            *http.Client
	revalidateClient  *http.Client
	revalidateEnabled bool
	logger            *slog.Logger
}

func (w *webhookService) NotifyTopicsCompleted(ctx context.Context, job *store.Job, topics []store.Topic, counters usage.Counters) error {
	body := topicsPayload{
		JobID:      job.ID,
		CategoryID: job.CategoryID,
		Trigger:    string(job.Trigger),
		Status:     string(store.StatusCompleted),
		Topics:     make([]topicPayload, 0, len(topics)),
		Usage:      countersPayload(counters),
	}
	for _, topic := range topics {
		body.Topics = append(body.Topics, topicPayload{
			ID:        topic.ID,
			Title:     topic.Title,
			Summary:   topic.Summary,
			Sources:   topic.Sources,
			Published: topic.Published,
		})
	}
	return w.send(ctx, w.client, "/api/webhooks/topics", body)
}

func (w *webhookService) NotifyArticleCompleted(ctx context.Context, job *store.Job, article *store.Article, counters usage.Counters) error {
	body := articlePayload{
		JobID:      job.ID,
		CategoryID: job.CategoryID,
		TopicID:    article.TopicID,
		UserID:     article.UserID,
		Trigger:    string(job.Trigger),
		Status:     string(store.StatusCompleted),
		Usage:      countersPayload(counters),
		Article: &articleBody{
			Title:       article.Title,
			Summary:     article.Summary,
			Content:     article.Content,
			ContentHTML: renderHTML(article.Content),
			Tags:        article.Tags,
			Sources:     article.Sources,
			Status:      string(article.Status),
			Accuracy:    article.Accuracy,
			Reason:      article.Reasoning,
			Feedback:    article.Feedback,
		},
	}
	return w.send(ctx, w.client, "/api/webhooks/article", body)
}

func (w *webhookService) NotifyJobFailed(ctx context.Context, job *store.Job, reason string) error {
	path := "/api/webhooks/topics"
	var body any = topicsPayload{
		JobID:      job.ID,
		CategoryID: job.CategoryID,
		Trigger:    string(job.Trigger),
		Status:     string(store.StatusFailed),
		Topics:     []topicPayload{},
		Error:      reason,
	}
	if job.Kind == store.KindArticleGeneration {
		path = "/api/webhooks/article"
		body = articlePayload{
			JobID:      job.ID,
			CategoryID: job.CategoryID,
			Trigger:    string(job.Trigger),
			Status:     string(store.StatusFailed),
			Error:      reason,
		}
	}
	return w.send(ctx, w.client, path, body)
}

func (w *webhookService) Revalidate(ctx context.Context, trigger store.Trigger, status store.Status, kind store.Kind) error {
	if !w.revalidateEnabled {
		return nil
	}
	body := revalidatePayload{
		Trigger: string(trigger),
		Status:  string(status),
		Type:    string(kind),
	}
	if err := w.send(ctx, w.revalidateClient, "/api/webhooks/revalidate", body); err != nil {
		w.logger.Warn("revalidate signal failed", logging.Error(err))
		return err
	}
	return nil
}

func (w *webhookService) send(ctx context.Context, client *http.Client, path string, body any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.secret)

	resp, err := client.Do(req)
	if err != nil {
		w.logPayload(path, encoded, err)
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		w.logPayload(path, encoded, err)
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// logPayload records the undelivered body so an operator can replay it.
func (w *webhookService) logPayload(path string, encoded []byte, err error) {
	w.logger.Error("webhook delivery failed",
		logging.String("path", path),
		logging.String("payload", string(encoded)),
		logging.Error(err))
}

func countersPayload(counters usage.Counters) usagePayload {
	return usagePayload{
		PromptTokens:       counters.PromptTokens,
		CompletionTokens:   counters.CompletionTokens,
		TotalTokens:        counters.TotalTokens,
		SuccessfulRequests: counters.SuccessfulRequests,
	}
}

// storeService treats persistence as delivery and only records the outcome.
type storeService struct {
	logger *slog.Logger
}

func (s *storeService) NotifyTopicsCompleted(_ context.Context, job *store.Job, topics []store.Topic, counters usage.Counters) error {
	s.logger.Info("topic job completed",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int("topics", len(topics)),
		logging.Int64("total_tokens", counters.TotalTokens))
	return nil
}

func (s *storeService) NotifyArticleCompleted(_ context.Context, job *store.Job, article *store.Article, counters usage.Counters) error {
	s.logger.Info("article job completed",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("title", article.Title),
		logging.String("status", string(article.Status)),
		logging.Int64("total_tokens", counters.TotalTokens))
	return nil
}

func (s *storeService) NotifyJobFailed(_ context.Context, job *store.Job, reason string) error {
	s.logger.Warn("job failed",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldJobKind, string(job.Kind)),
		logging.String("reason", reason))
	return nil
}

func (s *storeService) Revalidate(context.Context, store.Trigger, store.Status, store.Kind) error {
	return nil
}
