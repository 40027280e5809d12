package store

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus converts a raw string to a Status.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[status]; !ok {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return status, nil
}

// Terminal reports whether the status ends a processing pass.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Kind identifies the type of work a job performs.
type Kind string

const (
	KindTopicGeneration   Kind = "topic-generation"
	KindArticleGeneration Kind = "article-generation"
)

// ParseKind converts a raw string to a Kind.
func ParseKind(value string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(value)))
	switch kind {
	case KindTopicGeneration, KindArticleGeneration:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown job kind %q", value)
	}
}

// Trigger records what initiated a job.
type Trigger string

const (
	TriggerCron   Trigger = "cron"
	TriggerManual Trigger = "manual"
	TriggerRetry  Trigger = "retry"
)

// ParseTrigger converts a raw string to a Trigger.
func ParseTrigger(value string) (Trigger, error) {
	trigger := Trigger(strings.ToLower(strings.TrimSpace(value)))
	switch trigger {
	case TriggerCron, TriggerManual, TriggerRetry:
		return trigger, nil
	default:
		return "", fmt.Errorf("unknown trigger %q", value)
	}
}

// Job is one unit of queued pipeline work.
type Job struct {
	ID             int64
	Kind           Kind
	Status         Status
	Trigger        Trigger
	CategoryID     int64
	ErrorMessage   string
	TotalItems     int64
	CompletedItems int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TopicStatus tracks whether a topic has been picked up for an article yet.
type TopicStatus string

const (
	TopicPending   TopicStatus = "PENDING"
	TopicPublished TopicStatus = "PUBLISHED"
)

// Topic is a generated trending topic persisted after a successful topic job.
type Topic struct {
	ID         int64
	JobID      int64
	CategoryID int64
	Title      string
	Summary    string
	Sources    []string
	Published  string
	Status     TopicStatus
	CreatedAt  time.Time
}

// ArticleStatus is the editorial verdict recorded with an article.
type ArticleStatus string

const (
	ArticleApproved ArticleStatus = "APPROVED"
	ArticleRejected ArticleStatus = "REJECTED"
)

// Article is a drafted and reviewed article persisted after an article job.
type Article struct {
	ID         int64
	JobID      int64
	TopicID    int64
	CategoryID int64
	UserID     string
	Title      string
	Summary    string
	Content    string
	Tags       []string
	Sources    []string
	Status     ArticleStatus
	Accuracy   int
	Reasoning  string
	Feedback   string
	CreatedAt  time.Time
}

// UsageRecord captures per-job token accounting for one calendar day.
type UsageRecord struct {
	ID                 int64
	JobID              int64
	Trigger            Trigger
	Date               time.Time
	PromptTokens       int64
	CompletionTokens   int64
	TotalTokens        int64
	SuccessfulRequests int64
	CreatedAt          time.Time
}

// JobStats summarizes queue composition for health endpoints and the CLI.
type JobStats struct {
	Total    int64
	ByStatus map[Status]int64
}
