package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/store"
)

// TopicRef carries the source topic an article job is drafted from.
type TopicRef struct {
	ID      int64    `json:"id,omitempty"`
	Title   string   `json:"title"`
	Summary string   `json:"summary,omitempty"`
	Sources []string `json:"sources,omitempty"`
}

// Task is the envelope pushed onto the broker for one job execution.
type Task struct {
	Kind          store.Kind    `json:"kind"`
	JobID         int64         `json:"job_id"`
	Trigger       store.Trigger `json:"trigger"`
	CategoryID    int64         `json:"category_id"`
	CategoryName  string        `json:"category_name,omitempty"`
	MinTopics     int           `json:"min_topics,omitempty"`
	MaxTopics     int           `json:"max_topics,omitempty"`
	TimeWindow    string        `json:"time_window,omitempty"`
	ExcludeTitles []string      `json:"exclude_titles,omitempty"`
	Prompt        string        `json:"prompt,omitempty"`
	Topic         *TopicRef     `json:"topic,omitempty"`
	UserID        string        `json:"user_id,omitempty"`
	CorrelationID string        `json:"correlation_id,omitempty"`
	EnqueuedAt    time.Time     `json:"enqueued_at"`
}

// Validate checks that the envelope is executable.
func (t Task) Validate() error {
	switch t.Kind {
	case store.KindTopicGeneration, store.KindArticleGeneration:
	default:
		return fmt.Errorf("unknown task kind %q", t.Kind)
	}
	if t.JobID <= 0 {
		return fmt.Errorf("task missing job id")
	}
	if t.CategoryID <= 0 {
		return fmt.Errorf("task missing category id")
	}
	if t.Kind == store.KindArticleGeneration {
		if t.Topic == nil && strings.TrimSpace(t.Prompt) == "" {
			return fmt.Errorf("article task requires a topic or a prompt")
		}
		if t.Topic != nil && strings.TrimSpace(t.Topic.Title) == "" {
			return fmt.Errorf("article task topic missing title")
		}
	}
	return nil
}

// Encode serializes the task for the broker.
func (t Task) Encode() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	return data, nil
}

// DecodeTask parses and validates a broker payload.
func DecodeTask(data []byte) (Task, error) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return Task{}, fmt.Errorf("unmarshal task: %w", err)
	}
	if err := task.Validate(); err != nil {
		return Task{}, err
	}
	return task, nil
}
