package usage

import (
	"fmt"
	"time"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/services"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/store"
)

// Counters accumulates token usage across pipeline stages.
type Counters struct {
	PromptTokens       int64
	CompletionTokens   int64
	TotalTokens        int64
	SuccessfulRequests int64
}

// Add records one successful model call.
func (c *Counters) Add(prompt, completion int64) {
	c.PromptTokens += prompt
	c.CompletionTokens += completion
	c.TotalTokens += prompt + completion
	c.SuccessfulRequests++
}

// Merge folds another set of counters into this one.
func (c *Counters) Merge(other Counters) {
	c.PromptTokens += other.PromptTokens
	c.CompletionTokens += other.CompletionTokens
	c.TotalTokens += other.TotalTokens
	c.SuccessfulRequests += other.SuccessfulRequests
}

// Billable reports whether the pass consumed any tokens. Zero-usage passes are
// not persisted.
func (c Counters) Billable() bool {
	return c.TotalTokens > 0
}

var requiredFields = []string{
	"prompt_tokens",
	"completion_tokens",
	"total_tokens",
	"successful_requests",
}

// Parse validates an untyped metrics payload, the shape carried by webhook
// bodies and replayed notification logs. In-process accounting builds
// Counters directly through Add; Parse guards the boundary where counters
// arrive as decoded JSON. Every required counter must be present; a missing
// counter is a validation error. Extra fields are ignored.
func Parse(payload map[string]any) (Counters, error) {
	var counters Counters
	values := make(map[string]int64, len(requiredFields))
	for _, field := range requiredFields {
		raw, ok := payload[field]
		if !ok {
			return Counters{}, services.Wrap(services.ErrValidation, "usage", "parse",
				fmt.Sprintf("missing required counter %q", field), nil)
		}
		value, ok := toInt64(raw)
		if !ok {
			return Counters{}, services.Wrap(services.ErrValidation, "usage", "parse",
				fmt.Sprintf("counter %q is not numeric", field), nil)
		}
		values[field] = value
	}
	counters.PromptTokens = values["prompt_tokens"]
	counters.CompletionTokens = values["completion_tokens"]
	counters.TotalTokens = values["total_tokens"]
	counters.SuccessfulRequests = values["successful_requests"]
	return counters, nil
}

// Record builds the persistable usage row for a job, stamped at UTC midnight
// of the supplied time.
func Record(counters Counters, jobID int64, trigger store.Trigger, now time.Time) store.UsageRecord {
	return store.UsageRecord{
		JobID:              jobID,
		Trigger:            trigger,
		Date:               DateUTC(now),
		PromptTokens:       counters.PromptTokens,
		CompletionTokens:   counters.CompletionTokens,
		TotalTokens:        counters.TotalTokens,
		SuccessfulRequests: counters.SuccessfulRequests,
	}
}

// DateUTC truncates a time to UTC midnight.
func DateUTC(now time.Time) time.Time {
	utc := now.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func toInt64(value any) (int64, bool) {
	switch typed := value.(type) {
	case int64:
		return typed, true
	case int:
		return int64(typed), true
	case float64:
		return int64(typed), true
	default:
		return 0, false
	}
}
