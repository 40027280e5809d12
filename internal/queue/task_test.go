package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/queue"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/store"
)

func TestTaskEncodeDecodeRoundTrip(t *testing.T) {
	task := queue.Task{
		Kind:          store.KindTopicGeneration,
		JobID:         42,
		Trigger:       store.TriggerCron,
		CategoryID:    3,
		CategoryName:  "World",
		MinTopics:     3,
		MaxTopics:     8,
		TimeWindow:    "48h",
		ExcludeTitles: []string{"Old headline"},
		CorrelationID: "abc",
		EnqueuedAt:    time.Now().UTC(),
	}
	data, err := task.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := queue.DecodeTask(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Kind != task.Kind || decoded.JobID != task.JobID || decoded.CategoryName != "World" {
		t.Fatalf("unexpected decoded task: %+v", decoded)
	}
	if len(decoded.ExcludeTitles) != 1 {
		t.Fatalf("unexpected exclude titles: %v", decoded.ExcludeTitles)
	}
}

func TestDecodeTaskRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"garbage", "not json"},
		{"unknown kind", `{"kind":"mystery","job_id":1,"category_id":1}`},
		{"missing job", `{"kind":"topic-generation","category_id":1}`},
		{"article without topic or prompt", `{"kind":"article-generation","job_id":1,"category_id":1}`},
		{"article topic without title", `{"kind":"article-generation","job_id":1,"category_id":1,"topic":{"title":""}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := queue.DecodeTask([]byte(tc.payload)); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestMemoryBrokerPushPop(t *testing.T) {
	broker := queue.NewMemoryBroker(100 * time.Millisecond)
	defer broker.Close()
	ctx := context.Background()

	task := queue.Task{
		Kind:       store.KindArticleGeneration,
		JobID:      7,
		Trigger:    store.TriggerManual,
		CategoryID: 2,
		Topic:      &queue.TopicRef{Title: "Summit concludes"},
		EnqueuedAt: time.Now().UTC(),
	}
	if err := broker.Push(ctx, task); err != nil {
		t.Fatalf("push: %v", err)
	}

	if count, _ := broker.Len(ctx); count != 1 {
		t.Fatalf("expected 1 pending task, got %d", count)
	}

	payload, err := broker.Pop(ctx)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	decoded, err := queue.DecodeTask(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.JobID != 7 || decoded.Topic == nil || decoded.Topic.Title != "Summit concludes" {
		t.Fatalf("unexpected task: %+v", decoded)
	}

	if _, err := broker.Pop(ctx); !errors.Is(err, queue.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestMemoryBrokerDeadLetter(t *testing.T) {
	broker := queue.NewMemoryBroker(time.Second)
	defer broker.Close()

	if err := broker.PushDead(context.Background(), []byte("poisoned")); err != nil {
		t.Fatalf("push dead: %v", err)
	}
	dead := broker.Dead()
	if len(dead) != 1 || string(dead[0]) != "poisoned" {
		t.Fatalf("unexpected dead letters: %v", dead)
	}
}
