package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/config"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/logging"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/queue"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/store"
)

type recordingRunner struct {
	mu    sync.Mutex
	tasks []queue.Task
	done  chan struct{}
}

func newRecordingRunner(expected int) *recordingRunner {
	return &recordingRunner{done: make(chan struct{}, expected)}
}

func (r *recordingRunner) Run(_ context.Context, task queue.Task) error {
	r.mu.Lock()
	r.tasks = append(r.tasks, task)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recordingRunner) seen() []queue.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// scriptedBroker replays fixed pop results, then reports empty.
type scriptedBroker struct {
	mu       sync.Mutex
	payloads [][]byte
	popErrs  []error
	dead     [][]byte
}

func (b *scriptedBroker) Push(context.Context, queue.Task) error { return nil }

func (b *scriptedBroker) Pop(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.popErrs) > 0 {
		err := b.popErrs[0]
		b.popErrs = b.popErrs[1:]
		return nil, err
	}
	if len(b.payloads) > 0 {
		payload := b.payloads[0]
		b.payloads = b.payloads[1:]
		return payload, nil
	}
	return nil, queue.ErrEmpty
}

func (b *scriptedBroker) PushDead(_ context.Context, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dead = append(b.dead, payload)
	return nil
}

func (b *scriptedBroker) deadLetters() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.dead))
	copy(out, b.dead)
	return out
}

func (b *scriptedBroker) Len(context.Context) (int64, error) { return 0, nil }
func (b *scriptedBroker) Ping(context.Context) error         { return nil }
func (b *scriptedBroker) Close() error                       { return nil }

func testWorkerConfig() *config.Config {
	cfg := config.Default()
	return &cfg
}

func TestWorkerProcessesQueuedTasks(t *testing.T) {
	broker := queue.NewMemoryBroker(10 * time.Millisecond)
	runner := newRecordingRunner(2)
	w := New(broker, runner, testWorkerConfig(), logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := queue.Task{Kind: store.KindTopicGeneration, JobID: 1, Trigger: store.TriggerCron, CategoryID: 2}
	second := queue.Task{
		Kind:       store.KindArticleGeneration,
		JobID:      2,
		Trigger:    store.TriggerManual,
		CategoryID: 2,
		Topic:      &queue.TopicRef{Title: "Topic"},
	}
	if err := broker.Push(ctx, first); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := broker.Push(ctx, second); err != nil {
		t.Fatalf("push: %v", err)
	}

	finished := make(chan error, 1)
	go func() { finished <- w.Run(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case <-runner.done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for task execution")
		}
	}
	cancel()
	if err := <-finished; err != nil {
		t.Fatalf("worker run: %v", err)
	}

	tasks := runner.seen()
	if len(tasks) != 2 || tasks[0].JobID != 1 || tasks[1].JobID != 2 {
		t.Fatalf("unexpected task order: %+v", tasks)
	}
}

func TestWorkerDeadLettersMalformedPayloads(t *testing.T) {
	valid := queue.Task{Kind: store.KindTopicGeneration, JobID: 5, Trigger: store.TriggerCron, CategoryID: 1}
	encoded, err := valid.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	broker := &scriptedBroker{payloads: [][]byte{
		[]byte("not json"),
		[]byte(`{"kind":"topic-generation"}`),
		encoded,
	}}
	runner := newRecordingRunner(1)
	w := New(broker, runner, testWorkerConfig(), logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	finished := make(chan error, 1)
	go func() { finished <- w.Run(ctx) }()

	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for valid task")
	}
	cancel()
	if err := <-finished; err != nil {
		t.Fatalf("worker run: %v", err)
	}

	dead := broker.deadLetters()
	if len(dead) != 2 {
		t.Fatalf("expected 2 dead letters, got %d", len(dead))
	}
	if tasks := runner.seen(); len(tasks) != 1 || tasks[0].JobID != 5 {
		t.Fatalf("unexpected executed tasks: %+v", tasks)
	}
}

func TestWorkerBacksOffOnBrokerErrors(t *testing.T) {
	valid := queue.Task{Kind: store.KindTopicGeneration, JobID: 9, Trigger: store.TriggerCron, CategoryID: 1}
	encoded, err := valid.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	broker := &scriptedBroker{
		popErrs:  []error{errors.New("connection refused")},
		payloads: [][]byte{encoded},
	}
	runner := newRecordingRunner(1)

	var slept []time.Duration
	var mu sync.Mutex
	w := New(broker, runner, testWorkerConfig(), logging.NewNop()).WithSleeper(func(d time.Duration) {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	finished := make(chan error, 1)
	go func() { finished <- w.Run(ctx) }()

	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for recovery")
	}
	cancel()
	<-finished

	mu.Lock()
	defer mu.Unlock()
	if len(slept) != 1 || slept[0] != popErrorBackoff {
		t.Fatalf("unexpected backoff sleeps: %v", slept)
	}
}
