package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/config"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/dispatch"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/logging"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/queue"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/store"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, broker queue.Broker) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.OpenPath(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.Auth.SecretKey = testSecret
	dispatcher := dispatch.New(st, broker, logging.NewNop())
	srv := NewServer(&cfg, st, broker, dispatcher, logging.NewNop())

	ts := httptest.NewServer(srv.Handler(testSecret))
	t.Cleanup(ts.Close)
	return ts, st
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func getJSON(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestAuthRejectsWithoutSideEffects(t *testing.T) {
	broker := queue.NewMemoryBroker(20 * time.Millisecond)
	ts, st := newTestServer(t, broker)

	body := map[string]any{"category_id": 1, "category_name": "World"}
	for _, token := range []string{"", "wrong-secret"} {
		resp := postJSON(t, ts.URL+"/api/posts/create-topic", token, body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("token %q: expected 401, got %d", token, resp.StatusCode)
		}
	}

	jobs, err := st.ListJobs(context.Background())
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("unauthorized requests must not create jobs, got %d", len(jobs))
	}
	if pending, _ := broker.Len(context.Background()); pending != 0 {
		t.Fatalf("unauthorized requests must not enqueue, got %d", pending)
	}
}

func TestCreateTopicEnqueuesJob(t *testing.T) {
	broker := queue.NewMemoryBroker(50 * time.Millisecond)
	ts, st := newTestServer(t, broker)

	resp := postJSON(t, ts.URL+"/api/posts/create-topic", testSecret, map[string]any{
		"category_id":   3,
		"category_name": "Technology",
		"min_topics":    2,
		"max_topics":    5,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var ack ackResponse
	decodeBody(t, resp, &ack)
	if ack.Message != "Successfully added process to queue" {
		t.Fatalf("unexpected message: %q", ack.Message)
	}
	if ack.JobID == 0 {
		t.Fatal("expected job id in ack")
	}

	job, err := st.GetJob(context.Background(), ack.JobID)
	if err != nil || job == nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != store.StatusQueued {
		t.Fatalf("expected queued job, got %s", job.Status)
	}

	payload, err := broker.Pop(context.Background())
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	task, err := queue.DecodeTask(payload)
	if err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.JobID != ack.JobID || task.CategoryName != "Technology" {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestCreateTopicsFansOut(t *testing.T) {
	broker := queue.NewMemoryBroker(50 * time.Millisecond)
	ts, _ := newTestServer(t, broker)

	resp := postJSON(t, ts.URL+"/api/posts/create-topics", testSecret, map[string]any{
		"min_topics":  1,
		"max_topics":  3,
		"time_window": "24h",
		"categories": []map[string]any{
			{"id": 1, "name": "World"},
			{"id": 2, "name": "Sports"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var ack ackResponse
	decodeBody(t, resp, &ack)
	if len(ack.Jobs) != 2 {
		t.Fatalf("expected 2 job acks, got %+v", ack.Jobs)
	}
	if pending, _ := broker.Len(context.Background()); pending != 2 {
		t.Fatalf("expected 2 enqueued tasks, got %d", pending)
	}
}

func TestCreateTopicsRejectsMalformedBody(t *testing.T) {
	broker := queue.NewMemoryBroker(20 * time.Millisecond)
	ts, _ := newTestServer(t, broker)

	resp := postJSON(t, ts.URL+"/api/posts/create-topics", testSecret, map[string]any{
		"min_topics": 3,
		"max_topics": 1,
		"categories": []map[string]any{{"id": 1, "name": "World"}},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for max < min, got %d", resp.StatusCode)
	}
}

func TestRetryUnknownJobIs404(t *testing.T) {
	broker := queue.NewMemoryBroker(20 * time.Millisecond)
	ts, _ := newTestServer(t, broker)

	resp := postJSON(t, ts.URL+"/api/posts/create-topic/retry", testSecret, map[string]any{
		"job_id":        1234,
		"category_name": "World",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateManualArticle(t *testing.T) {
	broker := queue.NewMemoryBroker(50 * time.Millisecond)
	ts, _ := newTestServer(t, broker)

	resp := postJSON(t, ts.URL+"/api/posts/create-manual-article", testSecret, map[string]any{
		"category_id": 2,
		"prompt":      "Write about the new metro line",
		"user_id":     "user_42",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var ack ackResponse
	decodeBody(t, resp, &ack)

	payload, err := broker.Pop(context.Background())
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	task, err := queue.DecodeTask(payload)
	if err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.Kind != store.KindArticleGeneration || task.UserID != "user_42" {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestJobsEndpoints(t *testing.T) {
	broker := queue.NewMemoryBroker(50 * time.Millisecond)
	ts, st := newTestServer(t, broker)

	job, err := st.CreateJob(context.Background(), store.KindTopicGeneration, store.TriggerCron, 1)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	resp := getJSON(t, ts.URL+"/api/posts/jobs?status=queued", testSecret)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var list map[string][]jobPayload
	decodeBody(t, resp, &list)
	if len(list["jobs"]) != 1 || list["jobs"][0].ID != job.ID {
		t.Fatalf("unexpected jobs: %+v", list)
	}

	resp = getJSON(t, ts.URL+"/api/posts/jobs/999", testSecret)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", resp.StatusCode)
	}

	resp = getJSON(t, ts.URL+"/api/posts/jobs?status=bogus", testSecret)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status filter, got %d", resp.StatusCode)
	}
}

func TestHealthIsUnauthenticated(t *testing.T) {
	broker := queue.NewMemoryBroker(20 * time.Millisecond)
	ts, _ := newTestServer(t, broker)

	resp := getJSON(t, ts.URL+"/api/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var health map[string]string
	decodeBody(t, resp, &health)
	if health["status"] != "ok" || health["broker"] != "ok" {
		t.Fatalf("unexpected health: %+v", health)
	}
}

type failingBroker struct {
	queue.Broker
}

func (failingBroker) Push(context.Context, queue.Task) error {
	return errors.New("broker unavailable")
}

func (failingBroker) Ping(context.Context) error { return nil }

func TestEnqueueFailureIsServerError(t *testing.T) {
	ts, st := newTestServer(t, failingBroker{})

	resp := postJSON(t, ts.URL+"/api/posts/create-topic", testSecret, map[string]any{
		"category_id":   1,
		"category_name": "World",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}

	// The job row survives so the request can be replayed.
	jobs, err := st.ListJobs(context.Background(), store.StatusQueued)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected surviving queued job, got %d", len(jobs))
	}
}
