package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/config"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/llm"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/logging"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/pipeline"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/queue"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/search"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/store"
)

type fakeCompleter struct {
	responses []llm.Response
	errs      []error
	requests  []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	f.requests = append(f.requests, req)
	idx := len(f.requests) - 1
	if idx < len(f.errs) && f.errs[idx] != nil {
		return llm.Response{}, f.errs[idx]
	}
	if idx >= len(f.responses) {
		return llm.Response{Content: "{}"}, nil
	}
	return f.responses[idx], nil
}

type fakeSearcher struct {
	results []search.Result
	err     error
	queries []string
}

func (f *fakeSearcher) News(_ context.Context, query string) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type fakePages struct {
	texts map[string]string
}

func (f *fakePages) Text(_ context.Context, url string) (string, error) {
	if text, ok := f.texts[url]; ok {
		return text, nil
	}
	return "", errors.New("unreachable")
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.LLM.TopicModel = "topic-model"
	cfg.LLM.ResearchModel = "research-model"
	cfg.LLM.WriterModel = "writer-model"
	cfg.LLM.ReviewerModel = "reviewer-model"
	// Keep the limiter out of the way in tests.
	cfg.Pipeline.MaxRequestsPerMinute = 60000
	cfg.Pipeline.MaxIterations = 3
	return &cfg
}

func topicTask() queue.Task {
	return queue.Task{
		Kind:         store.KindTopicGeneration,
		JobID:        1,
		Trigger:      store.TriggerCron,
		CategoryID:   3,
		CategoryName: "World",
		MinTopics:    2,
		MaxTopics:    5,
		TimeWindow:   "48h",
	}
}

func TestRunTopicsFeedsSearchResultsToCurator(t *testing.T) {
	completer := &fakeCompleter{responses: []llm.Response{
		{Content: `{"items":[{"title":"Floods","sources":["https://x"],"published":"2025-08-29"}]}`, PromptTokens: 100, CompletionTokens: 40},
	}}
	searcher := &fakeSearcher{results: []search.Result{
		{Title: "Floods worsen", Link: "https://news.example.com/1", Source: "Example"},
	}}

	runner := pipeline.NewRunner(completer, searcher, &fakePages{}, testConfig(), logging.NewNop())
	result, err := runner.RunTopics(context.Background(), topicTask())
	if err != nil {
		t.Fatalf("run topics: %v", err)
	}
	if result.Structured == nil {
		t.Fatal("expected structured output")
	}
	if result.Usage.TotalTokens != 140 || result.Usage.SuccessfulRequests != 1 {
		t.Fatalf("unexpected usage: %+v", result.Usage)
	}
	if len(completer.requests) != 1 {
		t.Fatalf("expected 1 model call, got %d", len(completer.requests))
	}
	req := completer.requests[0]
	if req.Model != "topic-model" || !req.JSONMode {
		t.Fatalf("unexpected request: %+v", req)
	}
	if !strings.Contains(req.User, "Floods worsen") || !strings.Contains(req.User, "Category: World") {
		t.Fatalf("expected search results in prompt: %q", req.User)
	}
}

func TestRunTopicsSearchFailurePropagates(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("serper down")}
	runner := pipeline.NewRunner(&fakeCompleter{}, searcher, &fakePages{}, testConfig(), logging.NewNop())

	if _, err := runner.RunTopics(context.Background(), topicTask()); err == nil {
		t.Fatal("expected error")
	}
}

func TestStructuredStageRepromptsOnBadJSON(t *testing.T) {
	completer := &fakeCompleter{responses: []llm.Response{
		{Content: "sorry, here you go:", PromptTokens: 50, CompletionTokens: 10},
		{Content: `{"items":[]}`, PromptTokens: 60, CompletionTokens: 5},
	}}
	runner := pipeline.NewRunner(completer, &fakeSearcher{}, &fakePages{}, testConfig(), logging.NewNop())

	result, err := runner.RunTopics(context.Background(), topicTask())
	if err != nil {
		t.Fatalf("run topics: %v", err)
	}
	if result.Structured == nil {
		t.Fatal("expected structured output on second attempt")
	}
	if len(completer.requests) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(completer.requests))
	}
	if !strings.Contains(completer.requests[1].User, "not valid JSON") {
		t.Fatal("expected retry nudge appended to second prompt")
	}
	if result.Usage.TotalTokens != 125 || result.Usage.SuccessfulRequests != 2 {
		t.Fatalf("unexpected usage accumulation: %+v", result.Usage)
	}
}

func TestStructuredStageExhaustsIterationsWithoutError(t *testing.T) {
	completer := &fakeCompleter{responses: []llm.Response{
		{Content: "nope"}, {Content: "still nope"}, {Content: "final refusal"},
	}}
	runner := pipeline.NewRunner(completer, &fakeSearcher{}, &fakePages{}, testConfig(), logging.NewNop())

	result, err := runner.RunTopics(context.Background(), topicTask())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Structured != nil {
		t.Fatal("expected no structured output")
	}
	if result.Raw != "final refusal" {
		t.Fatalf("expected last reply retained, got %q", result.Raw)
	}
	if len(completer.requests) != 3 {
		t.Fatalf("expected iteration ceiling of 3, got %d", len(completer.requests))
	}
}

func TestRunArticleChainsStages(t *testing.T) {
	completer := &fakeCompleter{responses: []llm.Response{
		{Content: "research brief text", PromptTokens: 200, CompletionTokens: 100},
		{Content: `{"title":"T","summary":"S","content":"Body","tags":["t"],"sources":["https://x"]}`, PromptTokens: 300, CompletionTokens: 200},
		{Content: `{"accuracy_score":90,"reason":"ok","status":"APPROVED","feedback":"","article":{"title":"T","summary":"S","content":"Body","tags":["t"],"sources":["https://x"]}}`, PromptTokens: 150, CompletionTokens: 80},
	}}
	searcher := &fakeSearcher{results: []search.Result{{Title: "Coverage", Link: "https://cov"}}}
	pages := &fakePages{texts: map[string]string{"https://src1": "page text"}}

	task := queue.Task{
		Kind:       store.KindArticleGeneration,
		JobID:      2,
		Trigger:    store.TriggerManual,
		CategoryID: 1,
		Topic: &queue.TopicRef{
			Title:   "Summit concludes",
			Summary: "Trade framework agreed",
			Sources: []string{"https://src1", "https://down"},
		},
	}

	runner := pipeline.NewRunner(completer, searcher, pages, testConfig(), logging.NewNop())
	result, err := runner.RunArticle(context.Background(), task)
	if err != nil {
		t.Fatalf("run article: %v", err)
	}
	if result.Structured == nil {
		t.Fatal("expected structured verdict")
	}
	if result.Structured["status"] != "APPROVED" {
		t.Fatalf("unexpected verdict: %v", result.Structured)
	}

	if len(completer.requests) != 3 {
		t.Fatalf("expected 3 model calls, got %d", len(completer.requests))
	}
	if completer.requests[0].Model != "research-model" || completer.requests[1].Model != "writer-model" || completer.requests[2].Model != "reviewer-model" {
		t.Fatalf("unexpected stage models: %+v", completer.requests)
	}
	if !strings.Contains(completer.requests[0].User, "page text") {
		t.Fatal("expected page extract in research prompt")
	}
	if !strings.Contains(completer.requests[1].User, "research brief text") {
		t.Fatal("expected brief in writer prompt")
	}
	if !strings.Contains(completer.requests[2].User, `"title":"T"`) {
		t.Fatal("expected draft in reviewer prompt")
	}

	// Usage spans all three stages.
	if result.Usage.SuccessfulRequests != 3 || result.Usage.TotalTokens != 1030 {
		t.Fatalf("unexpected usage: %+v", result.Usage)
	}
}

func TestRunArticleResearchFailurePropagates(t *testing.T) {
	completer := &fakeCompleter{errs: []error{errors.New("model down")}}
	task := queue.Task{
		Kind:       store.KindArticleGeneration,
		JobID:      2,
		Trigger:    store.TriggerManual,
		CategoryID: 1,
		Topic:      &queue.TopicRef{Title: "Topic"},
	}
	runner := pipeline.NewRunner(completer, &fakeSearcher{}, &fakePages{}, testConfig(), logging.NewNop())
	if _, err := runner.RunArticle(context.Background(), task); err == nil {
		t.Fatal("expected error")
	}
}
