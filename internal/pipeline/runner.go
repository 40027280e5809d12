package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/config"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/llm"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/logging"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/normalize"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/queue"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/search"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/services"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/usage"
)

// Completer is the chat-completion dependency of the runner.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (llm.Response, error)
}

// NewsSearcher is the news search dependency of the runner.
type NewsSearcher interface {
	News(ctx context.Context, query string) ([]search.Result, error)
}

// PageReader fetches readable text from a source URL.
type PageReader interface {
	Text(ctx context.Context, pageURL string) (string, error)
}

// maxResearchPages bounds how many source pages the research stage fetches.
const maxResearchPages = 3

// Runner executes the fixed stage sequences of the topic and article crews.
// One model-call rate limiter spans all stages of a run.
type Runner struct {
	llm           Completer
	search        NewsSearcher
	pages         PageReader
	limiter       *rate.Limiter
	models        config.LLM
	maxIterations int
	logger        *slog.Logger
}

// NewRunner wires a runner from its dependencies and pipeline limits.
func NewRunner(completer Completer, searcher NewsSearcher, pages PageReader, cfg *config.Config, logger *slog.Logger) *Runner {
	limit := rate.Limit(float64(cfg.Pipeline.MaxRequestsPerMinute) / 60.0)
	return &Runner{
		llm:           completer,
		search:        searcher,
		pages:         pages,
		limiter:       rate.NewLimiter(limit, 1),
		models:        cfg.LLM,
		maxIterations: cfg.Pipeline.MaxIterations,
		logger:        logging.NewComponentLogger(logger, "pipeline"),
	}
}

// RunTopics executes the topic crew: a news search stage feeding a curation
// stage. The returned result carries the curation output even when it did not
// parse; emptiness is the caller's call.
func (r *Runner) RunTopics(ctx context.Context, task queue.Task) (Result, error) {
	log := logging.WithContext(ctx, r.logger)

	stageCtx := services.WithStage(ctx, "search")
	query := fmt.Sprintf("%s news", task.CategoryName)
	if task.Prompt != "" {
		query = task.Prompt
	}
	results, err := r.search.News(stageCtx, query)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalService, "search", "news", "topic search failed", err)
	}
	log.Info("search stage complete", logging.Int("results", len(results)))

	stageCtx = services.WithStage(ctx, "curate")
	return r.structuredStage(stageCtx, llm.Request{
		Model:       r.models.TopicModel,
		System:      curatorSystem,
		User:        curatorPrompt(task, results),
		Temperature: 0.3,
		JSONMode:    true,
	})
}

// RunArticle executes the article crew: research, write, review, each stage
// feeding the next. The review output is the run result.
func (r *Runner) RunArticle(ctx context.Context, task queue.Task) (Result, error) {
	log := logging.WithContext(ctx, r.logger)
	topic := queue.TopicRef{Title: strings.TrimSpace(task.Prompt)}
	if task.Topic != nil {
		topic = *task.Topic
	}

	var total usage.Counters

	stageCtx := services.WithStage(ctx, "research")
	brief, briefUsage, err := r.researchStage(stageCtx, topic)
	if err != nil {
		return Result{}, err
	}
	total.Merge(briefUsage)
	log.Info("research stage complete", logging.Int("brief_bytes", len(brief)))

	stageCtx = services.WithStage(ctx, "write")
	draft, err := r.structuredStage(stageCtx, llm.Request{
		Model:       r.models.WriterModel,
		System:      writerSystem,
		User:        writerPrompt(topic, brief, task.Prompt),
		Temperature: 0.7,
		JSONMode:    true,
	})
	if err != nil {
		return Result{}, err
	}
	total.Merge(draft.Usage)
	log.Info("write stage complete")

	stageCtx = services.WithStage(ctx, "review")
	review, err := r.structuredStage(stageCtx, llm.Request{
		Model:       r.models.ReviewerModel,
		System:      reviewerSystem,
		User:        reviewerPrompt(draft.Raw, brief),
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return Result{}, err
	}
	total.Merge(review.Usage)
	review.Usage = total
	log.Info("review stage complete")
	return review, nil
}

// researchStage gathers coverage and page extracts, then asks the research
// model for a brief. Page fetch failures are logged and skipped.
func (r *Runner) researchStage(ctx context.Context, topic queue.TopicRef) (string, usage.Counters, error) {
	log := logging.WithContext(ctx, r.logger)

	var results []search.Result
	if topic.Title != "" {
		found, err := r.search.News(ctx, topic.Title)
		if err != nil {
			return "", usage.Counters{}, services.Wrap(services.ErrExternalService, "research", "news", "coverage search failed", err)
		}
		results = found
	}

	pageTexts := make(map[string]string)
	sources := topic.Sources
	if len(sources) > maxResearchPages {
		sources = sources[:maxResearchPages]
	}
	for _, source := range sources {
		text, err := r.pages.Text(ctx, source)
		if err != nil {
			log.Warn("source page skipped", logging.String("url", source), logging.Error(err))
			continue
		}
		pageTexts[source] = text
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return "", usage.Counters{}, services.Wrap(services.ErrTimeout, "research", "rate", "rate limiter wait", err)
	}
	resp, err := r.llm.Complete(ctx, llm.Request{
		Model:       r.models.ResearchModel,
		System:      researcherSystem,
		User:        researcherPrompt(topic, results, pageTexts),
		Temperature: 0.2,
	})
	if err != nil {
		return "", usage.Counters{}, err
	}
	var counters usage.Counters
	counters.Add(resp.PromptTokens, resp.CompletionTokens)
	return resp.Content, counters, nil
}

// structuredStage runs one JSON-producing model call, re-prompting up to the
// iteration ceiling when the reply does not parse. The last reply is returned
// even when unparseable.
func (r *Runner) structuredStage(ctx context.Context, req llm.Request) (Result, error) {
	log := logging.WithContext(ctx, r.logger)

	var total usage.Counters
	var lastContent string
	user := req.User

	for iteration := 0; iteration < r.maxIterations; iteration++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return Result{}, services.Wrap(services.ErrTimeout, "pipeline", "rate", "rate limiter wait", err)
		}

		attempt := req
		attempt.User = user
		resp, err := r.llm.Complete(ctx, attempt)
		if err != nil {
			return Result{}, err
		}
		total.Add(resp.PromptTokens, resp.CompletionTokens)
		lastContent = resp.Content

		var structured map[string]any
		if decodeErr := normalize.DecodeAgentJSON(resp.Content, &structured); decodeErr == nil {
			return Result{Structured: structured, Raw: resp.Content, Usage: total}, nil
		}

		log.Warn("stage output did not parse",
			logging.Int("iteration", iteration+1),
			logging.String("snippet", normalize.Snippet(resp.Content)))
		user = req.User + retryNudge
	}

	return Result{Raw: lastContent, Usage: total}, nil
}
