package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/config"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/services"
)

// Request describes one chat completion call.
type Request struct {
	Model       string
	System      string
	User        string
	Temperature float32
	JSONMode    bool
}

// Response carries the model output and its token usage.
type Response struct {
	Content          string
	PromptTokens     int64
	CompletionTokens int64
}

// Client wraps an OpenAI-compatible chat completion API (Groq, OpenRouter)
// with bounded retries and exponential backoff.
type Client struct {
	api        *openai.Client
	maxRetries int
	sleep      func(time.Duration)
}

const (
	initialBackoff = 2 * time.Second
	maxBackoff     = 30 * time.Second
)

// New constructs a client from the shared LLM configuration.
func New(cfg config.LLM) *Client {
	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = cfg.BaseURL
	}
	apiConfig.HTTPClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	return &Client{
		api:        openai.NewClientWithConfig(apiConfig),
		maxRetries: cfg.MaxRetries,
		sleep:      time.Sleep,
	}
}

// WithSleeper overrides the retry sleep function. Test hook.
func (c *Client) WithSleeper(sleep func(time.Duration)) *Client {
	if sleep != nil {
		c.sleep = sleep
	}
	return c
}

// Complete executes one chat completion, retrying transient failures.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	apiReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	attempts := c.maxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Response{}, services.Wrap(services.ErrTimeout, "llm", "complete", "context cancelled", ctx.Err())
			default:
			}
			c.sleep(backoff)
			if next := backoff * 2; next <= maxBackoff {
				backoff = next
			}
		}

		resp, err := c.api.CreateChatCompletion(ctx, apiReq)
		if err != nil {
			lastErr = err
			if retryable(err) {
				continue
			}
			return Response{}, services.Wrap(services.ErrExternalService, "llm", "complete", "chat completion failed", err)
		}

		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			lastErr = errors.New("empty completion content")
			continue
		}

		return Response{
			Content:          resp.Choices[0].Message.Content,
			PromptTokens:     int64(resp.Usage.PromptTokens),
			CompletionTokens: int64(resp.Usage.CompletionTokens),
		}, nil
	}

	return Response{}, services.Wrap(services.ErrExternalService, "llm", "complete",
		fmt.Sprintf("exhausted %d attempts", attempts), lastErr)
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	// Network-level failures are worth retrying.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
