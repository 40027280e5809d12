package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/config"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/services"
)

// Result is one news search hit.
type Result struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Snippet   string `json:"snippet"`
	Date      string `json:"date"`
	Source    string `json:"source"`
	Published string `json:"published,omitempty"`
}

// Client queries the Serper.dev search API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxResults int
}

// New constructs a search client from configuration.
func New(cfg config.Search) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxResults: cfg.MaxResults,
	}
}

type newsResponse struct {
	News []Result `json:"news"`
}

// News runs a news search for the query, bounded by the configured result count.
func (c *Client) News(ctx context.Context, query string) ([]Result, error) {
	body, err := json.Marshal(map[string]any{
		"q":   query,
		"num": c.maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/news", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "search", "news", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalService, "search", "news",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var payload newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "search", "news", "decode response", err)
	}
	if c.maxResults > 0 && len(payload.News) > c.maxResults {
		payload.News = payload.News[:c.maxResults]
	}
	return payload.News, nil
}
