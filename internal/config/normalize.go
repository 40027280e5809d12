package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAuth()
	c.normalizeRedis()
	c.normalizeLLM()
	c.normalizeSearch()
	c.normalizeWebhooks()
	c.normalizePipeline()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeAuth() {
	c.Auth.SecretKey = strings.TrimSpace(c.Auth.SecretKey)
	if c.Auth.SecretKey == "" {
		if value, ok := os.LookupEnv("TOD_SECRET_KEY"); ok {
			c.Auth.SecretKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("SECRET_KEY"); ok {
			c.Auth.SecretKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeRedis() {
	c.Redis.URL = strings.TrimSpace(c.Redis.URL)
	if c.Redis.URL == "" {
		if value, ok := os.LookupEnv("REDIS_URL"); ok {
			c.Redis.URL = strings.TrimSpace(value)
		}
	}
	if c.Redis.URL == "" {
		c.Redis.URL = defaultRedisURL
	}
	c.Redis.QueueKey = strings.TrimSpace(c.Redis.QueueKey)
	if c.Redis.QueueKey == "" {
		c.Redis.QueueKey = defaultQueueKey
	}
	c.Redis.DeadLetterKey = strings.TrimSpace(c.Redis.DeadLetterKey)
	if c.Redis.DeadLetterKey == "" {
		c.Redis.DeadLetterKey = defaultDeadLetterKey
	}
	if c.Redis.PopTimeoutSecs <= 0 {
		c.Redis.PopTimeoutSecs = defaultPopTimeoutSecs
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("GROQ_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	for field, fallback := range map[*string]string{
		&c.LLM.TopicModel:    defaultTopicModel,
		&c.LLM.ResearchModel: defaultResearchModel,
		&c.LLM.WriterModel:   defaultWriterModel,
		&c.LLM.ReviewerModel: defaultReviewerModel,
	} {
		*field = strings.TrimSpace(*field)
		if *field == "" {
			*field = fallback
		}
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.MaxRetries <= 0 {
		c.LLM.MaxRetries = defaultLLMMaxRetries
	}
}

func (c *Config) normalizeSearch() {
	c.Search.APIKey = strings.TrimSpace(c.Search.APIKey)
	if c.Search.APIKey == "" {
		if value, ok := os.LookupEnv("SERPER_API_KEY"); ok {
			c.Search.APIKey = strings.TrimSpace(value)
		}
	}
	c.Search.BaseURL = strings.TrimSpace(c.Search.BaseURL)
	if c.Search.BaseURL == "" {
		c.Search.BaseURL = defaultSearchBaseURL
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = defaultSearchMaxResults
	}
	if c.Search.TimeoutSeconds <= 0 {
		c.Search.TimeoutSeconds = defaultSearchTimeoutSecs
	}
}

func (c *Config) normalizeWebhooks() {
	c.Webhooks.FrontendBaseURL = strings.TrimRight(strings.TrimSpace(c.Webhooks.FrontendBaseURL), "/")
	if c.Webhooks.FrontendBaseURL == "" {
		if value, ok := os.LookupEnv("FRONTEND_BASE_URL"); ok {
			c.Webhooks.FrontendBaseURL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	c.Webhooks.Mode = strings.ToLower(strings.TrimSpace(c.Webhooks.Mode))
	if c.Webhooks.Mode == "" {
		c.Webhooks.Mode = defaultWebhookMode
	}
	if c.Webhooks.RequestTimeout <= 0 {
		c.Webhooks.RequestTimeout = defaultWebhookTimeout
	}
	if c.Webhooks.RevalidateTimeout <= 0 {
		c.Webhooks.RevalidateTimeout = defaultRevalidateTimeout
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.MaxRequestsPerMinute <= 0 {
		c.Pipeline.MaxRequestsPerMinute = defaultMaxRequestsPerMin
	}
	if c.Pipeline.MaxIterations <= 0 {
		c.Pipeline.MaxIterations = defaultMaxIterations
	}
	if c.Pipeline.JobTimeoutMinutes <= 0 {
		c.Pipeline.JobTimeoutMinutes = defaultJobTimeoutMinutes
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
