package config

const (
	defaultDataDir           = "~/.local/share/duniya"
	defaultLogDir            = "~/.local/share/duniya/logs"
	defaultAPIBind           = "127.0.0.1:8010"
	defaultRedisURL          = "redis://localhost:6379/0"
	defaultQueueKey          = "duniya:queue:tasks"
	defaultDeadLetterKey     = "duniya:queue:dead"
	defaultPopTimeoutSecs    = 5
	defaultLLMBaseURL        = "https://api.groq.com/openai/v1"
	defaultTopicModel        = "llama-3.3-70b-versatile"
	defaultResearchModel     = "llama-3.3-70b-versatile"
	defaultWriterModel       = "llama-3.3-70b-versatile"
	defaultReviewerModel     = "llama-3.3-70b-versatile"
	defaultLLMTimeoutSeconds = 120
	defaultLLMMaxRetries     = 3
	defaultSearchBaseURL     = "https://google.serper.dev"
	defaultSearchMaxResults  = 10
	defaultSearchTimeoutSecs = 20
	defaultWebhookMode       = "webhook"
	defaultWebhookTimeout    = 30
	defaultRevalidateTimeout = 10
	defaultMaxRequestsPerMin = 15
	defaultMaxIterations     = 5
	defaultJobTimeoutMinutes = 15
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Redis: Redis{
			URL:            defaultRedisURL,
			QueueKey:       defaultQueueKey,
			DeadLetterKey:  defaultDeadLetterKey,
			PopTimeoutSecs: defaultPopTimeoutSecs,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			TopicModel:     defaultTopicModel,
			ResearchModel:  defaultResearchModel,
			WriterModel:    defaultWriterModel,
			ReviewerModel:  defaultReviewerModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			MaxRetries:     defaultLLMMaxRetries,
		},
		Search: Search{
			BaseURL:        defaultSearchBaseURL,
			MaxResults:     defaultSearchMaxResults,
			TimeoutSeconds: defaultSearchTimeoutSecs,
		},
		Webhooks: Webhooks{
			Mode:              defaultWebhookMode,
			RequestTimeout:    defaultWebhookTimeout,
			RevalidateEnabled: true,
			RevalidateTimeout: defaultRevalidateTimeout,
		},
		Pipeline: Pipeline{
			MaxRequestsPerMinute: defaultMaxRequestsPerMin,
			MaxIterations:        defaultMaxIterations,
			JobTimeoutMinutes:    defaultJobTimeoutMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
