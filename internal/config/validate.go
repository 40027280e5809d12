package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateRedis(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateWebhooks(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAuth() error {
	if c.Auth.SecretKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/duniya/config.toml"
		}
		return fmt.Errorf("auth.secret_key is required. Set TOD_SECRET_KEY env var or edit %s (create with 'duniyad config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateRedis() error {
	if _, err := url.Parse(c.Redis.URL); err != nil {
		return fmt.Errorf("redis.url is not a valid URL: %w", err)
	}
	if c.Redis.QueueKey == c.Redis.DeadLetterKey {
		return errors.New("redis.queue_key and redis.dead_letter_key must differ")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIKey == "" {
		return errors.New("llm.api_key is required. Set GROQ_API_KEY env var or edit the config file")
	}
	if !strings.HasPrefix(c.LLM.BaseURL, "http") {
		return fmt.Errorf("llm.base_url must be an http(s) URL, got %q", c.LLM.BaseURL)
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.APIKey == "" {
		return errors.New("search.api_key is required. Set SERPER_API_KEY env var or edit the config file")
	}
	return nil
}

func (c *Config) validateWebhooks() error {
	switch c.Webhooks.Mode {
	case "webhook":
		if c.Webhooks.FrontendBaseURL == "" {
			return errors.New("webhooks.frontend_base_url is required when webhooks.mode is \"webhook\". Set FRONTEND_BASE_URL env var or edit the config file")
		}
		if _, err := url.Parse(c.Webhooks.FrontendBaseURL); err != nil {
			return fmt.Errorf("webhooks.frontend_base_url is not a valid URL: %w", err)
		}
	case "store":
	default:
		return fmt.Errorf("webhooks.mode must be \"webhook\" or \"store\", got %q", c.Webhooks.Mode)
	}
	return nil
}
