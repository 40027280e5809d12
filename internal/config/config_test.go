package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TOD_SECRET_KEY", "test-secret")
	t.Setenv("GROQ_API_KEY", "test-llm-key")
	t.Setenv("SERPER_API_KEY", "test-search-key")
	t.Setenv("FRONTEND_BASE_URL", "https://frontend.example.com/")
}

func TestLoadDefaultConfigUsesEnvSecretsAndExpandsPaths(t *testing.T) {
	setRequiredEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "duniya")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8010" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Auth.SecretKey != "test-secret" {
		t.Fatalf("expected secret from env, got %q", cfg.Auth.SecretKey)
	}
	if cfg.LLM.APIKey != "test-llm-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != config.Default().LLM.BaseURL {
		t.Fatalf("unexpected LLM base url: %q", cfg.LLM.BaseURL)
	}
	if cfg.Search.APIKey != "test-search-key" {
		t.Fatalf("expected search key from env, got %q", cfg.Search.APIKey)
	}
	if cfg.Webhooks.FrontendBaseURL != "https://frontend.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Webhooks.FrontendBaseURL)
	}
	if cfg.Webhooks.Mode != "webhook" {
		t.Fatalf("unexpected webhook mode: %q", cfg.Webhooks.Mode)
	}
	if cfg.Pipeline.MaxRequestsPerMinute != 15 || cfg.Pipeline.MaxIterations != 5 {
		t.Fatalf("unexpected pipeline limits: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.JobTimeoutMinutes != 15 {
		t.Fatalf("unexpected job timeout: %d", cfg.Pipeline.JobTimeoutMinutes)
	}
	if cfg.Redis.QueueKey != "duniya:queue:tasks" {
		t.Fatalf("unexpected queue key: %q", cfg.Redis.QueueKey)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if _, err := os.Stat(cfg.Paths.DataDir); err != nil {
		t.Fatalf("expected data dir created: %v", err)
	}
	if cfg.DatabasePath() != filepath.Join(cfg.Paths.DataDir, "duniya.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestLoadParsesFileOverrides(t *testing.T) {
	setRequiredEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
api_bind = "0.0.0.0:9000"

[webhooks]
mode = "store"

[pipeline]
max_requests_per_minute = 5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("unexpected bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Webhooks.Mode != "store" {
		t.Fatalf("unexpected mode: %q", cfg.Webhooks.Mode)
	}
	if cfg.Pipeline.MaxRequestsPerMinute != 5 {
		t.Fatalf("unexpected rpm: %d", cfg.Pipeline.MaxRequestsPerMinute)
	}
}

func TestValidateRejectsMissingSecret(t *testing.T) {
	t.Setenv("TOD_SECRET_KEY", "")
	t.Setenv("SECRET_KEY", "")
	t.Setenv("GROQ_API_KEY", "key")
	t.Setenv("SERPER_API_KEY", "key")
	t.Setenv("FRONTEND_BASE_URL", "https://frontend.example.com")
	t.Setenv("HOME", t.TempDir())

	if _, _, _, err := config.Load(""); err == nil {
		t.Fatal("expected error for missing secret key")
	}
}

func TestValidateRejectsUnknownWebhookMode(t *testing.T) {
	setRequiredEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[webhooks]\nmode = \"carrier-pigeon\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown webhook mode")
	}
}

func TestValidateRejectsMissingFrontendInWebhookMode(t *testing.T) {
	t.Setenv("TOD_SECRET_KEY", "secret")
	t.Setenv("GROQ_API_KEY", "key")
	t.Setenv("SERPER_API_KEY", "key")
	t.Setenv("FRONTEND_BASE_URL", "")
	t.Setenv("HOME", t.TempDir())

	if _, _, _, err := config.Load(""); err == nil {
		t.Fatal("expected error for missing frontend base url")
	}
}

func TestCreateSampleWritesEmbeddedTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected sample content")
	}
}
