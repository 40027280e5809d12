// Package llm wraps an OpenAI-compatible chat completion endpoint with the
// retry and backoff behaviour the pipeline expects. Groq and OpenRouter both
// speak this protocol, so the base URL is configuration.
package llm
