// Package services defines shared utilities consumed by the job lifecycle
// controller, pipeline stages, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, kinds, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent HTTP responses and job failure reasons.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across the system.
package services
