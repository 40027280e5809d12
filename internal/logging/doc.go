// Package logging centralizes slog construction and the structured field
// conventions used across the backend: component names, job IDs, stage names,
// and correlation identifiers. Handlers support a human-readable console
// format and JSON for log shippers.
package logging
