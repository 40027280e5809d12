// Package normalize converts free-form agent output into the canonical topic
// and article shapes the rest of the system consumes. It tolerates markdown
// fences and stray quoting around JSON, parses strictly, and collapses every
// failure to an empty canonical value so callers decide what an empty result
// means. Normalization never returns an error.
package normalize
