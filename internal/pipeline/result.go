package pipeline

import "github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/usage"

// Result is the outcome of one crew run. Structured holds the decoded JSON of
// the final stage when it parsed cleanly; Raw always carries the final stage
// text so downstream normalization can make its own call. Usage accumulates
// token counters across every model call in the run.
type Result struct {
	Structured map[string]any
	Raw        string
	Usage      usage.Counters
}

// Payload returns the structured output when present, otherwise the raw text.
// This is what gets handed to the response normalizer.
func (r Result) Payload() any {
	if r.Structured != nil {
		return r.Structured
	}
	return r.Raw
}
