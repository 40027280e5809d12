// Package pipeline runs the fixed agent crews that generate content: a topic
// crew (news search then curation) and an article crew (research, write,
// review). Stages execute strictly in order, every model call passes through
// one shared requests-per-minute limiter, and structured stages re-prompt a
// bounded number of times when the model returns unparseable JSON. The runner
// reports what the final stage produced; deciding whether an empty or
// unparseable result fails the job belongs to the lifecycle controller.
package pipeline
