// Package store persists jobs, topics, articles, and usage metrics in SQLite.
//
// The database runs in WAL mode with busy retries so the API server and queue
// worker can share one file. Status transitions are guarded updates: a
// transition that matches no row (wrong current status or missing job) returns
// ErrNoTransition instead of silently succeeding, which keeps the job
// lifecycle monotonic.
package store
