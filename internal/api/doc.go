// Package api exposes the HTTP surface: generation endpoints under
// /api/posts, job inspection, and health. Handlers validate and enqueue
// only; all generation work happens in worker processes.
package api
