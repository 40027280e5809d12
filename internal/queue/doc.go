// Package queue defines the task envelope exchanged between the API server
// and workers, plus Broker implementations: Redis-backed for production and
// in-memory for tests and single-process setups.
package queue
