package queue

import (
	"context"
	"errors"
)

// ErrEmpty indicates a pop timed out with no task available.
var ErrEmpty = errors.New("queue empty")

// Broker moves task envelopes between the API process and workers.
type Broker interface {
	// Push enqueues a task for execution.
	Push(ctx context.Context, task Task) error
	// Pop blocks up to the broker's configured timeout and returns the next
	// task payload. Returns ErrEmpty when nothing arrived in time.
	Pop(ctx context.Context) ([]byte, error)
	// PushDead stores a payload that could not be processed.
	PushDead(ctx context.Context, payload []byte) error
	// Len reports the number of pending tasks.
	Len(ctx context.Context) (int64, error)
	// Ping verifies broker connectivity.
	Ping(ctx context.Context) error
	Close() error
}
