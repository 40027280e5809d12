package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryBroker is an in-process Broker used by tests and single-node setups
// that run the API and worker in one binary without Redis.
type MemoryBroker struct {
	mu         sync.Mutex
	tasks      chan []byte
	dead       [][]byte
	popTimeout time.Duration
	closed     bool
}

// NewMemoryBroker creates a broker holding tasks in memory.
func NewMemoryBroker(popTimeout time.Duration) *MemoryBroker {
	if popTimeout <= 0 {
		popTimeout = time.Second
	}
	return &MemoryBroker{
		tasks:      make(chan []byte, 1024),
		popTimeout: popTimeout,
	}
}

func (b *MemoryBroker) Push(ctx context.Context, task Task) error {
	data, err := task.Encode()
	if err != nil {
		return err
	}
	select {
	case b.tasks <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MemoryBroker) Pop(ctx context.Context) ([]byte, error) {
	timer := time.NewTimer(b.popTimeout)
	defer timer.Stop()
	select {
	case data := <-b.tasks:
		return data, nil
	case <-timer.C:
		return nil, ErrEmpty
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *MemoryBroker) PushDead(_ context.Context, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dead = append(b.dead, payload)
	return nil
}

// Dead returns the dead-letter payloads captured so far.
func (b *MemoryBroker) Dead() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.dead))
	copy(out, b.dead)
	return out
}

func (b *MemoryBroker) Len(context.Context) (int64, error) {
	return int64(len(b.tasks)), nil
}

func (b *MemoryBroker) Ping(context.Context) error { return nil }

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
