package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/config"
)

// RedisBroker implements Broker on a Redis list: LPUSH to enqueue, BRPOP to
// consume, and a separate dead-letter list for poisoned payloads.
type RedisBroker struct {
	client     *redis.Client
	queueKey   string
	deadKey    string
	popTimeout time.Duration
}

// NewRedisBroker connects to Redis using the configured URL and key names.
func NewRedisBroker(cfg *config.Config) (*RedisBroker, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	return &RedisBroker{
		client:     client,
		queueKey:   cfg.Redis.QueueKey,
		deadKey:    cfg.Redis.DeadLetterKey,
		popTimeout: time.Duration(cfg.Redis.PopTimeoutSecs) * time.Second,
	}, nil
}

func (b *RedisBroker) Push(ctx context.Context, task Task) error {
	data, err := task.Encode()
	if err != nil {
		return err
	}
	if err := b.client.LPush(ctx, b.queueKey, data).Err(); err != nil {
		return fmt.Errorf("lpush task: %w", err)
	}
	return nil
}

func (b *RedisBroker) Pop(ctx context.Context) ([]byte, error) {
	result, err := b.client.BRPop(ctx, b.popTimeout, b.queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("brpop task: %w", err)
	}
	// BRPOP returns [key, value].
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected brpop result length %d", len(result))
	}
	return []byte(result[1]), nil
}

func (b *RedisBroker) PushDead(ctx context.Context, payload []byte) error {
	if err := b.client.LPush(ctx, b.deadKey, payload).Err(); err != nil {
		return fmt.Errorf("lpush dead letter: %w", err)
	}
	return nil
}

func (b *RedisBroker) Len(ctx context.Context) (int64, error) {
	count, err := b.client.LLen(ctx, b.queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("llen queue: %w", err)
	}
	return count, nil
}

func (b *RedisBroker) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
