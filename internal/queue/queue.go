// Package queue carries webhook-originated sync work over redis. Enqueue
// deduplicates per call within a fixed window; delivery failures are
// redelivered up to a fixed ceiling before landing in a dead-letter list.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"callsync/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	queueKey      = "callsync:queue"
	deadLetterKey = "callsync:dead"
	dedupPrefix   = "callsync:dedup:"

	// dedupWindow bounds how long a redelivered webhook for the same call
	// is silently dropped
	dedupWindow = 10 * time.Minute

	// maxDeliveries is the redelivery ceiling before dead-lettering
	maxDeliveries = 3
)

// Queue is a redis-list transport for sync messages
type Queue struct {
	client *redis.Client
	logger zerolog.Logger
}

// New connects to redis and returns a queue
func New(redisURL string, logger zerolog.Logger) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Queue{client: client, logger: logger}, nil
}

// Enqueue pushes a message unless the same (platform, call) was enqueued
// within the dedup window. Returns false when the message was deduplicated.
func (q *Queue) Enqueue(ctx context.Context, msg *models.QueueMessage) (bool, error) {
	dedupKey := dedupPrefix + msg.Platform + ":" + msg.CallID
	fresh, err := q.client.SetNX(ctx, dedupKey, "1", dedupWindow).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set dedup token: %w", err)
	}
	if !fresh {
		q.logger.Debug().
			Str("platform", msg.Platform).
			Str("call_id", msg.CallID).
			Msg("Duplicate webhook within dedup window, dropped")
		return false, nil
	}

	if err := q.push(ctx, queueKey, msg); err != nil {
		return false, err
	}
	return true, nil
}

// Requeue pushes a failed message back for redelivery, or dead-letters it
// once the delivery ceiling is reached. Returns true when dead-lettered.
func (q *Queue) Requeue(ctx context.Context, msg *models.QueueMessage) (bool, error) {
	msg.Attempts++
	if msg.Attempts >= maxDeliveries {
		q.logger.Error().
			Str("platform", msg.Platform).
			Str("call_id", msg.CallID).
			Int("attempts", msg.Attempts).
			Msg("Delivery ceiling reached, dead-lettering")
		return true, q.push(ctx, deadLetterKey, msg)
	}
	return false, q.push(ctx, queueKey, msg)
}

// Dequeue blocks up to timeout for the next message. Returns (nil, nil)
// when the timeout elapses with nothing to do.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*models.QueueMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, queueKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	var msg models.QueueMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to decode queue message: %w", err)
	}
	return &msg, nil
}

func (q *Queue) push(ctx context.Context, key string, msg *models.QueueMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode queue message: %w", err)
	}
	if err := q.client.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to push queue message: %w", err)
	}
	return nil
}

// Ping verifies the redis connection is alive
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Depths reports the pending and dead-letter list lengths
func (q *Queue) Depths(ctx context.Context) (pending int64, dead int64, err error) {
	pending, err = q.client.LLen(ctx, queueKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read queue depth: %w", err)
	}
	dead, err = q.client.LLen(ctx, deadLetterKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read dead-letter depth: %w", err)
	}
	return pending, dead, nil
}

// Close releases the redis connection
func (q *Queue) Close() error {
	return q.client.Close()
}
