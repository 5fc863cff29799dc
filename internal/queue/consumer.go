package queue

import (
	"context"
	"time"

	"callsync/internal/models"

	"github.com/rs/zerolog"
)

// SyncFunc runs a single-call sync for one queue message
type SyncFunc func(ctx context.Context, platform, callID string) (*models.SyncDetail, error)

// Consumer drains the sync queue, running one single-call sync per message.
// It performs no per-message retry loop itself: a failed message goes back
// to the transport, which redelivers until the ceiling dead-letters it.
type Consumer struct {
	queue  *Queue
	sync   SyncFunc
	logger zerolog.Logger
}

// NewConsumer creates a consumer over the queue
func NewConsumer(queue *Queue, sync SyncFunc, logger zerolog.Logger) *Consumer {
	return &Consumer{queue: queue, sync: sync, logger: logger}
}

// Run consumes messages until the context is cancelled
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info().Msg("Queue consumer started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Queue consumer stopping")
			return ctx.Err()
		default:
		}

		msg, err := c.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error().Err(err).Msg("Dequeue failed")
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg *models.QueueMessage) {
	logger := c.logger.With().
		Str("platform", msg.Platform).
		Str("call_id", msg.CallID).
		Int("attempts", msg.Attempts).
		Logger()

	detail, err := c.sync(ctx, msg.Platform, msg.CallID)
	if err != nil {
		logger.Warn().Err(err).Msg("Single-call sync failed, returning message to transport")
		deadLettered, reqErr := c.queue.Requeue(ctx, msg)
		if reqErr != nil {
			logger.Error().Err(reqErr).Msg("Requeue failed, message lost")
		} else if deadLettered {
			logger.Error().Msg("Message dead-lettered")
		}
		return
	}

	logger.Info().Str("status", detail.Status).Str("reason", detail.Reason).Msg("Queue message processed")
}
