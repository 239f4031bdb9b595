package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
)

type Producer interface {
	Publish(ctx context.Context, msg SettingSaved) error
	Close() error
}

type redisProducer struct {
	client      *redis.Client
	stream      string
	maxAttempts uint
	logger      *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client:      client,
		stream:      stream,
		maxAttempts: 3,
		logger:      logger,
	}
}

// Publish appends msg to the stream, retrying transient redis errors with
// exponential backoff.
func (p *redisProducer) Publish(ctx context.Context, msg SettingSaved) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	id, err := backoff.Retry(ctx, func() (string, error) {
		return p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			Values: msg.values(),
		}).Result()
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(p.maxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.logger.WarnContext(ctx, "publish failed, retrying", "error", err, "retry_in", next, "stream", p.stream)
		}),
	)
	if err != nil {
		return fmt.Errorf("publish setting saved: %w", err)
	}

	p.logger.InfoContext(ctx, "published setting saved",
		"message_id", id,
		"setting_id", msg.SettingID,
		"revision_id", msg.RevisionID,
		"entry_count", msg.EntryCount)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
