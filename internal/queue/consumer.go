package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cpanato/mattermost-plugin-alertmanager/common/logger"
)

type ConsumerConfig struct {
	Stream    string        // Redis stream name
	Group     string        // Redis consumer group name
	Consumer  string        // Redis consumer name
	BatchSize int64         // Number of messages to read per call
	Block     time.Duration // How long to block/poll for new messages
}

// Consumer reads setting announcements. Messages that are never acked stay
// pending for the consumer that read them.
type Consumer interface {
	Read(ctx context.Context) ([]Message, error)
	Ack(ctx context.Context, msg Message) error
}

// RedisConsumer first walks its own pending list once, so messages left
// unacked by a previous run get another attempt, then reads new messages.
type RedisConsumer struct {
	client *redis.Client
	cfg    ConsumerConfig

	mu      sync.Mutex
	backlog bool
	cursor  string
}

func NewRedisConsumer(ctx context.Context, client *redis.Client, cfg ConsumerConfig) (*RedisConsumer, error) {
	consumer := &RedisConsumer{
		client:  client,
		cfg:     cfg,
		backlog: true,
		cursor:  "0",
	}

	if err := consumer.ensureGroup(ctx); err != nil {
		return nil, err
	}

	return consumer, nil
}

func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	// "$" skips history: a starting instance loads the current value itself,
	// so only saves after that point matter.
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

func (c *RedisConsumer) Read(ctx context.Context) ([]Message, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "alertmanager.queue.consumer",
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	start := ">"
	if c.backlog {
		start = c.cursor
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, start},
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	raw := flatten(streams)
	if c.backlog {
		if len(raw) == 0 {
			c.backlog = false
			slog.DebugContext(ctx, "pending backlog drained", "stream", c.cfg.Stream)
		} else {
			c.cursor = raw[len(raw)-1].ID
		}
	}

	messages := make([]Message, 0, len(raw))
	for _, msg := range raw {
		parsed, parseErr := ParseMessage(msg)
		if parseErr != nil {
			slog.ErrorContext(ctx, "dropping unparseable message",
				"error", parseErr,
				"raw_message_id", msg.ID,
				"stream", c.cfg.Stream)
			_ = c.Ack(ctx, Message{ID: msg.ID, Raw: msg})
			continue
		}
		messages = append(messages, parsed)
	}

	if len(messages) > 0 {
		slog.DebugContext(ctx, "read messages from stream",
			"count", len(messages),
			"stream", c.cfg.Stream,
			"consumer", c.cfg.Consumer,
			"pending", start != ">")
	}

	return messages, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}

	slog.DebugContext(ctx, "message acknowledged", "stream", c.cfg.Stream, "message_id", msg.ID)
	return nil
}

func flatten(streams []redis.XStream) []redis.XMessage {
	var out []redis.XMessage
	for _, s := range streams {
		out = append(out, s.Messages...)
	}
	return out
}
