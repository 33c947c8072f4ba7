package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const consumerGroup = "ledgerd"

// Redis implements Queue on a Redis Stream with a consumer group. Messages
// are acknowledged and trimmed only on Delete, so anything received but not
// deleted stays pending for a future consumer.
type Redis struct {
	client   *redis.Client
	stream   string
	consumer string
}

// NewRedis ensures the stream and consumer group exist. The client is
// injected so tests and callers control connection lifecycle.
func NewRedis(ctx context.Context, client *redis.Client, stream string) (*Redis, error) {
	err := client.XGroupCreateMkStream(ctx, stream, consumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return &Redis{client: client, stream: stream, consumer: consumerGroup + "-worker"}, nil
}

func (q *Redis) Send(ctx context.Context, body []byte) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{"body": body},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}
	return nil
}

func (q *Redis) Receive(ctx context.Context) (*Message, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    -1, // non-blocking poll
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			body, ok := msg.Values["body"].(string)
			if !ok {
				// Still surface the message; the worker records it as
				// undecodable and deletes it.
				return &Message{ID: msg.ID}, nil
			}
			return &Message{ID: msg.ID, Body: []byte(body)}, nil
		}
	}
	return nil, nil
}

func (q *Redis) Delete(ctx context.Context, id string) error {
	pipe := q.client.TxPipeline()
	pipe.XAck(ctx, q.stream, consumerGroup, id)
	pipe.XDel(ctx, q.stream, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", id, err)
	}
	return nil
}
