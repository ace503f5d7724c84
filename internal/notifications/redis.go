package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisClient is the subset of *redis.Client used for event delivery.
type redisClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	Close() error
}

type redisPublisher struct {
	client  redisClient
	channel string
}

// NewRedis publishes JSON events on a pub/sub channel and mirrors the latest
// state of each task into the hash "<channel>:task:<id>".
func NewRedis(url, channel string) (Publisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return newRedisPublisher(redis.NewClient(opts), channel), nil
}

func newRedisPublisher(client redisClient, channel string) *redisPublisher {
	return &redisPublisher{client: client, channel: channel}
}

func (r *redisPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, body).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}

	fields := []any{"progress", event.Progress, "updated_at", event.Timestamp.Unix()}
	if event.Status != "" {
		fields = append(fields, "status", event.Status)
	} else {
		fields = append(fields, "status", "processing")
	}
	if event.Message != "" {
		fields = append(fields, "message", event.Message)
	}
	if event.ResultPath != "" {
		fields = append(fields, "result_path", event.ResultPath)
	}
	if event.Error != "" {
		fields = append(fields, "error", event.Error)
	}
	if err := r.client.HSet(ctx, r.taskKey(event.TaskID), fields...).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (r *redisPublisher) Close() error {
	return r.client.Close()
}

func (r *redisPublisher) taskKey(taskID string) string {
	return r.channel + ":task:" + taskID
}
