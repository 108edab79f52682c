package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// NewRedis connects the rate-limit store. Every send waits on a throttle
// check, so a dead Redis is caught at startup rather than mid-dispatch.
func NewRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	// Throttle checks sit on the dispatch hot path; give transient
	// hiccups a short retry budget instead of surfacing immediately.
	opts.MaxRetries = 3
	opts.MinRetryBackoff = 10 * time.Millisecond
	opts.MaxRetryBackoff = 100 * time.Millisecond

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
