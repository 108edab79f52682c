package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/saegim/proofdesk/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultLimitPerSec = 50
	windowSeconds      = 1
	backoffStep        = 10 * time.Millisecond
	backoffMax         = 50 * time.Millisecond
)

// Fixed one-second window: INCR the window counter, stamp its expiry on
// first touch, compare against the channel's ceiling.
var throttleScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

// Limits configures per-second send ceilings. Alimtalk and SMS quotas come
// from different provider contracts, so each channel can carry its own
// ceiling; channels without one fall back to Default.
type Limits struct {
	Default    int
	PerChannel map[string]int
}

var _ ratelimit.RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter is a distributed per-second limiter shared by all worker
// pods through Redis.
type RedisRateLimiter struct {
	client       *goredis.Client
	defaultLimit int64
	channelLimit map[string]int64
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
	script       *goredis.Script
}

func NewRedisRateLimiter(client *goredis.Client, limits Limits) (*RedisRateLimiter, error) {
	return newRedisRateLimiter(client, limits, time.Now, sleepWithContext)
}

func newRedisRateLimiter(
	client *goredis.Client,
	limits Limits,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	defaultLimit := int64(limits.Default)
	if defaultLimit <= 0 {
		defaultLimit = defaultLimitPerSec
	}
	channelLimit := make(map[string]int64, len(limits.PerChannel))
	for channel, limit := range limits.PerChannel {
		if limit <= 0 {
			continue
		}
		channelLimit[normalizeChannel(channel)] = int64(limit)
	}

	return &RedisRateLimiter{
		client:       client,
		defaultLimit: defaultLimit,
		channelLimit: channelLimit,
		now:          nowFn,
		sleep:        sleepFn,
		script:       throttleScript,
	}, nil
}

// Allow consumes one send slot in the channel's current window.
func (r *RedisRateLimiter) Allow(ctx context.Context, channel string) (bool, error) {
	if r == nil || r.client == nil || r.script == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}

	normalized := normalizeChannel(channel)
	if normalized == "" {
		return false, fmt.Errorf("channel is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key := fmt.Sprintf("throttle:%s:%d", normalized, r.now().UTC().Unix())
	result, err := r.script.Run(ctx, r.client, []string{key}, r.limitFor(normalized), windowSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}

	return result == 1, nil
}

// Wait blocks until the channel has a free slot or the context ends.
func (r *RedisRateLimiter) Wait(ctx context.Context, channel string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	backoff := backoffStep
	for {
		allowed, err := r.Allow(ctx, channel)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		if err := r.sleep(ctx, backoff); err != nil {
			return err
		}

		backoff += backoffStep
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
}

func (r *RedisRateLimiter) limitFor(channel string) int64 {
	if limit, ok := r.channelLimit[channel]; ok {
		return limit
	}
	return r.defaultLimit
}

func normalizeChannel(channel string) string {
	return strings.ToLower(strings.TrimSpace(channel))
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
