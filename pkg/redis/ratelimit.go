package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const minRetry = 50 * time.Millisecond

type RateLimitResult struct {
	Allowed   bool
	Remaining int64
	RetryIn   time.Duration
}

// RateLimiter is a sliding-window limiter shared by every process using the same Redis.
type RateLimiter struct {
	client    *Client
	keyPrefix string
	limit     int64
	window    time.Duration
}

var allowScript = goredis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call("zremrangebyscore", key, "-inf", window_start)
	local current = redis.call("zcard", key)

	if current < limit then
		redis.call("zadd", key, now, ARGV[5])
		redis.call("pexpire", key, window_ms)
		return {1, limit - current - 1, 0}
	end

	local oldest = redis.call("zrange", key, 0, 0, "WITHSCORES")
	if #oldest > 0 then
		return {0, 0, oldest[2]}
	end
	return {0, 0, 0}
`)

// NewRateLimiter allows limit requests per key in any window.
func NewRateLimiter(client *Client, keyPrefix string, limit int64, window time.Duration) *RateLimiter {
	if keyPrefix == "" {
		keyPrefix = "bramble:ratelimit:"
	}
	return &RateLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		window:    window,
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case string:
		// zrange scores come back as strings
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}

// Allow records one request against key if the window has room.
func (r *RateLimiter) Allow(ctx context.Context, key string) (RateLimitResult, error) {
	now := time.Now()
	result, err := allowScript.Run(ctx, r.client.rdb, []string{r.keyPrefix + key},
		now.UnixMilli(),
		now.Add(-r.window).UnixMilli(),
		r.limit,
		r.window.Milliseconds(),
		uuid.New().String(),
	).Slice()
	if err != nil {
		return RateLimitResult{}, err
	}

	values := make([]int64, len(result))
	for i, v := range result {
		if values[i], err = toInt64(v); err != nil {
			return RateLimitResult{}, err
		}
	}

	res := RateLimitResult{Allowed: values[0] == 1, Remaining: values[1]}
	if !res.Allowed {
		res.RetryIn = minRetry
		if values[2] > 0 {
			res.RetryIn = max(time.UnixMilli(values[2]).Add(r.window).Sub(now), minRetry)
		}
	}
	return res, nil
}

// Wait blocks until key has room in the window or ctx ends.
func (r *RateLimiter) Wait(ctx context.Context, key string) error {
	for {
		res, err := r.Allow(ctx, key)
		if err != nil {
			return err
		}
		if res.Allowed {
			return nil
		}

		r.client.logger.WithContext(ctx).Debugf("Rate limit reached for %s, retrying in %s", key, res.RetryIn)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(res.RetryIn):
		}
	}
}
