// Package ratelimiter implements a shared token-bucket rate limiter on Redis
// and the HTTP middleware that applies it per client.
package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	obsctx "github.com/fairyhunter13/scholarship-matcher/internal/observability"
)

// Limiter decides whether subject may spend cost tokens from bucket.
type Limiter interface {
	Allow(ctx context.Context, bucket, subject string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// BucketConfig describes one token bucket.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64 // tokens per second
}

// NewBucketConfigFromPerMinute builds a bucket that allows perMinute requests
// per minute with bursts up to perMinute.
func NewBucketConfigFromPerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{
		Capacity:   int64(perMinute),
		RefillRate: float64(perMinute) / 60.0,
	}
}

func (c BucketConfig) enabled() bool { return c.Capacity > 0 && c.RefillRate > 0 }

// ttl is how long an idle bucket lives before Redis evicts it; by then it is full again.
func (c BucketConfig) ttl() int64 {
	return int64(math.Ceil(float64(c.Capacity)/c.RefillRate)) + 1
}

// RedisLuaLimiter evaluates the bucket atomically in a Lua script so every
// replica shares the same budget.
type RedisLuaLimiter struct {
	redis   redis.Scripter
	script  *redis.Script
	mu      sync.RWMutex
	buckets map[string]BucketConfig
	now     func() time.Time
}

var _ Limiter = (*RedisLuaLimiter)(nil)

// NewRedisLuaLimiter returns nil when rdb is nil; a nil limiter allows everything.
func NewRedisLuaLimiter(rdb redis.Scripter, buckets map[string]BucketConfig) *RedisLuaLimiter {
	if rdb == nil {
		return nil
	}
	if buckets == nil {
		buckets = map[string]BucketConfig{}
	}
	return &RedisLuaLimiter{
		redis:   rdb,
		script:  redis.NewScript(tokenBucketScript),
		buckets: buckets,
		now:     time.Now,
	}
}

// tokenBucketScript refills the bucket for the time elapsed since its last
// update, then spends cost if it can. It returns {allowed, remaining, wait}
// with the two floats as strings, since Redis truncates Lua numbers to integers.
const tokenBucketScript = `
local cap, rate, now, cost, ttl =
  tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])

local state = redis.call("HMGET", KEYS[1], "t", "ts")
local avail = tonumber(state[1]) or cap
local since = tonumber(state[2]) or now
avail = math.min(cap, avail + math.max(0, now - since) * rate)

local ok, wait = 0, 0
if avail >= cost then
  avail, ok = avail - cost, 1
else
  wait = (cost - avail) / rate
end

redis.call("HSET", KEYS[1], "t", tostring(avail), "ts", tostring(now))
redis.call("EXPIRE", KEYS[1], ttl)
return { ok, tostring(avail), tostring(wait) }
`

// Allow implements Limiter. Unknown buckets and Redis failures allow the
// request; the error is still returned for logging.
func (l *RedisLuaLimiter) Allow(ctx context.Context, bucket, subject string, cost int64) (bool, time.Duration, error) {
	if l == nil || l.redis == nil {
		return true, 0, nil
	}
	l.mu.RLock()
	cfg, ok := l.buckets[bucket]
	l.mu.RUnlock()
	if !ok || !cfg.enabled() {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}
	now := float64(l.now().UnixNano()) / float64(time.Second)
	res, err := l.script.Run(ctx, l.redis, []string{bucketKey(bucket, subject)},
		cfg.Capacity, cfg.RefillRate, now, cost, cfg.ttl()).Slice()
	if err != nil {
		obsctx.LoggerFromContext(ctx).Error("rate limiter script failed", slog.String("bucket", bucket), slog.Any("error", err))
		return true, 0, fmt.Errorf("op=ratelimiter.allow: %w", err)
	}
	if len(res) < 3 {
		obsctx.LoggerFromContext(ctx).Error("rate limiter script returned short result", slog.String("bucket", bucket), slog.Int("len", len(res)))
		return true, 0, nil
	}
	wait := time.Duration(scriptNumber(res[2]) * float64(time.Second))
	return scriptNumber(res[0]) == 1, wait, nil
}

func bucketKey(bucket, subject string) string { return "rate:" + bucket + ":" + subject }

// SetBucketConfig updates or creates the configuration of a bucket. It is safe
// for concurrent use.
func (l *RedisLuaLimiter) SetBucketConfig(bucket string, cfg BucketConfig) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[bucket] = cfg
}

// scriptNumber reads an integer or stringified float from a script reply.
func scriptNumber(v any) float64 {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
