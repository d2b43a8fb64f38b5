package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, subject Subject, bucket Bucket) (Decision, error)
}

// RedisLimiter is a generic cell rate limiter. Each subject keeps a single key,
// its theoretical arrival time in unix milliseconds, which expires as soon as
// the subject is back to a full burst.
type RedisLimiter struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, now: time.Now}
}

// KEYS[1] subject key; ARGV now_ms, interval_ms, burst.
// Returns {allowed, retry_after_ms, remaining}.
var gcraScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local interval = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])

local tat = now
local stored = redis.call("GET", KEYS[1])
if stored then
  tat = math.max(tonumber(stored), now)
end

local next_tat = tat + interval
local allow_at = next_tat - burst * interval
if allow_at > now then
  return {0, allow_at - now, 0}
end

redis.call("SET", KEYS[1], next_tat, "PX", next_tat - now)
return {1, 0, math.floor((now - allow_at) / interval)}
`)

func (l *RedisLimiter) Allow(ctx context.Context, subject Subject, bucket Bucket) (Decision, error) {
	if l == nil || l.rdb == nil || !bucket.Enabled() {
		return Decision{Allowed: true}, nil
	}
	nowMS := l.now().UnixMilli()
	res, err := gcraScript.Run(ctx, l.rdb, []string{subject.key()},
		nowMS, bucket.interval().Milliseconds(), bucket.BurstSize).Result()
	if err != nil {
		return Decision{}, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit reply: %v", res)
	}
	allowed, _ := vals[0].(int64)
	retryMS, _ := vals[1].(int64)
	remaining, _ := vals[2].(int64)

	if allowed == 1 {
		return Decision{Allowed: true, Remaining: int(remaining)}, nil
	}
	return Decision{RetryAfter: time.Duration(retryMS) * time.Millisecond}, nil
}
