package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "zeroledger:rl:"

// incrWindow counts one request and makes sure the counter expires. The TTL
// is set on the first request of a window and restored if the key ever lost
// it, so a counter can never outlive its window.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Redis shares counters between server instances. Counting and expiry run
// in one script, so each window admits exactly limit requests.
type Redis struct {
	rdb    redis.Cmdable
	limits Limits
	window time.Duration
}

func NewRedis(rdb redis.Cmdable, limits Limits, windowLen time.Duration) *Redis {
	if windowLen <= 0 {
		windowLen = DefaultWindow
	}
	return &Redis{rdb: rdb, limits: limits, window: windowLen}
}

// Allow counts the call against the (principal, tool) window in Redis.
func (r *Redis) Allow(ctx context.Context, principal, tool string) error {
	limit, metered := r.limits.lookup(tool)
	if !metered {
		return nil
	}

	k := redisKeyPrefix + key(principal, tool)
	n, err := incrWindow.Run(ctx, r.rdb, []string{k}, r.window.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	if n > int64(limit) {
		return exceeded(tool, limit)
	}
	return nil
}
