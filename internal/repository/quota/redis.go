// Package quota persists daily AI call counters in Redis/Valkey, PostgreSQL or memory.
package quota

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/feedlock/internal/domain"
	domquota "github.com/kailas-cloud/feedlock/internal/domain/quota"
)

var counterPrefix = domain.KeyPrefix + "quota:"

// counterTTL keeps yesterday's counters around for reporting; the reset job removes them earlier.
const counterTTL = 48 * time.Hour

// incrementScript checks and increments a counter hash atomically.
// KEYS[1] counter hash; ARGV: limit (negative = unlimited), tier, user id, ttl seconds.
// Returns {allowed, calls}.
const incrementScript = `
local calls = tonumber(redis.call('HGET', KEYS[1], 'calls') or '0')
local limit = tonumber(ARGV[1])
if limit >= 0 and calls >= limit then
  return {0, calls}
end
calls = redis.call('HINCRBY', KEYS[1], 'calls', 1)
redis.call('HSET', KEYS[1], 'tier', ARGV[2], 'user_id', ARGV[3])
redis.call('EXPIRE', KEYS[1], ARGV[4], 'NX')
return {1, calls}
`

// kvStore is the consumer interface for the Redis quota store (ISP).
type kvStore interface {
	Eval(ctx context.Context, script string, keys, args []string) ([]int64, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) (int64, error)
}

// RedisStore keeps one hash per user and day: feedlock:quota:{day}:{user}.
type RedisStore struct {
	store kvStore
}

// NewRedis creates a Redis-backed quota store.
func NewRedis(s kvStore) *RedisStore {
	return &RedisStore{store: s}
}

func counterKey(day domquota.Day, userID string) string {
	return counterPrefix + string(day) + ":" + userID
}

// IncrementIfBelow runs the check-and-increment script.
func (r *RedisStore) IncrementIfBelow(
	ctx context.Context, userID string, tier domquota.Tier, day domquota.Day, limit int64,
) (bool, int64, error) {
	args := []string{
		strconv.FormatInt(limit, 10),
		string(tier),
		userID,
		strconv.FormatInt(int64(counterTTL.Seconds()), 10),
	}
	res, err := r.store.Eval(ctx, incrementScript, []string{counterKey(day, userID)}, args)
	if err != nil {
		return false, 0, fmt.Errorf("quota increment: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("quota increment: unexpected reply %v", res)
	}
	return res[0] == 1, res[1], nil
}

// Calls returns the user's counter for the day, 0 when absent.
func (r *RedisStore) Calls(ctx context.Context, userID string, day domquota.Day) (int64, error) {
	m, err := r.store.HGetAll(ctx, counterKey(day, userID))
	if err != nil {
		return 0, fmt.Errorf("quota calls: %w", err)
	}
	return parseCalls(m["calls"])
}

// Records lists every counter of the day.
func (r *RedisStore) Records(ctx context.Context, day domquota.Day) ([]domquota.Record, error) {
	keys, err := r.store.Scan(ctx, counterPrefix+string(day)+":*")
	if err != nil {
		return nil, fmt.Errorf("scan quota counters: %w", err)
	}
	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load quota counters: %w", err)
	}

	out := make([]domquota.Record, 0, len(hashes))
	for _, h := range hashes {
		calls, err := parseCalls(h["calls"])
		if err != nil {
			return nil, err
		}
		out = append(out, domquota.Record{
			UserID:     h["user_id"],
			Tier:       domquota.Tier(h["tier"]),
			Day:        day,
			CallsToday: calls,
		})
	}
	return out, nil
}

// DeleteBefore removes counters of days strictly before day.
func (r *RedisStore) DeleteBefore(ctx context.Context, day domquota.Day) (int, error) {
	keys, err := r.store.Scan(ctx, counterPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("scan quota counters: %w", err)
	}

	var stale []string
	for _, k := range keys {
		if keyDay(k) < day {
			stale = append(stale, k)
		}
	}
	n, err := r.store.Del(ctx, stale...)
	if err != nil {
		return 0, fmt.Errorf("delete quota counters: %w", err)
	}
	return int(n), nil
}

// keyDay extracts the YYYY-MM-DD segment; user ids may contain ':' so the segment is positional.
func keyDay(key string) domquota.Day {
	rest := strings.TrimPrefix(key, counterPrefix)
	if len(rest) < len(time.DateOnly) {
		return ""
	}
	return domquota.Day(rest[:len(time.DateOnly)])
}

func parseCalls(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quota calls %q: %w", v, err)
	}
	return n, nil
}
