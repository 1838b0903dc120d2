// Package scorecache persists classification cache entries in Redis/Valkey, PostgreSQL or memory.
package scorecache

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/feedlock/internal/db"
	"github.com/kailas-cloud/feedlock/internal/domain"
	"github.com/kailas-cloud/feedlock/internal/domain/cache"
)

var (
	entryPrefix     = domain.KeyPrefix + "score:"
	postIndexPrefix = domain.KeyPrefix + "score_post:"
)

// kvStore is the consumer interface for the Redis cache store (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	ExtendExpire(ctx context.Context, key string, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// RedisStore keeps each entry as a JSON string with a native TTL.
// A per-post set indexes entry keys so a post can be invalidated without a SCAN.
type RedisStore struct {
	store kvStore
	now   func() time.Time
}

// NewRedis creates a Redis-backed cache store.
func NewRedis(s kvStore) *RedisStore {
	return &RedisStore{store: s, now: time.Now}
}

// Get loads an entry by cache key.
func (r *RedisStore) Get(ctx context.Context, key string) (cache.Entry, error) {
	data, err := r.store.Get(ctx, entryPrefix+key)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("get cache entry: %w", err)
	}
	return unmarshalEntry(key, data)
}

// Put writes an entry with a TTL matching its expiry. Already expired entries are skipped.
func (r *RedisStore) Put(ctx context.Context, e cache.Entry) error {
	ttl := e.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	data, err := marshalEntry(e)
	if err != nil {
		return err
	}
	if err := r.store.SetWithTTL(ctx, entryPrefix+e.Key, data, ttl); err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}

	idx := postIndexPrefix + e.PostID
	if err := r.store.SAdd(ctx, idx, e.Key); err != nil {
		return fmt.Errorf("index cache entry: %w", err)
	}
	// The index outlives every entry it lists.
	if err := r.store.ExtendExpire(ctx, idx, ttl); err != nil {
		return fmt.Errorf("expire cache index: %w", err)
	}
	return nil
}

// Delete removes one entry. Returns db.ErrKeyNotFound when absent.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	e, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	if _, err := r.store.Del(ctx, entryPrefix+key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	if err := r.store.SRem(ctx, postIndexPrefix+e.PostID, key); err != nil {
		return fmt.Errorf("unindex cache entry: %w", err)
	}
	return nil
}

// DeleteByPost removes every entry of a post together with its index.
func (r *RedisStore) DeleteByPost(ctx context.Context, postID string) (int, error) {
	idx := postIndexPrefix + postID
	members, err := r.store.SMembers(ctx, idx)
	if err != nil {
		return 0, fmt.Errorf("list post entries: %w", err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = entryPrefix + m
	}
	n, err := r.store.Del(ctx, keys...)
	if err != nil {
		return 0, fmt.Errorf("delete post entries: %w", err)
	}
	if _, err := r.store.Del(ctx, idx); err != nil {
		return int(n), fmt.Errorf("delete post index: %w", err)
	}
	return int(n), nil
}

// DeleteExpired prunes index references to entries Redis has already expired.
// The count is the number of expired entries accounted for.
func (r *RedisStore) DeleteExpired(ctx context.Context, _ time.Time) (int, error) {
	removed := 0
	err := r.walkIndex(ctx, func(idx string, live, stale []string) error {
		if len(stale) == 0 {
			return nil
		}
		if err := r.store.SRem(ctx, idx, stale...); err != nil {
			return fmt.Errorf("prune cache index: %w", err)
		}
		removed += len(stale)
		return nil
	})
	return removed, err
}

// Stats counts indexed entries; references whose entry has expired count as expired.
func (r *RedisStore) Stats(ctx context.Context, _ time.Time) (cache.Stats, error) {
	var st cache.Stats
	err := r.walkIndex(ctx, func(_ string, live, stale []string) error {
		st.Active += len(live)
		st.Expired += len(stale)
		return nil
	})
	st.Total = st.Active + st.Expired
	return st, err
}

// walkIndex visits every post index, splitting members into live and expired entries.
func (r *RedisStore) walkIndex(ctx context.Context, fn func(idx string, live, stale []string) error) error {
	indexes, err := r.store.Scan(ctx, postIndexPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan cache indexes: %w", err)
	}
	for _, idx := range indexes {
		members, err := r.store.SMembers(ctx, idx)
		if err != nil {
			return fmt.Errorf("list cache index %s: %w", idx, err)
		}
		var live, stale []string
		for _, m := range members {
			ok, err := r.store.Exists(ctx, entryPrefix+m)
			if err != nil {
				return fmt.Errorf("check cache entry: %w", err)
			}
			if ok {
				live = append(live, m)
			} else {
				stale = append(stale, m)
			}
		}
		if err := fn(idx, live, stale); err != nil {
			return err
		}
	}
	return nil
}

// compile-time check against the redis driver
var _ kvStore = (db.Store)(nil)
