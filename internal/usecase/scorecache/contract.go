package scorecache

import (
	"context"
	"time"

	"github.com/kailas-cloud/feedlock/internal/domain/cache"
)

// Store persists cache entries. Get returns db.ErrKeyNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (cache.Entry, error)
	Put(ctx context.Context, e cache.Entry) error
	Delete(ctx context.Context, key string) error
	DeleteByPost(ctx context.Context, postID string) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	Stats(ctx context.Context, now time.Time) (cache.Stats, error)
}
