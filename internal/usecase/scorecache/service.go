// Package scorecache memoizes AI classification scores per post and keyword set.
//
// Lookups and writes never fail the caller: store errors degrade to a miss or a dropped write.
package scorecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/feedlock/internal/db"
	"github.com/kailas-cloud/feedlock/internal/domain/cache"
	"github.com/kailas-cloud/feedlock/internal/domain/keyword"
)

// Service is the classification cache.
type Service struct {
	store      Store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a cache service. Non-positive ttl selects cache.DefaultTTL.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"error"), passed explicitly.
func New(s Store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Service{
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
		now:        time.Now,
	}
}

// TTL returns the default entry lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Get returns the cached score. Missing, expired and unreadable entries are all a miss.
func (s *Service) Get(ctx context.Context, postID string, keywords keyword.Set) (float64, bool) {
	key := cache.Key(postID, keywords)

	e, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			s.incCache("miss")
		} else {
			s.incCache("error")
			s.logger.Warn("Failed to read cached score", zap.String("key", key), zap.Error(err))
		}
		return 0, false
	}

	if e.Expired(s.now()) {
		s.incCache("miss")
		return 0, false
	}

	s.incCache("hit")
	return e.Score, true
}

// Set stores a score for ttl (non-positive selects the service default). Failures are logged and dropped.
func (s *Service) Set(ctx context.Context, postID string, keywords keyword.Set, score float64, ttl time.Duration) {
	if score < 0 || score > 1 {
		s.logger.Warn("Refusing to cache out-of-range score",
			zap.String("post_id", postID), zap.Float64("score", score))
		return
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	e := cache.NewEntry(postID, keywords, score, s.now().UTC(), ttl)
	if err := s.store.Put(ctx, e); err != nil {
		s.logger.Warn("Failed to cache score", zap.String("key", e.Key), zap.Error(err))
	}
}

// Invalidate removes every entry of a post and returns how many were removed.
func (s *Service) Invalidate(ctx context.Context, postID string) int {
	n, err := s.store.DeleteByPost(ctx, postID)
	if err != nil {
		s.logger.Warn("Failed to invalidate cached scores", zap.String("post_id", postID), zap.Error(err))
		return 0
	}
	return n
}

// InvalidateKey removes a single entry by its fingerprint.
func (s *Service) InvalidateKey(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		s.logger.Warn("Failed to invalidate cached score", zap.String("key", key), zap.Error(err))
	}
}

// SweepExpired deletes expired entries and returns how many were removed.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep expired scores: %w", err)
	}
	if n > 0 {
		s.logger.Info("Swept expired cached scores", zap.Int("removed", n))
	}
	return n, nil
}

// Stats reports total, active and expired entry counts.
func (s *Service) Stats(ctx context.Context) (cache.Stats, error) {
	st, err := s.store.Stats(ctx, s.now().UTC())
	if err != nil {
		return cache.Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	return st, nil
}

func (s *Service) incCache(result string) {
	if s.cacheTotal != nil {
		s.cacheTotal.WithLabelValues(result).Inc()
	}
}
