// Package quota caps AI classification calls per user per UTC day.
package quota

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/feedlock/internal/domain"
	domquota "github.com/kailas-cloud/feedlock/internal/domain/quota"
	"github.com/kailas-cloud/feedlock/internal/metrics"
)

// StoreErrorPolicy defines behavior when the counter store is unreachable.
type StoreErrorPolicy string

const (
	// OnStoreErrorAllow admits the call without counting it.
	OnStoreErrorAllow StoreErrorPolicy = "allow"
	// OnStoreErrorDeny rejects the call as over quota.
	OnStoreErrorDeny StoreErrorPolicy = "deny"
)

// IsValid checks if the policy is one of the supported values.
func (p StoreErrorPolicy) IsValid() bool {
	return p == OnStoreErrorAllow || p == OnStoreErrorDeny
}

// storeErrorRetryAfter is the retry hint returned when OnStoreErrorDeny rejects a call.
const storeErrorRetryAfter int64 = 60

// Enforcer gates AI classifier calls against per-tier daily limits.
type Enforcer struct {
	store  Store
	limits domquota.Limits
	policy StoreErrorPolicy
	logger *zap.Logger
	now    func() time.Time
}

// New creates a quota enforcer. An invalid policy falls back to OnStoreErrorAllow.
func New(s Store, limits domquota.Limits, policy StoreErrorPolicy, logger *zap.Logger) *Enforcer {
	if !policy.IsValid() {
		policy = OnStoreErrorAllow
	}
	if limits == nil {
		limits = domquota.DefaultLimits()
	}
	return &Enforcer{
		store:  s,
		limits: limits,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// CheckAndEnforce admits one AI call for the user or returns *domain.QuotaExceededError.
// Admitted calls are counted in the same atomic store operation.
func (e *Enforcer) CheckAndEnforce(ctx context.Context, userID string, tier domquota.Tier) error {
	if userID == "" {
		return domain.NewValidationError("user_id", "must not be empty")
	}
	limit, err := e.limits.For(tier)
	if err != nil {
		return fmt.Errorf("check quota: %w", err)
	}

	now := e.now().UTC()
	allowed, calls, err := e.store.IncrementIfBelow(ctx, userID, tier, domquota.DayOf(now), limit)
	if err != nil {
		metrics.QuotaChecksTotal.WithLabelValues(string(tier), "store_error").Inc()
		e.logger.Error("Quota store unavailable",
			zap.String("user_id", userID),
			zap.String("policy", string(e.policy)),
			zap.Error(err),
		)
		if e.policy == OnStoreErrorDeny {
			return domain.NewQuotaExceeded(storeErrorRetryAfter)
		}
		return nil
	}

	if !allowed {
		metrics.QuotaChecksTotal.WithLabelValues(string(tier), "rejected").Inc()
		e.logger.Warn("AI quota exceeded",
			zap.String("user_id", userID),
			zap.String("tier", string(tier)),
			zap.Int64("calls_today", calls),
			zap.Int64("limit", limit),
		)
		return domain.NewQuotaExceeded(domquota.RetryAfterSeconds(now))
	}

	metrics.QuotaChecksTotal.WithLabelValues(string(tier), "allowed").Inc()
	return nil
}

// CurrentUsage reports today's consumption. Store failures yield zero usage.
func (e *Enforcer) CurrentUsage(ctx context.Context, userID string, tier domquota.Tier) (domquota.Usage, error) {
	limit, err := e.limits.For(tier)
	if err != nil {
		return domquota.Usage{}, fmt.Errorf("current usage: %w", err)
	}

	now := e.now().UTC()
	calls, err := e.store.Calls(ctx, userID, domquota.DayOf(now))
	if err != nil {
		e.logger.Warn("Failed to read quota usage", zap.String("user_id", userID), zap.Error(err))
		calls = 0
	}
	return domquota.NewUsage(calls, limit, now), nil
}

// Stats summarizes today's consumption across users.
func (e *Enforcer) Stats(ctx context.Context) (domquota.Stats, error) {
	day := domquota.DayOf(e.now())
	records, err := e.store.Records(ctx, day)
	if err != nil {
		return domquota.Stats{}, fmt.Errorf("quota stats: %w", err)
	}
	return domquota.Summarize(day, records, e.limits), nil
}

// ResetDailyLimits deletes counters of past days and returns how many were removed.
func (e *Enforcer) ResetDailyLimits(ctx context.Context) (int, error) {
	n, err := e.store.DeleteBefore(ctx, domquota.DayOf(e.now()))
	if err != nil {
		return 0, fmt.Errorf("reset daily limits: %w", err)
	}
	e.logger.Info("Daily quota counters reset", zap.Int("removed", n))
	return n, nil
}

// Limits returns the configured tier limits.
func (e *Enforcer) Limits() domquota.Limits { return e.limits }
