package decision

import (
	"context"
	"time"

	"github.com/kailas-cloud/feedlock/internal/domain/filter"
	"github.com/kailas-cloud/feedlock/internal/domain/keyword"
	"github.com/kailas-cloud/feedlock/internal/domain/post"
	"github.com/kailas-cloud/feedlock/internal/domain/quota"
)

// Matcher scores a post against keywords.
type Matcher interface {
	Match(p post.Content, keywords keyword.Set) filter.MatchResult
}

// Classifier asks an external model for a relevance score in [0,1].
type Classifier interface {
	Classify(ctx context.Context, p post.Content, keywords keyword.Set) (float64, error)
}

// ScoreCache memoizes classifier scores. Implementations never fail the caller.
type ScoreCache interface {
	Get(ctx context.Context, postID string, keywords keyword.Set) (float64, bool)
	Set(ctx context.Context, postID string, keywords keyword.Set, score float64, ttl time.Duration)
}

// QuotaGate admits or rejects one classifier call for a subject.
type QuotaGate interface {
	CheckAndEnforce(ctx context.Context, userID string, tier quota.Tier) error
}
