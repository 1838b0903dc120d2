package chi

import (
	"context"
	"time"

	"github.com/kailas-cloud/feedlock/internal/domain/cache"
	"github.com/kailas-cloud/feedlock/internal/domain/filter"
	"github.com/kailas-cloud/feedlock/internal/domain/keyword"
	domquota "github.com/kailas-cloud/feedlock/internal/domain/quota"
	"github.com/kailas-cloud/feedlock/internal/domain/strategy"
	classifyuc "github.com/kailas-cloud/feedlock/internal/usecase/classify"
	healthuc "github.com/kailas-cloud/feedlock/internal/usecase/health"
	"github.com/kailas-cloud/feedlock/internal/usecase/maintenance"
)

type classifier interface {
	Classify(ctx context.Context, req classifyuc.Request) (filter.Result, error)
}

type scoreCache interface {
	TTL() time.Duration
	Get(ctx context.Context, postID string, keywords keyword.Set) (float64, bool)
	Set(ctx context.Context, postID string, keywords keyword.Set, score float64, ttl time.Duration)
	Invalidate(ctx context.Context, postID string) int
	SweepExpired(ctx context.Context) (int, error)
	Stats(ctx context.Context) (cache.Stats, error)
}

type quotaService interface {
	CheckAndEnforce(ctx context.Context, userID string, tier domquota.Tier) error
	CurrentUsage(ctx context.Context, userID string, tier domquota.Tier) (domquota.Usage, error)
	Stats(ctx context.Context) (domquota.Stats, error)
	ResetDailyLimits(ctx context.Context) (int, error)
}

type strategyCatalog interface {
	Strategies() []strategy.Strategy
	Thresholds(s strategy.Strategy) (strategy.Thresholds, error)
}

type healthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

type jobRunner interface {
	RunNow(ctx context.Context, name string) (int, error)
	Status() []maintenance.JobStatus
}
