package classify

import (
	"context"

	"github.com/kailas-cloud/feedlock/internal/domain/analytics"
	"github.com/kailas-cloud/feedlock/internal/domain/filter"
	"github.com/kailas-cloud/feedlock/internal/usecase/decision"
)

// Decider runs the decision pipeline.
type Decider interface {
	Decide(ctx context.Context, in decision.Input) (filter.Result, error)
}

// Reporter accepts events for asynchronous delivery.
type Reporter interface {
	Report(e analytics.Event) bool
}
