// Package classify is the caller-facing entry point: it validates raw input,
// runs the decision pipeline and reports the outcome.
package classify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/feedlock/internal/domain"
	"github.com/kailas-cloud/feedlock/internal/domain/analytics"
	"github.com/kailas-cloud/feedlock/internal/domain/filter"
	"github.com/kailas-cloud/feedlock/internal/domain/keyword"
	"github.com/kailas-cloud/feedlock/internal/domain/post"
	"github.com/kailas-cloud/feedlock/internal/domain/quota"
	"github.com/kailas-cloud/feedlock/internal/domain/strategy"
	"github.com/kailas-cloud/feedlock/internal/logger"
	"github.com/kailas-cloud/feedlock/internal/usecase/decision"
)

// Request is an unvalidated classification request.
type Request struct {
	UserID    string
	Tier      string
	PostID    string
	Caption   string
	Hashtags  []string
	Meta      post.Meta
	Keywords  []string
	Strategy  string
	AIEnabled bool
}

// Service validates requests and runs them through the decision engine.
type Service struct {
	decider         Decider
	reporter        Reporter
	defaultStrategy strategy.Strategy
	now             func() time.Time
}

// New creates a classify service. reporter may be nil.
func New(decider Decider, reporter Reporter, defaultStrategy strategy.Strategy) *Service {
	if !defaultStrategy.IsValid() {
		defaultStrategy = strategy.Default
	}
	return &Service{
		decider:         decider,
		reporter:        reporter,
		defaultStrategy: defaultStrategy,
		now:             time.Now,
	}
}

// Classify decides whether the post is shown to the user.
func (s *Service) Classify(ctx context.Context, req Request) (filter.Result, error) {
	in, err := s.buildInput(req)
	if err != nil {
		return filter.Result{}, err
	}

	ctx = logger.WithFields(ctx, zap.String("post_id", req.PostID), zap.String("user_id", req.UserID))

	res, err := s.decider.Decide(ctx, in)
	if err != nil {
		return filter.Result{}, fmt.Errorf("classify post %s: %w", req.PostID, err)
	}

	logger.FromContext(ctx).Debug("Post classified",
		zap.String("strategy", string(in.Strategy)),
		zap.String("decision", string(res.Decision())),
		zap.String("method", string(res.Method())),
		zap.Float64("score", res.Score()),
	)

	if s.reporter != nil && req.UserID != "" {
		s.reporter.Report(analytics.FromResult(req.UserID, req.PostID, res, s.now().UTC()))
	}
	return res, nil
}

func (s *Service) buildInput(req Request) (decision.Input, error) {
	p, err := post.New(req.PostID, req.Caption, req.Hashtags, req.Meta)
	if err != nil {
		return decision.Input{}, err
	}

	kws, err := keyword.New(req.Keywords)
	if err != nil {
		return decision.Input{}, err
	}

	strat := s.defaultStrategy
	if req.Strategy != "" {
		if strat, err = strategy.Parse(req.Strategy); err != nil {
			return decision.Input{}, err
		}
	}

	tier := quota.TierFree
	if req.Tier != "" {
		if tier, err = quota.ParseTier(req.Tier); err != nil {
			return decision.Input{}, err
		}
	}

	if req.AIEnabled && req.UserID == "" {
		return decision.Input{}, domain.NewValidationError("user_id", "required when ai is enabled")
	}

	return decision.Input{
		Post:      p,
		Keywords:  kws,
		Strategy:  strat,
		AIEnabled: req.AIEnabled,
		Subject:   decision.Subject{UserID: req.UserID, Tier: tier},
	}, nil
}
