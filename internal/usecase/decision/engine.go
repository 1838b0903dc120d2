// Package decision turns keyword match scores into SHOW/HIDE decisions,
// escalating inconclusive posts to the AI classifier.
package decision

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/feedlock/internal/domain/filter"
	"github.com/kailas-cloud/feedlock/internal/domain/keyword"
	"github.com/kailas-cloud/feedlock/internal/domain/post"
	"github.com/kailas-cloud/feedlock/internal/domain/quota"
	"github.com/kailas-cloud/feedlock/internal/domain/strategy"
	"github.com/kailas-cloud/feedlock/internal/metrics"
)

const (
	// DefaultAITimeout bounds a single classifier call.
	DefaultAITimeout = 5 * time.Second
	// NeutralScore replaces the classifier score when the call fails.
	NeutralScore = 0.5
)

// Subject identifies who pays for an AI classification.
type Subject struct {
	UserID string
	Tier   quota.Tier
}

// Input is a single decision request.
type Input struct {
	Post      post.Content
	Keywords  keyword.Set
	Strategy  strategy.Strategy
	AIEnabled bool
	Subject   Subject
}

// Engine decides whether a post is shown.
type Engine struct {
	matcher    Matcher
	classifier Classifier
	cache      ScoreCache
	quota      QuotaGate
	aiTimeout  time.Duration
	logger     *zap.Logger
}

// New creates a decision engine.
// A nil classifier disables escalation; nil cache and quota are skipped.
func New(
	matcher Matcher, classifier Classifier, cache ScoreCache, gate QuotaGate,
	aiTimeout time.Duration, logger *zap.Logger,
) *Engine {
	if aiTimeout <= 0 {
		aiTimeout = DefaultAITimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		matcher:    matcher,
		classifier: classifier,
		cache:      cache,
		quota:      gate,
		aiTimeout:  aiTimeout,
		logger:     logger,
	}
}

// Decide runs the pipeline for one post.
// Only an invalid strategy or a quota rejection produce an error; AI failures degrade to NeutralScore.
func (e *Engine) Decide(ctx context.Context, in Input) (filter.Result, error) {
	start := time.Now()

	th, err := in.Strategy.Thresholds()
	if err != nil {
		return filter.Result{}, fmt.Errorf("resolve thresholds: %w", err)
	}

	m := e.matcher.Match(in.Post, in.Keywords)
	score := m.Score()
	matched := m.MatchedKeywords()

	finish := func(d filter.Decision, s float64, method filter.Method) (filter.Result, error) {
		metrics.DecisionsTotal.WithLabelValues(string(in.Strategy), string(method), string(d)).Inc()
		return filter.NewResult(d, s, method, matched, time.Since(start)), nil
	}

	switch {
	case score >= th.KeywordShow:
		return finish(filter.Show, score, filter.MethodKeyword)
	case score <= th.KeywordHide:
		return finish(filter.Hide, score, filter.MethodKeyword)
	case !in.AIEnabled || e.classifier == nil || m.Decision() != filter.Uncertain:
		// Between the strategy thresholds but not uncertain to the matcher itself
		// (strict above 0.8, relaxed at or below 0.3): hidden without AI.
		return finish(filter.Hide, score, filter.MethodKeyword)
	}

	postID := in.Post.ID()
	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, postID, in.Keywords); ok {
			return finish(aiDecision(cached, th), cached, filter.MethodCached)
		}
	}

	if e.quota != nil {
		if err := e.quota.CheckAndEnforce(ctx, in.Subject.UserID, in.Subject.Tier); err != nil {
			return filter.Result{}, fmt.Errorf("ai quota: %w", err)
		}
	}

	aiScore, ok := e.classifyOrNeutral(ctx, in.Post, in.Keywords)
	if ok && e.cache != nil {
		e.cache.Set(ctx, postID, in.Keywords, aiScore, 0)
	}

	return finish(aiDecision(aiScore, th), aiScore, filter.MethodHybrid)
}

// Thresholds returns the threshold set of a strategy.
func (e *Engine) Thresholds(s strategy.Strategy) (strategy.Thresholds, error) {
	th, err := s.Thresholds()
	if err != nil {
		return strategy.Thresholds{}, fmt.Errorf("resolve thresholds: %w", err)
	}
	return th, nil
}

// Strategies lists every supported strategy, strictest first.
func (e *Engine) Strategies() []strategy.Strategy {
	return strategy.All()
}

// classifyOrNeutral calls the classifier under its own deadline.
// The bool reports whether the score came from the classifier.
func (e *Engine) classifyOrNeutral(ctx context.Context, p post.Content, keywords keyword.Set) (float64, bool) {
	aiCtx, cancel := context.WithTimeout(ctx, e.aiTimeout)
	defer cancel()

	score, err := e.classifier.Classify(aiCtx, p, keywords)
	if err != nil {
		metrics.ClassifierFallbackTotal.Inc()
		e.logger.Warn("ai classification failed, using neutral score",
			zap.String("post_id", p.ID()),
			zap.Float64("score", NeutralScore),
			zap.Error(err),
		)
		return NeutralScore, false
	}
	if score < 0 || score > 1 {
		metrics.ClassifierFallbackTotal.Inc()
		e.logger.Warn("ai score out of range, using neutral score",
			zap.String("post_id", p.ID()),
			zap.Float64("raw_score", score),
		)
		return NeutralScore, false
	}
	return score, true
}

func aiDecision(score float64, th strategy.Thresholds) filter.Decision {
	if score >= th.AIShow {
		return filter.Show
	}
	return filter.Hide
}
