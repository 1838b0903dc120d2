package decision

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/feedlock/internal/domain"
	"github.com/kailas-cloud/feedlock/internal/domain/filter"
	"github.com/kailas-cloud/feedlock/internal/domain/keyword"
	"github.com/kailas-cloud/feedlock/internal/domain/post"
	"github.com/kailas-cloud/feedlock/internal/domain/quota"
	"github.com/kailas-cloud/feedlock/internal/domain/strategy"
)

// --- mocks ---

// stubMatcher returns a fixed score with the matcher's own 0.8/0.3 verdict.
type stubMatcher struct{ score float64 }

func (m stubMatcher) Match(_ post.Content, _ keyword.Set) filter.MatchResult {
	d := filter.Uncertain
	switch {
	case m.score >= 0.8:
		d = filter.Show
	case m.score <= 0.3:
		d = filter.Hide
	}
	return filter.NewMatchResult(m.score, []string{"cooking"}, d)
}

type mockClassifier struct {
	mu    sync.Mutex
	score float64
	err   error
	block bool
	calls int
}

func (c *mockClassifier) Classify(ctx context.Context, _ post.Content, _ keyword.Set) (float64, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return c.score, c.err
}

type mockCache struct {
	scores map[string]float64
	sets   int
}

func newMockCache() *mockCache { return &mockCache{scores: map[string]float64{}} }

func (c *mockCache) Get(_ context.Context, postID string, _ keyword.Set) (float64, bool) {
	s, ok := c.scores[postID]
	return s, ok
}

func (c *mockCache) Set(_ context.Context, postID string, _ keyword.Set, score float64, _ time.Duration) {
	c.sets++
	c.scores[postID] = score
}

type mockGate struct {
	err   error
	calls int
}

func (g *mockGate) CheckAndEnforce(_ context.Context, _ string, _ quota.Tier) error {
	g.calls++
	return g.err
}

// --- helpers ---

func testInput(t *testing.T, s strategy.Strategy, ai bool) Input {
	t.Helper()
	p, err := post.New("p1", "caption", nil, post.Meta{})
	if err != nil {
		t.Fatalf("post.New: %v", err)
	}
	return Input{
		Post:      p,
		Keywords:  keyword.Of("cooking"),
		Strategy:  s,
		AIEnabled: ai,
		Subject:   Subject{UserID: "u1", Tier: quota.TierFree},
	}
}

// --- tests ---

func TestDecide_KeywordShow(t *testing.T) {
	cls := &mockClassifier{score: 0.1}
	e := New(stubMatcher{score: 0.85}, cls, newMockCache(), &mockGate{}, 0, zap.NewNop())

	res, err := e.Decide(context.Background(), testInput(t, strategy.Moderate, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision() != filter.Show || res.Method() != filter.MethodKeyword {
		t.Errorf("got %s/%s, want SHOW/keyword", res.Decision(), res.Method())
	}
	if res.Score() != 0.85 {
		t.Errorf("score = %v, want 0.85", res.Score())
	}
	if cls.calls != 0 {
		t.Errorf("classifier called %d times, want 0", cls.calls)
	}
}

func TestDecide_KeywordHide(t *testing.T) {
	cls := &mockClassifier{score: 0.9}
	e := New(stubMatcher{score: 0.3}, cls, newMockCache(), &mockGate{}, 0, zap.NewNop())

	res, err := e.Decide(context.Background(), testInput(t, strategy.Moderate, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision() != filter.Hide || res.Method() != filter.MethodKeyword {
		t.Errorf("got %s/%s, want HIDE/keyword", res.Decision(), res.Method())
	}
	if cls.calls != 0 {
		t.Errorf("classifier called %d times, want 0", cls.calls)
	}
}

func TestDecide_UncertainWithoutAI(t *testing.T) {
	cls := &mockClassifier{score: 0.9}
	gate := &mockGate{}
	e := New(stubMatcher{score: 0.6}, cls, newMockCache(), gate, 0, zap.NewNop())

	res, err := e.Decide(context.Background(), testInput(t, strategy.Moderate, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision() != filter.Hide || res.Method() != filter.MethodKeyword {
		t.Errorf("got %s/%s, want HIDE/keyword", res.Decision(), res.Method())
	}
	if cls.calls != 0 || gate.calls != 0 {
		t.Errorf("collaborators called: classifier=%d gate=%d", cls.calls, gate.calls)
	}
}

func TestDecide_NilClassifierActsAsDisabled(t *testing.T) {
	e := New(stubMatcher{score: 0.6}, nil, nil, nil, 0, nil)

	res, err := e.Decide(context.Background(), testInput(t, strategy.Moderate, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision() != filter.Hide || res.Method() != filter.MethodKeyword {
		t.Errorf("got %s/%s, want HIDE/keyword", res.Decision(), res.Method())
	}
}

func TestDecide_HybridStoresScore(t *testing.T) {
	cls := &mockClassifier{score: 0.75}
	cache := newMockCache()
	gate := &mockGate{}
	e := New(stubMatcher{score: 0.6}, cls, cache, gate, 0, zap.NewNop())

	res, err := e.Decide(context.Background(), testInput(t, strategy.Moderate, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision() != filter.Show || res.Method() != filter.MethodHybrid {
		t.Errorf("got %s/%s, want SHOW/hybrid", res.Decision(), res.Method())
	}
	if res.Score() != 0.75 {
		t.Errorf("score = %v, want 0.75", res.Score())
	}
	if gate.calls != 1 {
		t.Errorf("gate calls = %d, want 1", gate.calls)
	}
	if cache.scores["p1"] != 0.75 {
		t.Errorf("cached score = %v, want 0.75", cache.scores["p1"])
	}
	if got := res.MatchedKeywords(); len(got) != 1 || got[0] != "cooking" {
		t.Errorf("matched = %v", got)
	}
}

func TestDecide_AIFailureDegradesToNeutral(t *testing.T) {
	cls := &mockClassifier{err: domain.ErrClassifierUnavailable}
	cache := newMockCache()
	e := New(stubMatcher{score: 0.6}, cls, cache, &mockGate{}, 0, zap.NewNop())

	res, err := e.Decide(context.Background(), testInput(t, strategy.Moderate, true))
	if err != nil {
		t.Fatalf("AI failure must not surface, got %v", err)
	}
	if res.Decision() != filter.Hide || res.Method() != filter.MethodHybrid {
		t.Errorf("got %s/%s, want HIDE/hybrid", res.Decision(), res.Method())
	}
	if res.Score() != NeutralScore {
		t.Errorf("score = %v, want %v", res.Score(), NeutralScore)
	}
	if cache.sets != 0 {
		t.Errorf("neutral score must not be cached, sets = %d", cache.sets)
	}
}

func TestDecide_AIOnlyWhenMatcherUncertain(t *testing.T) {
	tests := []struct {
		name     string
		strategy strategy.Strategy
		score    float64
		want     filter.Decision
		method   filter.Method
		aiCalls  int
	}{
		{"strict between thresholds but matcher says show", strategy.Strict, 0.85, filter.Hide, filter.MethodKeyword, 0},
		{"relaxed between thresholds but matcher says hide", strategy.Relaxed, 0.25, filter.Hide, filter.MethodKeyword, 0},
		{"strict uncertain", strategy.Strict, 0.6, filter.Show, filter.MethodHybrid, 1},
		{"relaxed uncertain", strategy.Relaxed, 0.65, filter.Show, filter.MethodHybrid, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := &mockClassifier{score: 0.95}
			gate := &mockGate{}
			e := New(stubMatcher{score: tt.score}, cls, newMockCache(), gate, 0, zap.NewNop())

			res, err := e.Decide(context.Background(), testInput(t, tt.strategy, true))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Decision() != tt.want || res.Method() != tt.method {
				t.Errorf("got %s/%s, want %s/%s", res.Decision(), res.Method(), tt.want, tt.method)
			}
			if cls.calls != tt.aiCalls || gate.calls != tt.aiCalls {
				t.Errorf("classifier=%d gate=%d, want %d", cls.calls, gate.calls, tt.aiCalls)
			}
		})
	}
}

func TestDecide_AITimeout(t *testing.T) {
	cls := &mockClassifier{block: true}
	e := New(stubMatcher{score: 0.6}, cls, newMockCache(), &mockGate{}, 20*time.Millisecond, zap.NewNop())

	start := time.Now()
	res, err := e.Decide(context.Background(), testInput(t, strategy.Relaxed, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout not enforced, took %v", elapsed)
	}
	if res.Score() != NeutralScore || res.Method() != filter.MethodHybrid {
		t.Errorf("got %v/%s, want neutral hybrid", res.Score(), res.Method())
	}
}

func TestDecide_OutOfRangeAIScore(t *testing.T) {
	cls := &mockClassifier{score: 7}
	cache := newMockCache()
	e := New(stubMatcher{score: 0.6}, cls, cache, &mockGate{}, 0, zap.NewNop())

	res, err := e.Decide(context.Background(), testInput(t, strategy.Moderate, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score() != NeutralScore {
		t.Errorf("score = %v, want %v", res.Score(), NeutralScore)
	}
	if cache.sets != 0 {
		t.Errorf("sets = %d, want 0", cache.sets)
	}
}

func TestDecide_CacheHit(t *testing.T) {
	cls := &mockClassifier{score: 0.1}
	cache := newMockCache()
	cache.scores["p1"] = 0.75
	gate := &mockGate{}
	e := New(stubMatcher{score: 0.6}, cls, cache, gate, 0, zap.NewNop())

	tests := []struct {
		strategy strategy.Strategy
		want     filter.Decision
	}{
		{strategy.Strict, filter.Hide},
		{strategy.Moderate, filter.Show},
		{strategy.Relaxed, filter.Show},
	}
	for _, tt := range tests {
		res, err := e.Decide(context.Background(), testInput(t, tt.strategy, true))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.strategy, err)
		}
		if res.Method() != filter.MethodCached {
			t.Errorf("%s: method = %s, want cached", tt.strategy, res.Method())
		}
		if res.Decision() != tt.want {
			t.Errorf("%s: decision = %s, want %s", tt.strategy, res.Decision(), tt.want)
		}
		if res.Score() != 0.75 {
			t.Errorf("%s: score = %v, want 0.75", tt.strategy, res.Score())
		}
	}
	if cls.calls != 0 || gate.calls != 0 {
		t.Errorf("cache hit must skip quota and AI: classifier=%d gate=%d", cls.calls, gate.calls)
	}
}

func TestDecide_QuotaExceeded(t *testing.T) {
	cls := &mockClassifier{score: 0.9}
	gate := &mockGate{err: domain.NewQuotaExceeded(3600)}
	e := New(stubMatcher{score: 0.6}, cls, newMockCache(), gate, 0, zap.NewNop())

	_, err := e.Decide(context.Background(), testInput(t, strategy.Moderate, true))
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) || qe.RetryAfterSeconds != 3600 {
		t.Fatalf("expected QuotaExceededError with retry 3600, got %v", err)
	}
	if cls.calls != 0 {
		t.Errorf("classifier called %d times after quota rejection", cls.calls)
	}
}

func TestDecide_UnknownStrategy(t *testing.T) {
	e := New(stubMatcher{score: 0.6}, nil, nil, nil, 0, zap.NewNop())

	_, err := e.Decide(context.Background(), testInput(t, strategy.Strategy("lenient"), false))
	if !errors.Is(err, domain.ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestDecide_KeywordMonotonic(t *testing.T) {
	rank := map[filter.Decision]int{filter.Hide: 0, filter.Show: 1}

	for _, s := range strategy.All() {
		prev := -1
		for i := 0; i <= 100; i++ {
			score := float64(i) / 100
			e := New(stubMatcher{score: score}, nil, nil, nil, 0, zap.NewNop())
			res, err := e.Decide(context.Background(), testInput(t, s, false))
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", s, err)
			}
			r := rank[res.Decision()]
			if r < prev {
				t.Fatalf("%s: decision regressed at score %v", s, score)
			}
			prev = r
		}
	}
}

func TestEngine_StrategiesAndThresholds(t *testing.T) {
	e := New(stubMatcher{}, nil, nil, nil, 0, zap.NewNop())

	if got := e.Strategies(); len(got) != 3 || got[0] != strategy.Strict {
		t.Fatalf("strategies = %v", got)
	}
	th, err := e.Thresholds(strategy.Relaxed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th.KeywordShow != 0.7 || th.KeywordHide != 0.2 || th.AIShow != 0.6 {
		t.Errorf("relaxed thresholds = %+v", th)
	}
	if _, err := e.Thresholds("bogus"); !errors.Is(err, domain.ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
}
