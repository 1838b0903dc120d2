package scorecache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/feedlock/internal/db"
	"github.com/kailas-cloud/feedlock/internal/domain/cache"
	"github.com/kailas-cloud/feedlock/internal/domain/keyword"
)

// mockStore implements Store over a map; *Err fields force failures.
type mockStore struct {
	entries  map[string]cache.Entry
	getErr   error
	putErr   error
	sweepErr error
}

func newMockStore() *mockStore { return &mockStore{entries: map[string]cache.Entry{}} }

func (m *mockStore) Get(_ context.Context, key string) (cache.Entry, error) {
	if m.getErr != nil {
		return cache.Entry{}, m.getErr
	}
	e, ok := m.entries[key]
	if !ok {
		return cache.Entry{}, db.ErrKeyNotFound
	}
	return e, nil
}

func (m *mockStore) Put(_ context.Context, e cache.Entry) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[e.Key] = e
	return nil
}

func (m *mockStore) Delete(_ context.Context, key string) error {
	if _, ok := m.entries[key]; !ok {
		return db.ErrKeyNotFound
	}
	delete(m.entries, key)
	return nil
}

func (m *mockStore) DeleteByPost(_ context.Context, postID string) (int, error) {
	n := 0
	for k, e := range m.entries {
		if e.PostID == postID {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *mockStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	if m.sweepErr != nil {
		return 0, m.sweepErr
	}
	n := 0
	for k, e := range m.entries {
		if e.Expired(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *mockStore) Stats(_ context.Context, now time.Time) (cache.Stats, error) {
	var st cache.Stats
	for _, e := range m.entries {
		st.Total++
		if e.Expired(now) {
			st.Expired++
		} else {
			st.Active++
		}
	}
	return st, nil
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time         { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *mockStore, *fixedClock, *prometheus.CounterVec) {
	t.Helper()
	ms := newMockStore()
	clock := &fixedClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	s := New(ms, 0, counter, zap.NewNop())
	s.now = clock.now
	return s, ms, clock, counter
}

func TestService_SetThenGet(t *testing.T) {
	s, _, _, counter := newTestService(t)
	ctx := context.Background()

	s.Set(ctx, "p1", keyword.Of("Cooking", "baking"), 0.72, 0)

	score, ok := s.Get(ctx, "p1", keyword.Of("baking", "cooking"))
	if !ok {
		t.Fatal("expected hit for reordered, recased keywords")
	}
	if score != 0.72 {
		t.Errorf("score = %v, want 0.72", score)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
}

func TestService_MissOnDifferentKeywords(t *testing.T) {
	s, _, _, counter := newTestService(t)
	ctx := context.Background()

	s.Set(ctx, "p1", keyword.Of("cooking"), 0.9, 0)

	if _, ok := s.Get(ctx, "p1", keyword.Of("cooking", "baking")); ok {
		t.Fatal("expected miss for a different keyword set")
	}
	if _, ok := s.Get(ctx, "p2", keyword.Of("cooking")); ok {
		t.Fatal("expected miss for a different post")
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
}

func TestService_ExpiredIsMiss(t *testing.T) {
	s, _, clock, _ := newTestService(t)
	ctx := context.Background()

	s.Set(ctx, "p1", keyword.Of("cooking"), 0.9, time.Hour)

	clock.advance(59 * time.Minute)
	if _, ok := s.Get(ctx, "p1", keyword.Of("cooking")); !ok {
		t.Fatal("expected hit before expiry")
	}

	clock.advance(time.Minute)
	if _, ok := s.Get(ctx, "p1", keyword.Of("cooking")); ok {
		t.Fatal("expected miss at expiry")
	}
}

func TestService_DefaultTTL(t *testing.T) {
	s, ms, _, _ := newTestService(t)

	s.Set(context.Background(), "p1", keyword.Of("cooking"), 0.5, 0)

	e := ms.entries[cache.Key("p1", keyword.Of("cooking"))]
	if got := e.ExpiresAt.Sub(e.CreatedAt); got != cache.DefaultTTL {
		t.Errorf("ttl = %v, want %v", got, cache.DefaultTTL)
	}
}

func TestService_StoreErrorsAreMisses(t *testing.T) {
	s, ms, _, counter := newTestService(t)
	ms.getErr = errors.New("connection refused")
	ms.putErr = errors.New("connection refused")
	ctx := context.Background()

	s.Set(ctx, "p1", keyword.Of("cooking"), 0.9, 0)
	if _, ok := s.Get(ctx, "p1", keyword.Of("cooking")); ok {
		t.Fatal("expected miss on store error")
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("error")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}

func TestService_RejectsOutOfRangeScore(t *testing.T) {
	s, ms, _, _ := newTestService(t)

	s.Set(context.Background(), "p1", keyword.Of("cooking"), 1.5, 0)

	if len(ms.entries) != 0 {
		t.Fatalf("expected nothing cached, got %d entries", len(ms.entries))
	}
}

func TestService_Invalidate(t *testing.T) {
	s, _, _, _ := newTestService(t)
	ctx := context.Background()

	s.Set(ctx, "p1", keyword.Of("cooking"), 0.9, 0)
	s.Set(ctx, "p1", keyword.Of("baking"), 0.4, 0)
	s.Set(ctx, "p2", keyword.Of("cooking"), 0.6, 0)

	if n := s.Invalidate(ctx, "p1"); n != 2 {
		t.Errorf("removed = %d, want 2", n)
	}
	if _, ok := s.Get(ctx, "p1", keyword.Of("cooking")); ok {
		t.Error("p1 entry survived invalidation")
	}
	if _, ok := s.Get(ctx, "p2", keyword.Of("cooking")); !ok {
		t.Error("p2 entry should survive")
	}
}

func TestService_InvalidateKey(t *testing.T) {
	s, ms, _, _ := newTestService(t)
	ctx := context.Background()

	s.Set(ctx, "p1", keyword.Of("cooking"), 0.9, 0)
	s.InvalidateKey(ctx, cache.Key("p1", keyword.Of("cooking")))
	s.InvalidateKey(ctx, "missing")

	if len(ms.entries) != 0 {
		t.Fatalf("expected empty store, got %d entries", len(ms.entries))
	}
}

func TestService_SweepAndStats(t *testing.T) {
	s, _, clock, _ := newTestService(t)
	ctx := context.Background()

	s.Set(ctx, "p1", keyword.Of("a"), 0.9, time.Hour)
	s.Set(ctx, "p2", keyword.Of("a"), 0.9, 3*time.Hour)
	clock.advance(2 * time.Hour)

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 2 || st.Active != 1 || st.Expired != 1 {
		t.Errorf("stats = %+v, want total=2 active=1 expired=1", st)
	}

	n, err := s.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("swept = %d, want 1", n)
	}

	st, _ = s.Stats(ctx)
	if st.Total != 1 || st.Expired != 0 {
		t.Errorf("stats after sweep = %+v", st)
	}
}

func TestService_SweepError(t *testing.T) {
	s, ms, _, _ := newTestService(t)
	ms.sweepErr = errors.New("boom")

	if _, err := s.SweepExpired(context.Background()); err == nil {
		t.Fatal("expected sweep error to surface")
	}
}
