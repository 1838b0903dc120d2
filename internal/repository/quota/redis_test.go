package quota

import (
	"context"
	"errors"
	"slices"
	"testing"

	domquota "github.com/kailas-cloud/feedlock/internal/domain/quota"
)

func TestRedisStore_IncrementIfBelow(t *testing.T) {
	var gotKeys, gotArgs []string
	ms := &mockStore{
		evalFn: func(_ context.Context, script string, keys, args []string) ([]int64, error) {
			if script != incrementScript {
				t.Error("unexpected script")
			}
			gotKeys, gotArgs = keys, args
			return []int64{1, 7}, nil
		},
	}
	r := NewRedis(ms)

	allowed, calls, err := r.IncrementIfBelow(context.Background(), "u1", domquota.TierFree, "2026-03-01", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || calls != 7 {
		t.Errorf("got allowed=%v calls=%d", allowed, calls)
	}
	if !slices.Equal(gotKeys, []string{"feedlock:quota:2026-03-01:u1"}) {
		t.Errorf("keys = %v", gotKeys)
	}
	if !slices.Equal(gotArgs, []string{"50", "free", "u1", "172800"}) {
		t.Errorf("args = %v", gotArgs)
	}
}

func TestRedisStore_IncrementRejected(t *testing.T) {
	ms := &mockStore{
		evalFn: func(_ context.Context, _ string, _, _ []string) ([]int64, error) {
			return []int64{0, 50}, nil
		},
	}
	allowed, calls, err := NewRedis(ms).IncrementIfBelow(context.Background(), "u1", domquota.TierFree, "2026-03-01", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed || calls != 50 {
		t.Errorf("got allowed=%v calls=%d", allowed, calls)
	}
}

func TestRedisStore_IncrementErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		reply []int64
		err   error
	}{
		{"store error", nil, boom},
		{"malformed reply", []int64{1}, nil},
	}
	for _, tt := range tests {
		ms := &mockStore{
			evalFn: func(_ context.Context, _ string, _, _ []string) ([]int64, error) {
				return tt.reply, tt.err
			},
		}
		if _, _, err := NewRedis(ms).IncrementIfBelow(context.Background(), "u1", domquota.TierFree, "d", 1); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestRedisStore_Calls(t *testing.T) {
	ms := &mockStore{
		hgetAllFn: func(_ context.Context, key string) (map[string]string, error) {
			if key == "feedlock:quota:2026-03-01:u1" {
				return map[string]string{"calls": "12", "tier": "free"}, nil
			}
			return map[string]string{}, nil
		},
	}
	r := NewRedis(ms)

	if n, err := r.Calls(context.Background(), "u1", "2026-03-01"); err != nil || n != 12 {
		t.Errorf("u1 = %d, %v", n, err)
	}
	if n, err := r.Calls(context.Background(), "u2", "2026-03-01"); err != nil || n != 0 {
		t.Errorf("u2 = %d, %v", n, err)
	}
}

func TestRedisStore_Records(t *testing.T) {
	ms := &mockStore{
		scanFn: func(_ context.Context, pattern string) ([]string, error) {
			if pattern != "feedlock:quota:2026-03-01:*" {
				t.Errorf("pattern = %s", pattern)
			}
			return []string{"feedlock:quota:2026-03-01:u1", "feedlock:quota:2026-03-01:u2"}, nil
		},
		hgetAllMultiFn: func(_ context.Context, _ []string) ([]map[string]string, error) {
			return []map[string]string{
				{"calls": "3", "tier": "free", "user_id": "u1"},
				{"calls": "9", "tier": "premium", "user_id": "u2"},
			}, nil
		},
	}

	recs, err := NewRedis(ms).Records(context.Background(), "2026-03-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 || recs[1].UserID != "u2" || recs[1].Tier != domquota.TierPremium || recs[1].CallsToday != 9 {
		t.Errorf("records = %+v", recs)
	}
}

func TestRedisStore_DeleteBefore(t *testing.T) {
	var deleted []string
	ms := &mockStore{
		scanFn: func(_ context.Context, _ string) ([]string, error) {
			return []string{
				"feedlock:quota:2026-02-27:u1",
				"feedlock:quota:2026-02-28:user:with:colons",
				"feedlock:quota:2026-03-01:u1",
			}, nil
		},
		delFn: func(_ context.Context, keys ...string) (int64, error) {
			deleted = keys
			return int64(len(keys)), nil
		},
	}

	n, err := NewRedis(ms).DeleteBefore(context.Background(), "2026-03-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || len(deleted) != 2 {
		t.Errorf("deleted %d: %v", n, deleted)
	}
}
