package scorecache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kailas-cloud/feedlock/internal/db"
)

// fakeKV is an in-memory kvStore; del simulates Redis expiring a key.
type fakeKV struct {
	values map[string][]byte
	ttls   map[string]time.Duration
	sets   map[string]map[string]struct{}
	err    error
}

func newFakeKV() *fakeKV {
	return &fakeKV{
		values: map[string][]byte{},
		ttls:   map[string]time.Duration{},
		sets:   map[string]map[string]struct{}{},
	}
}

func (f *fakeKV) expire(key string) { delete(f.values, key) }

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
		if _, ok := f.sets[k]; ok {
			delete(f.sets, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.values[key]
	return ok, nil
}

func (f *fakeKV) ExtendExpire(_ context.Context, key string, ttl time.Duration) error {
	if ttl > f.ttls[key] {
		f.ttls[key] = ttl
	}
	return nil
}

func (f *fakeKV) Scan(_ context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var out []string
	for k := range f.sets {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	for k := range f.values {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeKV) SAdd(_ context.Context, key string, members ...string) error {
	if f.err != nil {
		return f.err
	}
	s, ok := f.sets[key]
	if !ok {
		s = map[string]struct{}{}
		f.sets[key] = s
	}
	for _, m := range members {
		s[m] = struct{}{}
	}
	return nil
}

func (f *fakeKV) SRem(_ context.Context, key string, members ...string) error {
	for _, m := range members {
		delete(f.sets[key], m)
	}
	return nil
}

func (f *fakeKV) SMembers(_ context.Context, key string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

var errBoom = errors.New("boom")
