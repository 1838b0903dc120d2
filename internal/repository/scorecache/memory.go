package scorecache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/feedlock/internal/db"
	"github.com/kailas-cloud/feedlock/internal/domain/cache"
)

// DefaultMemoryCapacity bounds the in-process store when no size is configured.
const DefaultMemoryCapacity = 100_000

// MemoryStore is a bounded in-process store; the least recently used entries are evicted first.
type MemoryStore struct {
	entries *lru.Cache[string, cache.Entry]
}

// NewMemory creates an in-process cache store holding at most capacity entries.
func NewMemory(capacity int) (*MemoryStore, error) {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	entries, err := lru.New[string, cache.Entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &MemoryStore{entries: entries}, nil
}

// Get loads an entry by cache key.
func (m *MemoryStore) Get(_ context.Context, key string) (cache.Entry, error) {
	e, ok := m.entries.Get(key)
	if !ok {
		return cache.Entry{}, db.ErrKeyNotFound
	}
	return e, nil
}

// Put stores an entry.
func (m *MemoryStore) Put(_ context.Context, e cache.Entry) error {
	m.entries.Add(e.Key, e)
	return nil
}

// Delete removes one entry. Returns db.ErrKeyNotFound when absent.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	if !m.entries.Remove(key) {
		return db.ErrKeyNotFound
	}
	return nil
}

// DeleteByPost removes every entry of a post.
func (m *MemoryStore) DeleteByPost(_ context.Context, postID string) (int, error) {
	return m.removeWhere(func(e cache.Entry) bool { return e.PostID == postID }), nil
}

// DeleteExpired removes entries expired at now.
func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	return m.removeWhere(func(e cache.Entry) bool { return e.Expired(now) }), nil
}

// Stats counts entries without touching recency.
func (m *MemoryStore) Stats(_ context.Context, now time.Time) (cache.Stats, error) {
	var st cache.Stats
	for _, k := range m.entries.Keys() {
		e, ok := m.entries.Peek(k)
		if !ok {
			continue
		}
		st.Total++
		if e.Expired(now) {
			st.Expired++
		} else {
			st.Active++
		}
	}
	return st, nil
}

func (m *MemoryStore) removeWhere(match func(cache.Entry) bool) int {
	n := 0
	for _, k := range m.entries.Keys() {
		if e, ok := m.entries.Peek(k); ok && match(e) {
			if m.entries.Remove(k) {
				n++
			}
		}
	}
	return n
}
