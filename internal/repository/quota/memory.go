package quota

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"

	domquota "github.com/kailas-cloud/feedlock/internal/domain/quota"
)

type memoryKey struct {
	userID string
	day    domquota.Day
}

// MemoryStore keeps counters in a concurrent map; Compute serializes updates per key.
type MemoryStore struct {
	counters *xsync.MapOf[memoryKey, domquota.Record]
}

// NewMemory creates an in-process quota store.
func NewMemory() *MemoryStore {
	return &MemoryStore{counters: xsync.NewMapOf[memoryKey, domquota.Record]()}
}

// IncrementIfBelow checks and increments under the key's bucket lock.
func (m *MemoryStore) IncrementIfBelow(
	_ context.Context, userID string, tier domquota.Tier, day domquota.Day, limit int64,
) (bool, int64, error) {
	allowed := false
	rec, _ := m.counters.Compute(memoryKey{userID, day}, func(old domquota.Record, loaded bool) (domquota.Record, bool) {
		if limit >= 0 && old.CallsToday >= limit {
			return old, !loaded
		}
		allowed = true
		old.UserID, old.Tier, old.Day = userID, tier, day
		old.CallsToday++
		return old, false
	})
	return allowed, rec.CallsToday, nil
}

// Calls returns the user's counter for the day, 0 when absent.
func (m *MemoryStore) Calls(_ context.Context, userID string, day domquota.Day) (int64, error) {
	rec, _ := m.counters.Load(memoryKey{userID, day})
	return rec.CallsToday, nil
}

// Records lists every counter of the day.
func (m *MemoryStore) Records(_ context.Context, day domquota.Day) ([]domquota.Record, error) {
	var out []domquota.Record
	m.counters.Range(func(k memoryKey, r domquota.Record) bool {
		if k.day == day {
			out = append(out, r)
		}
		return true
	})
	return out, nil
}

// DeleteBefore removes counters of days strictly before day.
func (m *MemoryStore) DeleteBefore(_ context.Context, day domquota.Day) (int, error) {
	n := 0
	m.counters.Range(func(k memoryKey, _ domquota.Record) bool {
		if k.day < day {
			m.counters.Delete(k)
			n++
		}
		return true
	})
	return n, nil
}
