package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/kailas-cloud/feedlock/internal/domain/keyword"
)

// DefaultTTL is how long a classification score stays valid.
const DefaultTTL = 24 * time.Hour

// Key is the deterministic fingerprint of a post and a keyword set.
// The keyword part is sorted and lowercased, so caller ordering never changes the key.
func Key(postID string, keywords keyword.Set) string {
	combined := postID + ":" + strings.Join(keywords.Canonical(), ",")
	h := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(h[:])
}

// Entry is one memoized classification score.
type Entry struct {
	Key       string
	PostID    string
	Keywords  []string
	Score     float64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewEntry builds an entry that expires ttl after now. Non-positive ttl falls back to DefaultTTL.
func NewEntry(postID string, keywords keyword.Set, score float64, now time.Time, ttl time.Duration) Entry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return Entry{
		Key:       Key(postID, keywords),
		PostID:    postID,
		Keywords:  keywords.Canonical(),
		Score:     score,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the entry is no longer servable at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// Stats summarizes the cache contents.
type Stats struct {
	Total   int
	Active  int
	Expired int
}
