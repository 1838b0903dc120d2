package scorecache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/feedlock/internal/domain/cache"
)

// entryRow is the JSON representation of a cache entry stored under its key.
type entryRow struct {
	PostID    string   `json:"post_id"`
	Keywords  []string `json:"keywords"`
	Score     float64  `json:"score"`
	CreatedAt int64    `json:"created_at"`
	ExpiresAt int64    `json:"expires_at"`
}

func marshalEntry(e cache.Entry) ([]byte, error) {
	data, err := json.Marshal(entryRow{
		PostID:    e.PostID,
		Keywords:  e.Keywords,
		Score:     e.Score,
		CreatedAt: e.CreatedAt.UnixMilli(),
		ExpiresAt: e.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal entry: %w", err)
	}
	return data, nil
}

func unmarshalEntry(key string, data []byte) (cache.Entry, error) {
	var row entryRow
	if err := json.Unmarshal(data, &row); err != nil {
		return cache.Entry{}, fmt.Errorf("unmarshal entry %s: %w", key, err)
	}
	return cache.Entry{
		Key:       key,
		PostID:    row.PostID,
		Keywords:  row.Keywords,
		Score:     row.Score,
		CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
		ExpiresAt: time.UnixMilli(row.ExpiresAt).UTC(),
	}, nil
}
