// Package analytics describes filter outcome events.
package analytics

import (
	"time"

	"github.com/kailas-cloud/feedlock/internal/domain/filter"
)

// EventType classifies an analytics event.
type EventType string

// EventType constants.
const (
	PostShown    EventType = "POST_SHOWN"
	PostFiltered EventType = "POST_FILTERED"
)

// Event records one filter decision for a user.
type Event struct {
	UserID           string
	PostID           string
	Type             EventType
	Score            float64
	MatchedKeywords  []string
	Method           filter.Method
	ProcessingTimeMs int64
	CreatedAt        time.Time
}

// FromResult builds the event for a decision made for userID on postID.
func FromResult(userID, postID string, r filter.Result, now time.Time) Event {
	t := PostFiltered
	if r.Decision() == filter.Show {
		t = PostShown
	}
	return Event{
		UserID:           userID,
		PostID:           postID,
		Type:             t,
		Score:            r.Score(),
		MatchedKeywords:  r.MatchedKeywords(),
		Method:           r.Method(),
		ProcessingTimeMs: r.ProcessingTimeMs(),
		CreatedAt:        now,
	}
}
