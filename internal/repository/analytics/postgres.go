// Package analytics stores filter events in PostgreSQL.
package analytics

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kailas-cloud/feedlock/internal/db"
	domanalytics "github.com/kailas-cloud/feedlock/internal/domain/analytics"
)

const eventsTable = "analytics_events"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Sink writes event batches to analytics_events.
type Sink struct {
	db *sql.DB
}

// NewSink creates a PostgreSQL analytics sink.
func NewSink(conn *sql.DB) *Sink {
	return &Sink{db: conn}
}

// Write inserts a batch with a single multi-row INSERT.
func (s *Sink) Write(ctx context.Context, events []domanalytics.Event) error {
	if len(events) == 0 {
		return nil
	}

	b := psql.Insert(eventsTable).Columns(
		"id", "user_id", "post_id", "event_type", "relevance_score",
		"matched_keywords", "filter_method", "processing_time_ms", "created_at",
	)
	for _, e := range events {
		keywords := e.MatchedKeywords
		if keywords == nil {
			keywords = []string{}
		}
		b = b.Values(
			uuid.NewString(), e.UserID, e.PostID, string(e.Type), e.Score,
			pq.Array(keywords), string(e.Method), e.ProcessingTimeMs, e.CreatedAt,
		)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return &db.Error{Op: db.OpInsert, Err: err}
	}
	return nil
}
