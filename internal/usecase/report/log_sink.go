package report

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/feedlock/internal/domain/analytics"
)

// LogSink writes events as structured log lines.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink that logs at info level.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Write logs each event.
func (s *LogSink) Write(_ context.Context, events []analytics.Event) error {
	for _, e := range events {
		s.logger.Info("filter_event",
			zap.String("user_id", e.UserID),
			zap.String("post_id", e.PostID),
			zap.String("event_type", string(e.Type)),
			zap.Float64("score", e.Score),
			zap.Strings("matched_keywords", e.MatchedKeywords),
			zap.String("method", string(e.Method)),
			zap.Int64("processing_time_ms", e.ProcessingTimeMs),
		)
	}
	return nil
}

// MultiSink fans a batch out to every sink and returns the first error.
type MultiSink []Sink

// Write writes to every sink even when an earlier one fails.
func (m MultiSink) Write(ctx context.Context, events []analytics.Event) error {
	var first error
	for _, s := range m {
		if err := s.Write(ctx, events); err != nil && first == nil {
			first = err
		}
	}
	return first
}
