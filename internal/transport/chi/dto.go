package chi

import (
	"strings"
	"time"
)

// ErrorCode is a machine-readable error class in API responses.
type ErrorCode string

// ErrorCode constants.
const (
	CodeBadRequest            ErrorCode = "bad_request"
	CodeValidationFailed      ErrorCode = "validation_failed"
	CodeUnknownStrategy       ErrorCode = "unknown_strategy"
	CodeUnknownTier           ErrorCode = "unknown_tier"
	CodeQuotaExceeded         ErrorCode = "quota_exceeded"
	CodeUnauthorized          ErrorCode = "unauthorized"
	CodeNotFound              ErrorCode = "not_found"
	CodeClassifierUnavailable ErrorCode = "classifier_unavailable"
	CodeInternalError         ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code              ErrorCode `json:"code"`
	Message           string    `json:"message"`
	RetryAfterSeconds int64     `json:"retry_after_seconds,omitempty"`
}

// PostPayload is the post content submitted for classification.
type PostPayload struct {
	ID       string   `json:"id"`
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
	Username string   `json:"username,omitempty"`
	PostURL  string   `json:"post_url,omitempty"`
	PostType string   `json:"post_type,omitempty"`
}

// ClassifyRequest is the body of POST /v1/classify.
type ClassifyRequest struct {
	UserID    string      `json:"user_id"`
	Tier      string      `json:"tier"`
	Post      PostPayload `json:"post"`
	Keywords  []string    `json:"keywords"`
	Strategy  string      `json:"strategy"`
	AIEnabled bool        `json:"ai_enabled"`
}

// FilterResultResponse is the classification outcome.
type FilterResultResponse struct {
	Decision         string   `json:"decision"`
	Score            float64  `json:"score"`
	Method           string   `json:"method"`
	MatchedKeywords  []string `json:"matched_keywords"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
}

// CachedScoreResponse is the body of GET /v1/cache/score.
type CachedScoreResponse struct {
	PostID   string   `json:"post_id"`
	Keywords []string `json:"keywords"`
	Score    float64  `json:"score"`
}

// SetScoreRequest is the body of PUT /v1/cache/score.
type SetScoreRequest struct {
	PostID   string   `json:"post_id"`
	Keywords []string `json:"keywords"`
	Score    *float64 `json:"score"`
	TTLSec   int      `json:"ttl_sec,omitempty"`
}

// DeletedResponse reports how many records an operation removed.
type DeletedResponse struct {
	Deleted int `json:"deleted"`
}

// CacheStatsResponse is the body of GET /v1/cache/stats.
type CacheStatsResponse struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Expired int `json:"expired"`
}

// UsageResponse is a user's quota for today.
type UsageResponse struct {
	UserID    string    `json:"user_id"`
	Tier      string    `json:"tier"`
	Today     int64     `json:"today"`
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// QuotaStatsResponse is the body of GET /v1/quota/stats.
type QuotaStatsResponse struct {
	Date           string  `json:"date"`
	TotalUsers     int     `json:"total_users"`
	FreeAtLimit    int     `json:"free_users_at_limit"`
	PremiumAtLimit int     `json:"premium_users_at_limit"`
	AverageUsage   float64 `json:"average_usage_per_user"`
}

// StrategyResponse describes one strategy preset.
type StrategyResponse struct {
	Name        string  `json:"name"`
	KeywordShow float64 `json:"keyword_show"`
	KeywordHide float64 `json:"keyword_hide"`
	AIShow      float64 `json:"ai_show"`
}

// StrategyListResponse is the body of GET /v1/strategies.
type StrategyListResponse struct {
	Items   []StrategyResponse `json:"items"`
	Default string             `json:"default"`
}

// JobResponse describes a maintenance job.
type JobResponse struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	Enabled   bool       `json:"enabled"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastCount int        `json:"last_count"`
	LastError string     `json:"last_error,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// splitKeywords parses a comma-separated query value. Blank input yields no keywords.
func splitKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
