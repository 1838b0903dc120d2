package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed input rejected before the pipeline.
	ErrValidation = errors.New("validation failed")
	// ErrUnknownStrategy signals a strategy name outside the threshold table.
	ErrUnknownStrategy = errors.New("unknown filter strategy")
	// ErrUnknownTier signals a subscription tier without a configured quota.
	ErrUnknownTier = errors.New("unknown tier")
	// ErrQuotaExceeded signals an exhausted daily AI classification quota.
	ErrQuotaExceeded = errors.New("ai classification quota exceeded")
	// ErrClassifierUnavailable signals an AI classifier failure.
	ErrClassifierUnavailable = errors.New("ai classifier unavailable")
	// ErrClassifierRateLimited signals an upstream 429 from the AI provider.
	ErrClassifierRateLimited = errors.New("ai classifier rate limited")
)

// QuotaExceededError wraps ErrQuotaExceeded with the wait until the quota resets.
type QuotaExceededError struct {
	RetryAfterSeconds int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: retry after %ds", ErrQuotaExceeded.Error(), e.RetryAfterSeconds)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// NewQuotaExceeded creates a quota exceeded error.
func NewQuotaExceeded(retryAfterSeconds int64) error {
	return &QuotaExceededError{RetryAfterSeconds: retryAfterSeconds}
}

// ValidationError carries the offending field alongside ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for a field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
