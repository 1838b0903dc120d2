package keyword

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/feedlock/internal/domain"
)

// Limits for a per-request keyword set.
const (
	MaxKeywords      = 100
	MaxKeywordLength = 100
)

// Set is a user's interest keywords in caller order.
// Comparison is case-insensitive; duplicates are kept as supplied so scoring sees the caller's list.
type Set struct {
	values []string
}

// New validates and creates a keyword Set. An empty set is valid.
func New(values []string) (Set, error) {
	if len(values) > MaxKeywords {
		return Set{}, domain.NewValidationError("keywords", fmt.Sprintf("too many (max %d)", MaxKeywords))
	}
	for i, v := range values {
		if strings.TrimSpace(v) == "" {
			return Set{}, domain.NewValidationError(fmt.Sprintf("keywords[%d]", i), "cannot be empty")
		}
		if len(v) > MaxKeywordLength {
			return Set{}, domain.NewValidationError(
				fmt.Sprintf("keywords[%d]", i), fmt.Sprintf("cannot exceed %d characters", MaxKeywordLength))
		}
	}
	return Set{values: append([]string(nil), values...)}, nil
}

// Of creates a Set without validation (tests, storage hydration).
func Of(values ...string) Set {
	return Set{values: values}
}

// Values returns the keywords in caller order.
func (s Set) Values() []string { return append([]string(nil), s.values...) }

// Len returns the number of keywords.
func (s Set) Len() int { return len(s.values) }

// IsEmpty reports whether the set has no keywords.
func (s Set) IsEmpty() bool { return len(s.values) == 0 }

// Canonical returns the lowercased keywords sorted ascending.
// Two sets differing only in order or case share the same canonical form.
func (s Set) Canonical() []string {
	out := make([]string, len(s.values))
	for i, v := range s.values {
		out[i] = strings.ToLower(v)
	}
	sort.Strings(out)
	return out
}
