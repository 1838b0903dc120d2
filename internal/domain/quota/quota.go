package quota

import (
	"fmt"
	"math"
	"time"

	"github.com/kailas-cloud/feedlock/internal/domain"
)

// Tier is a user's subscription class.
type Tier string

// Tier constants.
const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierPro     Tier = "pro"
)

// Unlimited marks a tier without a daily cap.
const Unlimited int64 = -1

// ParseTier converts a name into a Tier.
func ParseTier(name string) (Tier, error) {
	t := Tier(name)
	switch t {
	case TierFree, TierPremium, TierPro:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownTier, name)
}

// Limits maps each tier to its daily AI call budget.
type Limits map[Tier]int64

// DefaultLimits mirrors the production defaults: free 50, premium 500, pro unlimited.
func DefaultLimits() Limits {
	return Limits{TierFree: 50, TierPremium: 500, TierPro: Unlimited}
}

// For returns the daily limit for a tier.
func (l Limits) For(t Tier) (int64, error) {
	v, ok := l[t]
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownTier, string(t))
	}
	return v, nil
}

// Day is a UTC calendar day formatted as YYYY-MM-DD.
type Day string

// DayOf returns the UTC calendar day containing t.
func DayOf(t time.Time) Day {
	return Day(t.UTC().Format(time.DateOnly))
}

// NextReset returns the next UTC midnight after t.
func NextReset(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}

// RetryAfterSeconds returns the whole seconds until the next reset, at least 1.
func RetryAfterSeconds(now time.Time) int64 {
	secs := int64(math.Ceil(NextReset(now).Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Record is one user's AI call counter for one day.
type Record struct {
	UserID     string
	Tier       Tier
	Day        Day
	CallsToday int64
}

// Usage is the caller-facing view of a user's quota for today.
type Usage struct {
	Today     int64
	Limit     int64 // Unlimited (-1) for uncapped tiers
	Remaining int64 // Unlimited (-1) for uncapped tiers
	ResetAt   time.Time
}

// NewUsage derives remaining calls from a counter and limit.
func NewUsage(calls, limit int64, now time.Time) Usage {
	remaining := Unlimited
	if limit != Unlimited {
		remaining = max(limit-calls, 0)
	}
	return Usage{Today: calls, Limit: limit, Remaining: remaining, ResetAt: NextReset(now)}
}

// Stats summarizes quota consumption for one day.
type Stats struct {
	Day            Day
	TotalUsers     int
	FreeAtLimit    int
	PremiumAtLimit int
	AverageUsage   float64
}

// Summarize builds day statistics from the day's records.
func Summarize(day Day, records []Record, limits Limits) Stats {
	st := Stats{Day: day, TotalUsers: len(records)}
	if len(records) == 0 {
		return st
	}
	var sum int64
	for _, r := range records {
		sum += r.CallsToday
		limit, ok := limits[r.Tier]
		if !ok || limit == Unlimited || r.CallsToday < limit {
			continue
		}
		switch r.Tier {
		case TierFree:
			st.FreeAtLimit++
		case TierPremium:
			st.PremiumAtLimit++
		}
	}
	st.AverageUsage = float64(sum) / float64(len(records))
	return st
}
