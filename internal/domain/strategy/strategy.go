package strategy

import (
	"fmt"

	"github.com/kailas-cloud/feedlock/internal/domain"
)

// Strategy is a named preset of decision thresholds.
type Strategy string

// Strategy constants.
const (
	Strict   Strategy = "strict"
	Moderate Strategy = "moderate"
	Relaxed  Strategy = "relaxed"
)

// Default is used when the caller does not name a strategy.
const Default = Moderate

// Thresholds are the score cut-offs applied by the decision engine.
// Invariant: 0 <= KeywordHide < KeywordShow <= 1 and 0 <= AIShow <= 1.
type Thresholds struct {
	KeywordShow float64
	KeywordHide float64
	AIShow      float64
}

// ordered keeps listing deterministic; the switch in Thresholds is the source of truth.
var ordered = [...]Strategy{Strict, Moderate, Relaxed}

// Parse converts a name into a Strategy. Empty selects Default.
// Unknown names are a configuration error and never fall back silently.
func Parse(name string) (Strategy, error) {
	if name == "" {
		return Default, nil
	}
	s := Strategy(name)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, name)
	}
	return s, nil
}

// IsValid checks if the strategy is one of the supported values.
func (s Strategy) IsValid() bool {
	return s == Strict || s == Moderate || s == Relaxed
}

// Thresholds returns the fixed threshold set for the strategy.
func (s Strategy) Thresholds() (Thresholds, error) {
	switch s {
	case Strict:
		return Thresholds{KeywordShow: 0.9, KeywordHide: 0.4, AIShow: 0.8}, nil
	case Moderate:
		return Thresholds{KeywordShow: 0.8, KeywordHide: 0.3, AIShow: 0.7}, nil
	case Relaxed:
		return Thresholds{KeywordShow: 0.7, KeywordHide: 0.2, AIShow: 0.6}, nil
	default:
		return Thresholds{}, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, string(s))
	}
}

// All returns every strategy, strictest first.
func All() []Strategy {
	out := make([]Strategy, len(ordered))
	copy(out, ordered[:])
	return out
}
