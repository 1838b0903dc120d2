// Package match scores post content against a keyword set with exact and fuzzy matching.
package match

import (
	"strings"

	"github.com/kailas-cloud/feedlock/internal/domain/filter"
	"github.com/kailas-cloud/feedlock/internal/domain/keyword"
	"github.com/kailas-cloud/feedlock/internal/domain/post"
	"github.com/kailas-cloud/feedlock/internal/domain/text"
)

// Keyword-level scores.
const (
	scoreExact   = 1.0
	scoreClose   = 0.8 // edit distance <= 2
	scoreNear    = 0.6 // edit distance <= 3
	maxDistClose = 2
	maxDistNear  = 3
)

// Post-level decision cut-offs of the heuristic itself.
const (
	ShowAt = 0.8
	HideAt = 0.3
)

// Matcher scores posts against keywords. It is stateless and safe for concurrent use.
type Matcher struct{}

// New creates a Matcher.
func New() *Matcher {
	return &Matcher{}
}

// Match scores a post against the keyword set.
//
// A keyword equal to a normalized hashtag scores 1.0 and the caption is not consulted.
// Otherwise the caption is scored with fuzzyScore. The post score is the mean keyword score
// (0 for an empty set).
func (m *Matcher) Match(p post.Content, keywords keyword.Set) filter.MatchResult {
	caption := text.Normalize(p.Caption())
	hashtags := make(map[string]struct{})
	for _, h := range p.Hashtags() {
		hashtags[text.Normalize(h)] = struct{}{}
	}

	values := keywords.Values()
	matched := make([]string, 0, len(values))
	var total float64

	for _, kw := range values {
		normalized := text.Normalize(kw)

		var kwScore float64
		if _, ok := hashtags[normalized]; ok {
			kwScore = scoreExact
		} else {
			kwScore = fuzzyScore(normalized, caption)
		}

		if kwScore > 0 {
			matched = append(matched, kw)
			total += kwScore
		}
	}

	var score float64
	if len(values) > 0 {
		score = total / float64(len(values))
	}

	return filter.NewMatchResult(score, matched, decide(score))
}

// fuzzyScore compares a normalized keyword with the normalized caption.
// Both are normalized once more first: stripping symbols in the first pass can leave
// doubled or edge spaces ("jim 💪" -> "jim "), which the second pass collapses and trims.
// Hashtag equality in Match deliberately uses the single-pass form.
// The distance is taken against the whole caption, not per word, so long captions
// only ever reach the fuzzy buckets when they are nearly the keyword itself.
func fuzzyScore(keyword, caption string) float64 {
	keyword = text.Normalize(keyword)
	caption = text.Normalize(caption)
	if strings.Contains(caption, keyword) {
		return scoreExact
	}
	switch d := text.Distance(keyword, caption); {
	case d <= maxDistClose:
		return scoreClose
	case d <= maxDistNear:
		return scoreNear
	default:
		return 0
	}
}

func decide(score float64) filter.Decision {
	switch {
	case score >= ShowAt:
		return filter.Show
	case score <= HideAt:
		return filter.Hide
	default:
		return filter.Uncertain
	}
}
