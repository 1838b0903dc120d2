package filter

import "time"

// MatchResult is the keyword heuristic outcome (immutable).
type MatchResult struct {
	score           float64
	matchedKeywords []string
	decision        Decision
}

// NewMatchResult creates a MatchResult.
func NewMatchResult(score float64, matched []string, decision Decision) MatchResult {
	return MatchResult{score: score, matchedKeywords: matched, decision: decision}
}

// Score returns the relevance score in [0,1].
func (m *MatchResult) Score() float64 { return m.score }

// MatchedKeywords returns keywords with a positive score, in keyword iteration order.
func (m *MatchResult) MatchedKeywords() []string { return append([]string(nil), m.matchedKeywords...) }

// Decision returns the heuristic verdict.
func (m *MatchResult) Decision() Decision { return m.decision }

// Result is the outcome of one classification request.
type Result struct {
	decision        Decision
	score           float64
	method          Method
	matchedKeywords []string
	processingTime  time.Duration
}

// NewResult creates a Result.
func NewResult(
	decision Decision, score float64, method Method,
	matched []string, processingTime time.Duration,
) Result {
	return Result{
		decision:        decision,
		score:           score,
		method:          method,
		matchedKeywords: matched,
		processingTime:  processingTime,
	}
}

// Decision returns the final verdict (SHOW or HIDE).
func (r *Result) Decision() Decision { return r.decision }

// Score returns the score the verdict was derived from.
func (r *Result) Score() float64 { return r.score }

// Method returns the pipeline stage that decided.
func (r *Result) Method() Method { return r.method }

// MatchedKeywords returns the keywords the heuristic matched.
func (r *Result) MatchedKeywords() []string { return append([]string(nil), r.matchedKeywords...) }

// ProcessingTime returns the end-to-end latency including any AI round trip.
func (r *Result) ProcessingTime() time.Duration { return r.processingTime }

// ProcessingTimeMs returns ProcessingTime in whole milliseconds.
func (r *Result) ProcessingTimeMs() int64 { return r.processingTime.Milliseconds() }
