package filter

// Decision is the show/hide verdict for a post.
type Decision string

// Decision constants.
const (
	Show      Decision = "SHOW"
	Hide      Decision = "HIDE"
	Uncertain Decision = "UNCERTAIN"
)

// IsValid checks if the decision is one of the supported values.
func (d Decision) IsValid() bool {
	return d == Show || d == Hide || d == Uncertain
}

// Method records which stage of the pipeline produced a result.
type Method string

// Method constants.
const (
	// MethodKeyword means the keyword heuristic was conclusive (or AI was off).
	MethodKeyword Method = "keyword"
	// MethodAI is reserved for results reported by clients that classified remotely.
	MethodAI Method = "ai"
	// MethodHybrid means the AI classifier decided after an inconclusive keyword score.
	MethodHybrid Method = "hybrid"
	// MethodCached means a memoized AI score decided.
	MethodCached Method = "cached"
)

// IsValid checks if the method is one of the supported values.
func (m Method) IsValid() bool {
	switch m {
	case MethodKeyword, MethodAI, MethodHybrid, MethodCached:
		return true
	}
	return false
}
