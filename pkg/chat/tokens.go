package chat

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter converts text into a token count. Implementations may fail
// (missing encoding tables, corrupt input); the Estimator absorbs every
// failure with a character-based approximation so callers never see an error.
type TokenCounter func(text string) (int, error)

// Estimator turns message content into integer token costs. A nil counter is
// valid: estimation then uses the chars/4 heuristic throughout.
type Estimator struct {
	counter TokenCounter
}

// NewEstimator builds an estimator around the given counter backend.
func NewEstimator(counter TokenCounter) *Estimator {
	return &Estimator{counter: counter}
}

// Estimate returns the token cost for content. It never fails: a counter
// error falls back to ceil(len/4), which slightly overestimates English text.
func (e *Estimator) Estimate(content string) int {
	if e.counter != nil {
		if n, err := e.counter(content); err == nil && n >= 0 {
			return n
		}
	}
	return approxTokens(content)
}

// EstimateTotal sums the cost of every message. Zero for an empty window.
func (e *Estimator) EstimateTotal(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += e.Estimate(m.Content)
	}
	return total
}

func approxTokens(content string) int {
	if len(content) == 0 {
		return 0
	}
	return (len(content) + 3) / 4 // ceiling division
}

// NewTiktokenCounter returns a TokenCounter backed by the cl100k_base BPE
// table, the same encoding the estimator's original backend used. The table
// is loaded once here and read concurrently afterwards. When loading fails,
// callers should construct the estimator with a nil counter instead.
func NewTiktokenCounter() (TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load cl100k_base encoding: %w", err)
	}
	return func(text string) (int, error) {
		return len(encoding.Encode(text, nil, nil)), nil
	}, nil
}
