package chat

import "strings"

// domainKeywords are the finance terms that raise a message's priority and
// drive topic extraction in summaries. The set is fixed; matching is
// case-insensitive substring containment, no semantic detection.
var domainKeywords = []string{
	"investment",
	"strategy",
	"analysis",
	"risk",
	"backtest",
	"return",
	"stock",
	"fund",
}

const maxPriority = 100

// Scorer ranks messages for eviction when the token budget is tight.
// Scores are recomputed on every optimization pass; content can change
// meaning after summarization, so they are never cached.
type Scorer struct{}

// Score returns a priority in [0,100] for the message at index within a
// sequence of total messages. The additive order is a deliberate tie-break
// policy: role dominates, then recency, then length, then keywords, so
// directive content is never starved out by recency or keyword matches.
func (Scorer) Score(m Message, index, total int) int {
	score := 0

	switch m.Role {
	case RoleDirective:
		score += 90
	case RoleAgent:
		score += 30
	case RoleUser:
		score += 20
	}

	// Later messages score up to 30 points more, scaled to the sequence
	// length so the bonus is independent of the absolute window size.
	if total > 0 {
		score += int(float64(index) / float64(total) * 30)
	}

	switch {
	case len(m.Content) > 200:
		score += 10
	case len(m.Content) > 100:
		score += 5
	}

	lower := strings.ToLower(m.Content)
	for _, kw := range domainKeywords {
		if strings.Contains(lower, kw) {
			score += 3
		}
	}

	if score > maxPriority {
		score = maxPriority
	}
	return score
}
