package chat

import (
	"fmt"
	"sort"
	"strings"
)

const (
	summaryPrefix      = "[Conversation summary]"
	summaryMaxTopics   = 3
	summaryMaxExcerpts = 2
	summaryExcerptLen  = 50
)

// Summarizer condenses a run of discarded messages into one compact
// directive-role message so prior grounding is not fully lost when raw
// history is dropped. Output is deterministic for a given input.
type Summarizer struct{}

// Summarize reports what was discarded: user/agent turn counts, up to three
// topics ordered by first occurrence in the discarded text, and up to two
// early user excerpts from complete exchanges (a trailing unanswered turn is
// never excerpted). The summary takes the sequence slot of the first
// discarded message.
func (Summarizer) Summarize(discarded []Message) Message {
	if len(discarded) == 0 {
		return Message{Role: RoleDirective, Content: summaryPrefix + " no prior conversation"}
	}

	var users, agents int
	var contents []string
	for _, m := range discarded {
		switch m.Role {
		case RoleUser:
			users++
		case RoleAgent:
			agents++
		case RoleDirective:
			// directives are structurally protected elsewhere; a discarded
			// one still contributes its text to topic extraction below
		}
		contents = append(contents, m.Content)
	}
	joined := strings.ToLower(strings.Join(contents, " "))

	parts := []string{
		fmt.Sprintf("%d user questions and %d assistant replies", users, agents),
	}

	if topics := extractTopics(joined); len(topics) > 0 {
		parts = append(parts, "topics discussed: "+strings.Join(topics, ", "))
	}

	if excerpts := extractExcerpts(discarded); len(excerpts) > 0 {
		parts = append(parts, "recent questions: "+strings.Join(excerpts, "; "))
	}

	return Message{
		Role:    RoleDirective,
		Content: summaryPrefix + " " + strings.Join(parts, " | "),
		Seq:     discarded[0].Seq,
	}
}

// extractTopics returns the domain keywords present in text, ordered by
// first occurrence, capped at summaryMaxTopics.
func extractTopics(text string) []string {
	type hit struct {
		keyword string
		pos     int
	}
	var hits []hit
	for _, kw := range domainKeywords {
		if pos := strings.Index(text, kw); pos >= 0 {
			hits = append(hits, hit{keyword: kw, pos: pos})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	if len(hits) > summaryMaxTopics {
		hits = hits[:summaryMaxTopics]
	}
	topics := make([]string, len(hits))
	for i, h := range hits {
		topics[i] = h.keyword
	}
	return topics
}

// extractExcerpts scans earliest to latest for user turns that are
// immediately followed by another message, i.e. completed exchanges.
func extractExcerpts(messages []Message) []string {
	var excerpts []string
	for i := 0; i < len(messages)-1 && len(excerpts) < summaryMaxExcerpts; i++ {
		if messages[i].Role == RoleUser {
			excerpts = append(excerpts, excerpt(messages[i].Content))
		}
	}
	return excerpts
}

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) > summaryExcerptLen {
		runes = runes[:summaryExcerptLen]
	}
	return string(runes) + "..."
}
