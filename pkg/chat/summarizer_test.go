package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizer_CountsByRole(t *testing.T) {
	var s Summarizer

	summary := s.Summarize([]Message{
		{Role: RoleUser, Content: "q1", Seq: 3},
		{Role: RoleAgent, Content: "a1", Seq: 4},
		{Role: RoleUser, Content: "q2", Seq: 5},
	})

	assert.Equal(t, RoleDirective, summary.Role)
	assert.Equal(t, 3, summary.Seq)
	assert.Contains(t, summary.Content, "[Conversation summary]")
	assert.Contains(t, summary.Content, "2 user questions and 1 assistant replies")
}

func TestSummarizer_TopicsOrderedByFirstOccurrence(t *testing.T) {
	var s Summarizer

	summary := s.Summarize([]Message{
		{Role: RoleUser, Content: "my fund strategy carries risk"},
		{Role: RoleAgent, Content: "noted"},
	})

	assert.Contains(t, summary.Content, "topics discussed: fund, strategy, risk")
}

func TestSummarizer_TopicsCappedAtThree(t *testing.T) {
	var s Summarizer

	// Keywords live in the agent reply so excerpts cannot leak them into
	// the summary text.
	summary := s.Summarize([]Message{
		{Role: RoleUser, Content: "ok"},
		{Role: RoleAgent, Content: "investment strategy analysis risk backtest"},
	})

	assert.Contains(t, summary.Content, "topics discussed: investment, strategy, analysis")
	assert.NotContains(t, summary.Content, "risk")
	assert.NotContains(t, summary.Content, "backtest")
}

func TestSummarizer_ExcerptsOnlyCompletedExchanges(t *testing.T) {
	var s Summarizer

	summary := s.Summarize([]Message{
		{Role: RoleUser, Content: "first question"},
		{Role: RoleAgent, Content: "first answer"},
		{Role: RoleUser, Content: "second question"},
		{Role: RoleAgent, Content: "second answer"},
		{Role: RoleUser, Content: "trailing unanswered"},
	})

	assert.Contains(t, summary.Content, "recent questions: first question...; second question...")
	assert.NotContains(t, summary.Content, "trailing unanswered")
}

func TestSummarizer_ExcerptsCappedAtTwo(t *testing.T) {
	var s Summarizer

	summary := s.Summarize([]Message{
		{Role: RoleUser, Content: "one"},
		{Role: RoleUser, Content: "two"},
		{Role: RoleUser, Content: "three"},
		{Role: RoleAgent, Content: "done"},
	})

	assert.Contains(t, summary.Content, "one...; two...")
	assert.NotContains(t, summary.Content, "three...")
}

func TestSummarizer_ExcerptTruncation(t *testing.T) {
	var s Summarizer

	long := strings.Repeat("q", 80)
	summary := s.Summarize([]Message{
		{Role: RoleUser, Content: long},
		{Role: RoleAgent, Content: "a"},
	})

	assert.Contains(t, summary.Content, strings.Repeat("q", 50)+"...")
	assert.NotContains(t, summary.Content, strings.Repeat("q", 51))
}

func TestSummarizer_Deterministic(t *testing.T) {
	var s Summarizer

	discarded := []Message{
		{Role: RoleUser, Content: "should I buy this stock", Seq: 0},
		{Role: RoleAgent, Content: "depends on your risk appetite", Seq: 1},
	}

	first := s.Summarize(discarded)
	second := s.Summarize(discarded)

	assert.Equal(t, first, second)
}

func TestSummarizer_EmptyInput(t *testing.T) {
	var s Summarizer

	summary := s.Summarize(nil)

	assert.Equal(t, RoleDirective, summary.Role)
	assert.Contains(t, summary.Content, "no prior conversation")
}
