package chat

import (
	"fmt"
	"sort"
)

// Limits bounds the optimized window. Both limits are validated at
// construction and immutable for the lifetime of an Optimizer.
type Limits struct {
	MaxMessages int
	MaxTokens   int
}

// Stats describes a window for logging and telemetry. Computing stats never
// alters the window.
type Stats struct {
	TotalMessages       int
	TotalTokens         int
	Directives          int
	UserTurns           int
	AgentTurns          int
	AvgTokensPerMessage int
}

// minWindowMessages is the safety floor: token trimming is never allowed to
// leave a near-empty context, so a selection below this size is discarded in
// favor of the most recent turns.
const minWindowMessages = 6

// Optimizer bounds a conversation window to a message-count limit and a
// token budget, compressing dropped history into a summary and ranking the
// rest by priority. It is a pure function of its input: no hidden state, no
// I/O, safe to call concurrently on independent windows.
type Optimizer struct {
	limits     Limits
	estimator  *Estimator
	scorer     Scorer
	summarizer Summarizer
}

// NewOptimizer validates the limits and builds an optimizer. The counter may
// be nil; estimation then uses the character approximation throughout.
func NewOptimizer(limits Limits, counter TokenCounter) (*Optimizer, error) {
	if limits.MaxMessages <= 0 {
		return nil, fmt.Errorf("max messages must be positive, got %d", limits.MaxMessages)
	}
	if limits.MaxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", limits.MaxTokens)
	}
	return &Optimizer{
		limits:    limits,
		estimator: NewEstimator(counter),
	}, nil
}

// Limits returns the configured limits.
func (o *Optimizer) Limits() Limits {
	return o.limits
}

// Estimator exposes the optimizer's token estimator so collaborators account
// costs the same way the optimizer does.
func (o *Optimizer) Estimator() *Estimator {
	return o.estimator
}

// Optimize returns a window that satisfies both limits: a count check with
// summary compression first, then token-based selection. The pipeline is
// strictly forward; no stage re-enters an earlier one. An empty window is
// returned unchanged, and a window already within both limits is returned
// exactly as given.
func (o *Optimizer) Optimize(window []Message) []Message {
	if len(window) == 0 {
		return window
	}

	if len(window) > o.limits.MaxMessages {
		window = o.compressOld(window, o.limits.MaxMessages)
	}

	if o.estimator.EstimateTotal(window) > o.limits.MaxTokens {
		window = o.compressByTokens(window)
	}

	return window
}

// Stats reports message counts by role and the estimated token total.
func (o *Optimizer) Stats(window []Message) Stats {
	stats := Stats{
		TotalMessages: len(window),
		TotalTokens:   o.estimator.EstimateTotal(window),
	}
	for _, m := range window {
		switch m.Role {
		case RoleDirective:
			stats.Directives++
		case RoleUser:
			stats.UserTurns++
		case RoleAgent:
			stats.AgentTurns++
		}
	}
	if len(window) > 0 {
		stats.AvgTokensPerMessage = stats.TotalTokens / len(window)
	}
	return stats
}

// compressOld keeps the most recent turns and replaces everything older with
// a single summary. One output slot is reserved for the summary, and a
// leading directive keeps its anchor slot when room allows, so the result
// never exceeds keep and the window still opens with a directive message.
func (o *Optimizer) compressOld(window []Message, keep int) []Message {
	if len(window) <= keep {
		return window
	}

	var lead []Message
	if keep >= 2 && window[0].Role == RoleDirective {
		lead = window[:1]
	}

	budget := keep - 1 - len(lead)
	if budget < 0 {
		budget = 0
	}

	recent := window[len(window)-budget:]
	old := window[len(lead) : len(window)-budget]
	summary := o.summarizer.Summarize(old)

	out := make([]Message, 0, keep)
	out = append(out, lead...)
	out = append(out, summary)
	out = append(out, recent...)
	return out
}

type scoredMessage struct {
	message  Message
	priority int
	cost     int
}

// compressByTokens keeps all directive messages and greedily fills the
// remaining budget with the highest-priority other messages. Accepted
// messages are restored to chronological order so selection never scrambles
// the conversation.
func (o *Optimizer) compressByTokens(window []Message) []Message {
	var directives, others []Message
	for _, m := range window {
		if m.Role == RoleDirective {
			directives = append(directives, m)
		} else {
			others = append(others, m)
		}
	}

	scored := make([]scoredMessage, len(others))
	for i, m := range others {
		scored[i] = scoredMessage{
			message:  m,
			priority: o.scorer.Score(m, i, len(others)),
			cost:     o.estimator.Estimate(m.Content),
		}
	}

	// Highest priority first; equal scores favor the earlier message. The
	// tie-break is explicit rather than left to sort stability.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].priority != scored[j].priority {
			return scored[i].priority > scored[j].priority
		}
		return scored[i].message.Seq < scored[j].message.Seq
	})

	running := 0
	for _, d := range directives {
		running += o.estimator.Estimate(d.Content)
	}

	var accepted []Message
	for _, s := range scored {
		if running+s.cost <= o.limits.MaxTokens {
			accepted = append(accepted, s.message)
			running += s.cost
		}
		// An overflowing candidate is skipped, never retried; cheaper
		// lower-ranked messages may still fit after it.
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Seq < accepted[j].Seq
	})

	out := make([]Message, 0, len(directives)+len(accepted))
	out = append(out, directives...)
	out = append(out, accepted...)

	if len(out) < minWindowMessages {
		// The floor restores the most recent turns verbatim. A directive
		// that falls outside those turns is not pulled back in, so a
		// floored window may open with a non-directive message.
		floor := window
		if len(floor) > minWindowMessages {
			floor = floor[len(floor)-minWindowMessages:]
		}
		return o.compressOld(floor, minWindowMessages)
	}
	return out
}
