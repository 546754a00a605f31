package agent

import "strings"

// Intent labels what a user turn is asking for. The label rides along with
// the stored reply and steers the directive used for generation.
type Intent string

const (
	IntentInvestment Intent = "investment_analysis"
	IntentRisk       Intent = "risk_analysis"
	IntentStrategy   Intent = "strategy_analysis"
	IntentGeneral    Intent = "general_question"
)

// Keyword groups are checked in order; the first group with a hit wins.
var intentGroups = []struct {
	intent   Intent
	keywords []string
}{
	{IntentInvestment, []string{"stock", "investment", "analysis", "strategy"}},
	{IntentRisk, []string{"risk", "drawdown", "volatility"}},
	{IntentStrategy, []string{"backtest", "strategy", "return"}},
}

// ClassifyIntent maps a user turn to an intent by keyword lookup. Unmatched
// input classifies as a general question.
func ClassifyIntent(input string) Intent {
	lowered := strings.ToLower(input)
	for _, group := range intentGroups {
		for _, keyword := range group.keywords {
			if strings.Contains(lowered, keyword) {
				return group.intent
			}
		}
	}
	return IntentGeneral
}

// Directive returns the system prompt used when generating a reply for this
// intent.
func (i Intent) Directive() string {
	switch i {
	case IntentInvestment:
		return "You are a professional investment analyst. Provide expert investment " +
			"advice and analysis grounded in the user's question, covering fundamentals, " +
			"technicals, market trends and investment risk."
	case IntentRisk:
		return "You are a professional risk management expert. Focus on investment " +
			"risk: market risk, credit risk, liquidity risk and operational risk, and " +
			"offer concrete risk-control suggestions."
	case IntentStrategy:
		return "You are a quantitative strategy expert. Focus on strategy design, " +
			"backtest analysis and optimization: strategy logic, historical performance " +
			"and risk-return characteristics."
	default:
		return "You are a friendly AI assistant focused on financial investment. " +
			"Provide useful information and suggestions for the user's question."
	}
}
