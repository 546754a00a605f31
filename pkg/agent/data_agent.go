package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quantchat/quantchat/pkg/chat"
	"github.com/quantchat/quantchat/pkg/llm"
	"github.com/quantchat/quantchat/pkg/logging"
	"github.com/quantchat/quantchat/pkg/marketdata"
)

// QuoteFetcher is the slice of the market data client the data agent needs.
type QuoteFetcher interface {
	Available() bool
	Daily(ctx context.Context, tsCode, startDate, endDate string) ([]marketdata.DailyBar, error)
}

// DataResult is the data agent's answer to one instruction.
type DataResult struct {
	Content   string
	TSCode    string
	Cached    bool
	Timestamp time.Time
}

// DataAgent serves data-centric instructions from the handler agent: it pulls
// daily quotes for any stock code the instruction mentions, hands the numbers
// to the model for interpretation, and caches the result per conversation.
type DataAgent struct {
	gen       llm.Gen
	quotes    QuoteFetcher
	cache     *RequestCache
	directive string
	logger    logging.Logger
}

// NewDataAgent wires the data service agent. quotes may be an unconfigured
// client; the agent then answers from the model alone.
func NewDataAgent(gen llm.Gen, quotes QuoteFetcher, directive string) *DataAgent {
	return &DataAgent{
		gen:       gen,
		quotes:    quotes,
		cache:     NewRequestCache(0),
		directive: directive,
		logger:    logging.NewComponentLogger("data_agent"),
	}
}

// ProcessDataRequest answers one data instruction, consulting the session
// cache first. Identical requests within a conversation return the cached
// result.
func (a *DataAgent) ProcessDataRequest(ctx context.Context, conversationID, request string) (DataResult, error) {
	if request == "" {
		return DataResult{}, errors.New("empty data request")
	}

	if cached, ok := a.cache.Get(conversationID, request); ok {
		a.logger.Debug("cache hit", "conversation_id", conversationID)
		cached.Cached = true
		return cached, nil
	}

	tsCode, dataBlock := a.fetchQuotes(ctx, request)

	window := chat.NewWindow([]chat.Message{
		{Role: chat.RoleDirective, Content: a.directive},
		{Role: chat.RoleUser, Content: request + dataBlock},
	})

	content, err := a.gen.GenerateContent(ctx, window)
	if err != nil {
		return DataResult{}, fmt.Errorf("generating data response: %w", err)
	}

	result := DataResult{
		Content:   content,
		TSCode:    tsCode,
		Timestamp: time.Now(),
	}
	a.cache.Put(conversationID, request, result)
	return result, nil
}

// fetchQuotes pulls daily bars for the first stock code mentioned in the
// request and renders them as a text block the model can read. A missing
// code, an unconfigured client or a fetch failure all degrade to no data.
func (a *DataAgent) fetchQuotes(ctx context.Context, request string) (string, string) {
	tsCode, ok := marketdata.ExtractStockCode(request)
	if !ok {
		return "", ""
	}
	if a.quotes == nil || !a.quotes.Available() {
		a.logger.Debug("quotes unavailable, answering without data", "ts_code", tsCode)
		return tsCode, ""
	}

	bars, err := a.quotes.Daily(ctx, tsCode, "", "")
	if err != nil {
		a.logger.Warn("quote fetch failed", "ts_code", tsCode, "error", err)
		return tsCode, ""
	}
	if len(bars) == 0 {
		return tsCode, ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n\nDaily quotes for %s (%d rows):\n", tsCode, len(bars))
	b.WriteString("trade_date open high low close pct_chg vol\n")
	for _, bar := range bars {
		fmt.Fprintf(&b, "%s %.2f %.2f %.2f %.2f %.2f %.0f\n",
			bar.TradeDate, bar.Open, bar.High, bar.Low, bar.Close, bar.PctChg, bar.Vol)
	}
	return tsCode, b.String()
}

// ClearCache drops cached results for one conversation, or for all
// conversations when the ID is empty.
func (a *DataAgent) ClearCache(conversationID string) int {
	if conversationID == "" {
		return a.cache.Clear()
	}
	return a.cache.InvalidateConversation(conversationID)
}

// CacheStats reports the cache size for diagnostics.
func (a *DataAgent) CacheStats() map[string]any {
	return map[string]any{
		"cache_count":      a.cache.Len(),
		"quotes_available": a.quotes != nil && a.quotes.Available(),
	}
}
