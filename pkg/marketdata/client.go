package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/quantchat/quantchat/pkg/logging"
)

const defaultBaseURL = "https://api.tushare.pro"

// ErrUnavailable marks the client as unconfigured: no token, so no live
// market data. Callers degrade gracefully instead of failing the turn.
var ErrUnavailable = errors.New("market data unavailable: no tushare token configured")

// DailyBar is one day of OHLCV data for a stock.
type DailyBar struct {
	TSCode    string
	TradeDate string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	PreClose  float64
	Change    float64
	PctChg    float64
	Vol       float64
	Amount    float64
}

// DailyBasic is one day of valuation metrics for a stock.
type DailyBasic struct {
	TSCode       string
	TradeDate    string
	Close        float64
	TurnoverRate float64
	PE           float64
	PB           float64
	TotalMV      float64
}

// AdjFactor is one day's price adjustment factor.
type AdjFactor struct {
	TSCode    string
	TradeDate string
	Factor    float64
}

// Option configures the market data client.
type Option func(*Client)

// WithBaseURL overrides the Tushare endpoint (tests point it at httptest).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// Client fetches Chinese A-share market data from the Tushare Pro HTTP API.
// A client with an empty token is valid but returns ErrUnavailable from every
// fetch.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient builds a Tushare client for the given API token.
func NewClient(token string, opts ...Option) *Client {
	client := &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewComponentLogger("marketdata"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Available reports whether the client has a token and can serve requests.
func (c *Client) Available() bool {
	return c.token != ""
}

type apiRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Fields []string `json:"fields"`
		Items  [][]any  `json:"items"`
	} `json:"data"`
}

// Daily fetches daily OHLCV bars for a stock code between two YYYYMMDD dates.
// Dates may be empty; Tushare then applies its own defaults.
func (c *Client) Daily(ctx context.Context, tsCode, startDate, endDate string) ([]DailyBar, error) {
	rows, err := c.query(ctx, "daily", tsCode, startDate, endDate)
	if err != nil {
		return nil, err
	}

	bars := make([]DailyBar, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, DailyBar{
			TSCode:    row.str("ts_code"),
			TradeDate: row.str("trade_date"),
			Open:      row.num("open"),
			High:      row.num("high"),
			Low:       row.num("low"),
			Close:     row.num("close"),
			PreClose:  row.num("pre_close"),
			Change:    row.num("change"),
			PctChg:    row.num("pct_chg"),
			Vol:       row.num("vol"),
			Amount:    row.num("amount"),
		})
	}
	return bars, nil
}

// DailyBasic fetches daily valuation metrics for a stock code.
func (c *Client) DailyBasic(ctx context.Context, tsCode, startDate, endDate string) ([]DailyBasic, error) {
	rows, err := c.query(ctx, "daily_basic", tsCode, startDate, endDate)
	if err != nil {
		return nil, err
	}

	basics := make([]DailyBasic, 0, len(rows))
	for _, row := range rows {
		basics = append(basics, DailyBasic{
			TSCode:       row.str("ts_code"),
			TradeDate:    row.str("trade_date"),
			Close:        row.num("close"),
			TurnoverRate: row.num("turnover_rate"),
			PE:           row.num("pe"),
			PB:           row.num("pb"),
			TotalMV:      row.num("total_mv"),
		})
	}
	return basics, nil
}

// AdjFactors fetches daily price adjustment factors for a stock code.
func (c *Client) AdjFactors(ctx context.Context, tsCode, startDate, endDate string) ([]AdjFactor, error) {
	rows, err := c.query(ctx, "adj_factor", tsCode, startDate, endDate)
	if err != nil {
		return nil, err
	}

	factors := make([]AdjFactor, 0, len(rows))
	for _, row := range rows {
		factors = append(factors, AdjFactor{
			TSCode:    row.str("ts_code"),
			TradeDate: row.str("trade_date"),
			Factor:    row.num("adj_factor"),
		})
	}
	return factors, nil
}

// row is one Tushare result item keyed by field name. Cells mix strings
// (codes, dates) and numbers, and nulls appear on suspended trading days.
type row map[string]any

func (r row) str(field string) string {
	if value, ok := r[field].(string); ok {
		return value
	}
	return ""
}

func (r row) num(field string) float64 {
	if value, ok := r[field].(float64); ok {
		return value
	}
	return 0
}

func (c *Client) query(ctx context.Context, apiName, tsCode, startDate, endDate string) ([]row, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}

	tsCode, err := NormalizeStockCode(tsCode)
	if err != nil {
		return nil, err
	}
	startDate, err = ValidateDate(startDate)
	if err != nil {
		return nil, err
	}
	endDate, err = ValidateDate(endDate)
	if err != nil {
		return nil, err
	}

	params := map[string]string{"ts_code": tsCode}
	if startDate != "" {
		params["start_date"] = startDate
	}
	if endDate != "" {
		params["end_date"] = endDate
	}

	payload, err := json.Marshal(apiRequest{
		APIName: apiName,
		Token:   c.token,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", apiName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", apiName, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling tushare %s: %w", apiName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tushare %s returned status %d", apiName, resp.StatusCode)
	}

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", apiName, err)
	}
	if decoded.Code != 0 {
		return nil, fmt.Errorf("tushare %s error %d: %s", apiName, decoded.Code, decoded.Msg)
	}

	index := make(map[string]int, len(decoded.Data.Fields))
	for i, field := range decoded.Data.Fields {
		index[field] = i
	}

	rows := make([]row, 0, len(decoded.Data.Items))
	for _, item := range decoded.Data.Items {
		r := make(row, len(index))
		for field, i := range index {
			if i < len(item) {
				r[field] = item[i]
			}
		}
		rows = append(rows, r)
	}

	c.logger.Debug("tushare query", "api", apiName, "ts_code", tsCode, "rows", len(rows))
	return rows, nil
}
