// Package alphavantage fetches currency, crypto and stock quotes from
// Alpha Vantage.
package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"dailypush/internal/provider"
)

const DefaultBase = "https://www.alphavantage.co"

type Config struct {
	Key  string
	Base string // default DefaultBase
}

type Client struct {
	http *provider.Client
	cfg  Config
}

func New(http *provider.Client, cfg Config) *Client {
	if strings.TrimSpace(cfg.Base) == "" {
		cfg.Base = DefaultBase
	}
	cfg.Base = strings.TrimRight(cfg.Base, "/")
	return &Client{http: http, cfg: cfg}
}

// ExchangeRate returns how many units of to one unit of from buys.
// Works for both fiat and crypto codes.
func (c *Client) ExchangeRate(ctx context.Context, from, to string) (float64, error) {
	q := url.Values{}
	q.Set("function", "CURRENCY_EXCHANGE_RATE")
	q.Set("from_currency", from)
	q.Set("to_currency", to)

	var resp struct {
		Rate *struct {
			Value string `json:"5. Exchange Rate"`
		} `json:"Realtime Currency Exchange Rate"`
		status
	}
	if err := c.query(ctx, q, &resp, &resp.status); err != nil {
		return 0, fmt.Errorf("alphavantage %s/%s: %w", from, to, err)
	}
	if resp.Rate == nil {
		return 0, fmt.Errorf("alphavantage %s/%s: %w", from, to, provider.MissingField("Realtime Currency Exchange Rate"))
	}
	v, err := parseNumber("Realtime Currency Exchange Rate.5. Exchange Rate", resp.Rate.Value)
	if err != nil {
		return 0, fmt.Errorf("alphavantage %s/%s: %w", from, to, err)
	}
	return v, nil
}

// StockPrice returns the latest price from GLOBAL_QUOTE.
func (c *Client) StockPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("function", "GLOBAL_QUOTE")
	q.Set("symbol", symbol)

	var resp struct {
		Quote *struct {
			Price string `json:"05. price"`
		} `json:"Global Quote"`
		status
	}
	if err := c.query(ctx, q, &resp, &resp.status); err != nil {
		return 0, fmt.Errorf("alphavantage %s: %w", symbol, err)
	}
	if resp.Quote == nil {
		return 0, fmt.Errorf("alphavantage %s: %w", symbol, provider.MissingField("Global Quote"))
	}
	v, err := parseNumber("Global Quote.05. price", resp.Quote.Price)
	if err != nil {
		return 0, fmt.Errorf("alphavantage %s: %w", symbol, err)
	}
	return v, nil
}

// status carries the throttling/usage messages Alpha Vantage returns with a
// 200 status instead of data.
type status struct {
	Note        string `json:"Note"`
	Information string `json:"Information"`
	Error       string `json:"Error Message"`
}

func (s status) err() error {
	for _, msg := range []string{s.Error, s.Note, s.Information} {
		if msg = strings.TrimSpace(msg); msg != "" {
			return fmt.Errorf("%w: %s", provider.ErrUpstream, msg)
		}
	}
	return nil
}

func (c *Client) query(ctx context.Context, q url.Values, out any, st *status) error {
	q.Set("apikey", c.cfg.Key)
	if err := c.http.GetJSON(ctx, c.cfg.Base+"/query?"+q.Encode(), nil, out); err != nil {
		return err
	}
	return st.err()
}

func parseNumber(path, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, provider.MissingField(path)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
