// Package hitokoto fetches the quote of the day from the hitokoto API.
package hitokoto

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"dailypush/internal/provider"
)

const DefaultBase = "https://v1.hitokoto.cn"

type Config struct {
	Base string // default DefaultBase
	// Categories narrows the pool (a: anime, d: literature, i: poetry, k: philosophy...).
	Categories []string
}

type Quote struct {
	Text    string
	From    string
	FromWho string // empty for anonymous quotes
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

func (c *Client) Today(ctx context.Context) (Quote, error) {
	q := url.Values{}
	q.Set("encode", "json")
	for _, cat := range c.cfg.Categories {
		q.Add("c", cat)
	}
	var resp struct {
		Text    string  `json:"hitokoto"`
		From    string  `json:"from"`
		FromWho *string `json:"from_who"`
	}
	if err := c.http.GetJSON(ctx, c.cfg.Base+"/?"+q.Encode(), nil, &resp); err != nil {
		return Quote{}, fmt.Errorf("hitokoto: %w", err)
	}
	if err := provider.Missing("hitokoto", map[string]string{"hitokoto": resp.Text, "from": resp.From}); err != nil {
		return Quote{}, err
	}
	out := Quote{Text: strings.TrimSpace(resp.Text), From: strings.TrimSpace(resp.From)}
	if resp.FromWho != nil {
		out.FromWho = strings.TrimSpace(*resp.FromWho)
	}
	return out, nil
}
