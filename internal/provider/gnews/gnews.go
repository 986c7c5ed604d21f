// Package gnews reads Google News topic headlines from the public RSS feed.
package gnews

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dailypush/internal/provider"
)

const DefaultBase = "https://news.google.com"

type Config struct {
	Base            string // default DefaultBase
	Language        string // default "zh-Hans"
	Country         string // default "CN"
	MaxResults      int    // default 10
	ExcludeWebsites []string
}

type Article struct {
	Title     string
	Source    string
	SourceURL string
	Link      string
	Published string
}

type Client struct {
	http    *provider.Client
	cfg     Config
	exclude map[string]struct{}
}

func New(http *provider.Client, cfg Config) *Client {
	if strings.TrimSpace(cfg.Base) == "" {
		cfg.Base = DefaultBase
	}
	cfg.Base = strings.TrimRight(cfg.Base, "/")
	if cfg.Language == "" {
		cfg.Language = "zh-Hans"
	}
	if cfg.Country == "" {
		cfg.Country = "CN"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	ex := make(map[string]struct{}, len(cfg.ExcludeWebsites))
	for _, w := range cfg.ExcludeWebsites {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			ex[w] = struct{}{}
		}
	}
	return &Client{http: http, cfg: cfg, exclude: ex}
}

// TopicURL returns the RSS feed URL for a topic (WORLD, BUSINESS, TECHNOLOGY...).
func (c *Client) TopicURL(topic string) string {
	q := url.Values{}
	q.Set("hl", c.cfg.Language)
	q.Set("gl", c.cfg.Country)
	q.Set("ceid", c.cfg.Country+":"+c.cfg.Language)
	return c.cfg.Base + "/rss/headlines/section/topic/" + url.PathEscape(strings.ToUpper(topic)) + "?" + q.Encode()
}

// Topic returns up to MaxResults articles for topic, excluded websites removed.
func (c *Client) Topic(ctx context.Context, topic string) ([]Article, error) {
	body, err := c.http.Get(ctx, c.TopicURL(topic), nil)
	if err != nil {
		return nil, fmt.Errorf("gnews %s: %w", topic, err)
	}
	arts, err := parseFeed(body)
	if err != nil {
		return nil, fmt.Errorf("gnews %s: %w", topic, err)
	}

	out := make([]Article, 0, min(len(arts), c.cfg.MaxResults))
	for _, a := range arts {
		if c.excluded(a.SourceURL) {
			continue
		}
		out = append(out, a)
		if len(out) >= c.cfg.MaxResults {
			break
		}
	}
	return out, nil
}

func (c *Client) excluded(sourceURL string) bool {
	if len(c.exclude) == 0 || sourceURL == "" {
		return false
	}
	u, err := url.Parse(sourceURL)
	if err != nil {
		return false
	}
	_, ok := c.exclude[strings.ToLower(u.Hostname())]
	return ok
}

// parseFeed extracts RSS items. goquery's HTML parser keeps <item>/<title>
// nesting intact; <link> and <source> parse as void elements, so link comes
// from <guid> and the source from its url attribute.
func parseFeed(body []byte) ([]Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if doc.Find("channel").Length() == 0 {
		return nil, provider.MissingField("rss.channel")
	}

	var (
		arts   []Article
		badIdx = -1
	)
	doc.Find("item").EachWithBreak(func(i int, s *goquery.Selection) bool {
		a := Article{
			Title:     cdata(s.Find("title").First().Text()),
			Link:      strings.TrimSpace(s.Find("guid").First().Text()),
			Published: strings.TrimSpace(s.Find("pubdate").First().Text()),
		}
		src := s.Find("source").First()
		a.SourceURL, _ = src.Attr("url")
		a.Source = strings.TrimSpace(src.Text())
		if a.Title == "" {
			badIdx = i
			return false
		}
		arts = append(arts, a)
		return true
	})
	if badIdx >= 0 {
		return nil, provider.MissingField(fmt.Sprintf("rss.item[%d].title", badIdx))
	}
	return arts, nil
}

func cdata(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<![CDATA[")
	s = strings.TrimSuffix(s, "]]>")
	return strings.TrimSpace(s)
}

// Headline strips the trailing " - Publisher" Google appends to titles.
func Headline(title string) string {
	head, _, _ := strings.Cut(title, " - ")
	return strings.TrimSpace(head)
}
