package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	logx "dailypush/pkg/logx"

	"golang.org/x/time/rate"
)

var (
	ErrStatus       = errors.New("unexpected http status")
	ErrMissingField = errors.New("missing field in upstream response")
	ErrUpstream     = errors.New("upstream reported failure")
)

// maxBody caps how much of a response is read. Provider payloads are small;
// anything larger is almost certainly an error page.
const maxBody = 4 << 20

// Config controls the shared HTTP client.
//
// Defaults (when fields are zero):
//   - timeout: 15s
//   - rate_per_min: 0 (unlimited)
type Config struct {
	Timeout    time.Duration
	RatePerMin int
	UserAgent  string
}

// Client performs blocking GET requests for providers.
// One request is in flight per call; callers query providers in sequence.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	ua      string
	log     logx.Logger
}

func NewClient(cfg Config, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		ua:   strings.TrimSpace(cfg.UserAgent),
		log:  log,
	}
	if cfg.RatePerMin > 0 {
		// burst 1: requests are spread evenly across the minute.
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMin)), 1)
	}
	if c.ua == "" {
		c.ua = "dailypush/1.0"
	}
	return c
}

// Get fetches url and returns the body. Non-2xx responses return ErrStatus.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.ua)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}
	c.log.Debug("provider request",
		logx.String("host", req.URL.Host),
		logx.String("path", req.URL.Path),
		logx.Int("status", resp.StatusCode),
		logx.Duration("took", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s: %d", ErrStatus, req.Method, req.URL.Host+req.URL.Path, resp.StatusCode)
	}
	return body, nil
}

// GetJSON fetches url and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	body, err := c.Get(ctx, url, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// Missing returns an ErrMissingField error naming the first empty field
// (in key order), or nil when all are present.
func Missing(prefix string, fields map[string]string) error {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if strings.TrimSpace(v) == "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	return MissingField(prefix + "." + keys[0])
}

// MissingField wraps ErrMissingField with the JSON path that was absent.
func MissingField(path string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, path)
}
