package notifier

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidSendKey is returned for ServerChan keys that cannot be mapped
	// to an endpoint.
	ErrInvalidSendKey = errors.New("invalid send key")
	// ErrGateway wraps failures reported by the gateway itself.
	ErrGateway    = errors.New("gateway error")
	ErrNoGateways = errors.New("no gateways configured")
)

// Gateway is one outbound push channel.
type Gateway interface {
	Name() string
	Send(ctx context.Context, title, body string) (Result, error)
}

// Result is what a gateway reported back for one send.
type Result struct {
	Gateway string
	// Error is the gateway's own error field ("SUCCESS" on ServerChan).
	Error  string
	PushID string
}

// Outcome is the result of delivering one report.
type Outcome struct {
	Results []Result
	// Suppressed is set when the report was a duplicate inside the dedup window.
	Suppressed bool
}

// Config controls delivery policy.
type Config struct {
	RatePerSec      int
	RetryMax        int
	RetryBase       time.Duration
	RetryMaxDelay   time.Duration
	SendTimeout     time.Duration
	DedupWindow     time.Duration
	DedupMaxEntries int
	PersistDedup    bool
}
