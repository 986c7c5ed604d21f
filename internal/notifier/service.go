package notifier

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"dailypush/internal/storage"
	logx "dailypush/pkg/logx"
)

// Service delivers reports to gateways with rate limiting, retry and dedup.
//
// It is safe for concurrent use.
type Service struct {
	mu       sync.Mutex
	cfg      Config
	limiter  *rate.Limiter
	gateways []Gateway

	log   logx.Logger
	store storage.Store

	// In-memory dedup cache: key -> suppress until
	dmu   sync.Mutex
	dedup map[string]time.Time

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, gateways []Gateway, log logx.Logger, store storage.Store) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		gateways: gateways,
		log:      log.With(logx.Comp("notifier")),
		store:    store,
		dedup:    map[string]time.Time{},
		sleep:    sleepCtx,
	}
	s.applyLocked(cfg)
	return s
}

// Apply swaps the delivery policy. Gateways are kept.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if cfg.DedupWindow < 0 {
		cfg.DedupWindow = 0
	}
	if cfg.DedupMaxEntries <= 0 {
		cfg.DedupMaxEntries = 2000
	}
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Gateways returns the configured gateway names in send order.
func (s *Service) Gateways() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.gateways))
	for _, g := range s.gateways {
		out = append(out, g.Name())
	}
	return out
}

// Deliver sends one report to every gateway in order. The first gateway that
// still fails after its retries aborts delivery; results gathered so far are
// returned with the error.
func (s *Service) Deliver(ctx context.Context, job, title, body string) (Outcome, error) {
	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	gws := append([]Gateway(nil), s.gateways...)
	s.mu.Unlock()

	if len(gws) == 0 {
		return Outcome{}, ErrNoGateways
	}

	key := dedupKey(job, title, body)
	if cfg.DedupWindow > 0 && s.suppressed(ctx, key, cfg) {
		s.log.Info("report suppressed as duplicate", logx.Job(job), logx.String("key", key))
		return Outcome{Suppressed: true}, nil
	}

	var out Outcome
	for _, g := range gws {
		res, err := s.sendWithRetry(ctx, cfg, lim, g, job, title, body)
		out.Results = append(out.Results, res)
		if err != nil {
			return out, fmt.Errorf("%s: %w", g.Name(), err)
		}
	}

	if cfg.DedupWindow > 0 {
		s.remember(ctx, key, cfg)
	}
	return out, nil
}

func (s *Service) sendWithRetry(ctx context.Context, cfg Config, lim *rate.Limiter, g Gateway, job, title, body string) (Result, error) {
	maxAttempts := 1 + cfg.RetryMax

	var (
		res     Result
		lastErr error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return res, err
			}
		}

		start := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
		res, lastErr = g.Send(callCtx, title, body)
		cancel()
		s.record(ctx, storage.DeliveryEntry{
			At:      start,
			Job:     job,
			Title:   title,
			Gateway: g.Name(),
			OK:      lastErr == nil,
			Attempt: attempt,
			Error:   errString(lastErr),
			PushID:  res.PushID,
			TookMS:  time.Since(start).Milliseconds(),
		})
		if lastErr == nil {
			s.log.Info("report delivered",
				logx.Job(job), logx.String("gateway", g.Name()),
				logx.String("pushid", res.PushID), logx.Int("attempt", attempt))
			return res, nil
		}
		s.log.Warn("send failed",
			logx.String("gateway", g.Name()), logx.Err(lastErr),
			logx.Int("attempt", attempt), logx.Int("max", maxAttempts))

		if attempt >= maxAttempts || errors.Is(lastErr, ErrInvalidSendKey) {
			break
		}
		if err := s.sleep(ctx, retryDelay(cfg, attempt)); err != nil {
			return res, err
		}
	}
	return res, lastErr
}

func (s *Service) record(ctx context.Context, e storage.DeliveryEntry) {
	if s.store == nil {
		return
	}
	if err := s.store.AppendDelivery(context.WithoutCancel(ctx), e); err != nil {
		s.log.Debug("delivery history write failed", logx.Err(err))
	}
}

func dedupKey(job, title, body string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(job))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(title))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(body))
	return fmt.Sprintf("%x", h.Sum64())
}

func (s *Service) suppressed(ctx context.Context, key string, cfg Config) bool {
	now := time.Now()

	s.dmu.Lock()
	if until, ok := s.dedup[key]; ok && now.Before(until) {
		s.dmu.Unlock()
		return true
	}
	s.dmu.Unlock()

	// Persistent check for cross-restart dedup.
	if cfg.PersistDedup && s.store != nil {
		until, ok, err := s.store.GetDedup(ctx, key)
		if err != nil {
			s.log.Debug("dedup lookup failed", logx.Err(err))
			return false
		}
		if ok && now.Before(until) {
			s.dmu.Lock()
			s.dedup[key] = until
			s.dmu.Unlock()
			return true
		}
	}
	return false
}

// remember marks key as delivered for one window, then prunes expired entries
// and caps the cache by evicting the earliest expiries.
func (s *Service) remember(ctx context.Context, key string, cfg Config) {
	now := time.Now()
	until := now.Add(cfg.DedupWindow)

	s.dmu.Lock()
	s.dedup[key] = until
	for k, t := range s.dedup {
		if !now.Before(t) {
			delete(s.dedup, k)
		}
	}
	for len(s.dedup) > cfg.DedupMaxEntries {
		var (
			minKey string
			minT   time.Time
		)
		for k, t := range s.dedup {
			if minKey == "" || t.Before(minT) {
				minKey, minT = k, t
			}
		}
		delete(s.dedup, minKey)
	}
	s.dmu.Unlock()

	if cfg.PersistDedup && s.store != nil {
		if err := s.store.PutDedup(context.WithoutCancel(ctx), key, until); err != nil {
			s.log.Debug("dedup persist failed", logx.Err(err))
		}
	}
}

func retryDelay(cfg Config, attempt int) time.Duration {
	// attempt starts at 1; the delay is for the NEXT attempt.
	base := cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	maxD := cfg.RetryMaxDelay
	if maxD <= 0 {
		maxD = 10 * time.Second
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxD {
			d = maxD
			break
		}
	}
	// Jitter 0.7..1.3
	j := 0.7 + rand.Float64()*0.6
	d = time.Duration(float64(d) * j)
	if d < 0 {
		return 0
	}
	return min(d, maxD)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
