package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"dailypush/internal/config"
	"dailypush/internal/notifier"
	"dailypush/internal/storage"
	logx "dailypush/pkg/logx"
)

var ErrUnknownJob = errors.New("unknown job")

type Options struct {
	ConfigPath string
	Overrides  config.Overrides
	// DryRun composes reports and writes them to Out instead of pushing.
	DryRun bool
	Out    io.Writer
	// Now replaces the wall clock (tests).
	Now func() time.Time
}

type App struct {
	opts Options
	cfgm *config.Manager

	logs  *logx.Service
	log   logx.Logger
	store storage.Store

	mu   sync.RWMutex
	comp *components
}

func New(opts Options) (*App, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cfgm := config.NewManager(opts.ConfigPath, opts.Overrides)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	cfgm.SetLogger(log.With(logx.Comp("config")))

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.Comp("storage")))
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		store = st
		log.Debug("storage enabled", logx.String("driver", sc.Driver))
	}

	a := &App{
		opts:  opts,
		cfgm:  cfgm,
		logs:  logSvc,
		log:   log.With(logx.Comp("app")),
		store: store,
	}
	comp, err := build(cfg, log, store, opts.DryRun)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.comp = comp
	return a, nil
}

func (a *App) components() *components {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.comp
}

// RunOnce composes the report for job and delivers it. In dry-run mode the
// report is written to Out and nothing is sent.
func (a *App) RunOnce(ctx context.Context, job string) (notifier.Outcome, error) {
	comp := a.components()
	c, ok := comp.composers[job]
	if !ok {
		return notifier.Outcome{}, fmt.Errorf("%w: %q (want report or remind)", ErrUnknownJob, job)
	}
	if err := config.Validate(comp.cfg, job); err != nil {
		return notifier.Outcome{}, fmt.Errorf("config: %w", err)
	}
	// checked before any provider call
	if err := a.requireGateway(comp); err != nil {
		return notifier.Outcome{}, err
	}

	now := a.opts.Now().In(comp.loc)
	start := time.Now()
	rep, err := c.Compose(ctx, now)
	if err != nil {
		return notifier.Outcome{}, err
	}
	a.log.Info("report composed",
		logx.Job(job), logx.Int("bytes", len(rep.Body)), logx.Duration("took", time.Since(start)))

	if a.opts.DryRun {
		_, err := fmt.Fprintf(a.opts.Out, "%s\n\n%s", rep.Title, rep.Body)
		return notifier.Outcome{}, err
	}
	out, err := comp.notif.Deliver(ctx, job, rep.Title, rep.Body)
	if err != nil {
		return out, fmt.Errorf("deliver %s: %w", job, err)
	}
	return out, nil
}

func (a *App) requireGateway(comp *components) error {
	if a.opts.DryRun || len(comp.notif.Gateways()) > 0 {
		return nil
	}
	return fmt.Errorf("config: %w: set push.serverchan.send_key (or -send-key) or push.telegram", notifier.ErrNoGateways)
}

// History returns the newest delivery records, or storage.ErrDisabled.
func (a *App) History(ctx context.Context, limit int) ([]storage.DeliveryEntry, error) {
	if a.store == nil {
		return nil, storage.ErrDisabled
	}
	return a.store.Deliveries(ctx, limit)
}

func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Close())
	}
	return errors.Join(errs...)
}
