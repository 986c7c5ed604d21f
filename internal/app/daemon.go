package app

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"dailypush/internal/config"
	"dailypush/internal/scheduler"
	logx "dailypush/pkg/logx"
	"dailypush/pkg/systemd"
)

// Run is daemon mode: it triggers every job in scheduler.jobs until ctx ends,
// hot-reloading the config file when it changes.
func (a *App) Run(ctx context.Context) error {
	comp := a.components()
	cfg := comp.cfg
	if err := a.requireGateway(comp); err != nil {
		return err
	}
	if err := validateJobs(cfg); err != nil {
		return err
	}
	sched, err := a.newScheduler(cfg)
	if err != nil {
		return err
	}
	sched.Start(ctx)

	a.cfgm.SetValidator(validateJobs)
	sub := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(sub)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		_ = a.cfgm.Watch(ctx)
	}()

	go systemd.Watchdog(ctx, a.log)
	systemd.Ready(a.log)
	a.announce(sched)

	for {
		select {
		case <-ctx.Done():
			systemd.Stopping(a.log)
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			sched.Stop(stopCtx)
			cancel()
			<-watchDone
			return nil
		case newCfg, ok := <-sub:
			if !ok {
				return errors.New("config subscription closed")
			}
			systemd.Reloading(a.log)
			if next, err := a.reload(ctx, sched, newCfg); err != nil {
				a.log.Error("config reload not applied", logx.Err(err))
			} else {
				sched = next
			}
			systemd.Ready(a.log)
			a.announce(sched)
		}
	}
}

// reload swaps in components built from newCfg. The scheduler is rebuilt only
// when the job table changed; a timezone change just moves the triggers.
func (a *App) reload(ctx context.Context, sched *scheduler.Scheduler, newCfg *config.Config) (*scheduler.Scheduler, error) {
	old := a.components()
	sections, attrs := config.SummarizeConfigChange(old.cfg, newCfg)
	if len(sections) == 0 {
		return sched, nil
	}
	a.log.Info("config change", append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)...)

	a.logs.Apply(mapLogConfig(newCfg))
	comp, err := build(newCfg, a.logs.Logger(), a.store, a.opts.DryRun)
	if err != nil {
		return sched, err
	}
	a.mu.Lock()
	a.comp = comp
	a.mu.Unlock()

	if !reflect.DeepEqual(old.cfg.Scheduler, newCfg.Scheduler) {
		next, err := a.newScheduler(newCfg)
		if err != nil {
			return sched, err
		}
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		sched.Stop(stopCtx)
		cancel()
		next.Start(ctx)
		return next, nil
	}
	sched.SetLocation(comp.loc)
	return sched, nil
}

func (a *App) newScheduler(cfg *config.Config) (*scheduler.Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	jobs, err := mapJobs(cfg)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, errors.New("daemon mode needs at least one enabled job in scheduler.jobs")
	}
	s := scheduler.New(loc, a.log)
	for _, j := range jobs {
		name := j.Name
		j.Run = func(ctx context.Context) error {
			_, err := a.RunOnce(ctx, name)
			return err
		}
		if err := s.Add(j); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// validateJobs checks the config for every enabled scheduled job.
func validateJobs(cfg *config.Config) error {
	var errs []error
	for name, j := range cfg.Scheduler.Jobs {
		if !config.On(j.Enabled) {
			continue
		}
		if _, err := scheduler.ParseSchedule(j.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.jobs.%s: %w", name, err))
		}
		if err := config.Validate(cfg, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) announce(sched *scheduler.Scheduler) {
	entries := sched.Entries()
	for _, e := range entries {
		a.log.Info("job scheduled", logx.Job(e.Name), logx.String("schedule", e.Schedule), logx.Time("next", e.Next))
	}
	systemd.Status(a.log, fmt.Sprintf("%d jobs scheduled", len(entries)))
}
