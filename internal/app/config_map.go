package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"dailypush/internal/config"
	"dailypush/internal/notifier"
	"dailypush/internal/provider"
	"dailypush/internal/scheduler"
	"dailypush/internal/storage"
	logx "dailypush/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	busy, err := config.DurationOr("storage.busy_timeout", sc.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{Driver: driver, Path: strings.TrimSpace(sc.Path), BusyTimeout: busy}, true, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	n := cfg.Notifier
	if n == nil {
		n = &config.NotifierConfig{}
	}
	var (
		out notifier.Config
		err error
	)
	out.RatePerSec = n.RatePerSec
	out.RetryMax = n.RetryMax
	out.DedupMaxEntries = n.DedupMaxEntries
	out.PersistDedup = n.PersistDedup
	if out.RetryBase, err = config.DurationOr("notifier.retry_base", n.RetryBase, 500*time.Millisecond); err != nil {
		return out, err
	}
	if out.RetryMaxDelay, err = config.DurationOr("notifier.retry_max_delay", n.RetryMaxDelay, 10*time.Second); err != nil {
		return out, err
	}
	if out.SendTimeout, err = config.DurationOr("notifier.send_timeout", n.SendTimeout, 15*time.Second); err != nil {
		return out, err
	}
	if out.DedupWindow, err = config.ParseDuration("notifier.dedup_window", n.DedupWindow); err != nil {
		return out, err
	}
	return out, nil
}

func mapHTTPConfig(cfg *config.Config) (provider.Config, error) {
	timeout, err := config.DurationOr("http.timeout", cfg.HTTP.Timeout, 15*time.Second)
	if err != nil {
		return provider.Config{}, err
	}
	return provider.Config{Timeout: timeout, RatePerMin: cfg.HTTP.RatePerMin, UserAgent: cfg.HTTP.UserAgent}, nil
}

// mapJobs returns the enabled triggers sorted by name. Run is filled in by
// the caller.
func mapJobs(cfg *config.Config) ([]scheduler.Job, error) {
	names := make([]string, 0, len(cfg.Scheduler.Jobs))
	for name := range cfg.Scheduler.Jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []scheduler.Job
	for _, name := range names {
		jc := cfg.Scheduler.Jobs[name]
		if !config.On(jc.Enabled) {
			continue
		}
		// unset means 5m; an explicit "0s" runs without a limit
		timeout := 5 * time.Minute
		if strings.TrimSpace(jc.Timeout) != "" {
			var err error
			if timeout, err = config.ParseDuration(fmt.Sprintf("scheduler.jobs.%s.timeout", name), jc.Timeout); err != nil {
				return nil, err
			}
		}
		out = append(out, scheduler.Job{Name: name, Schedule: jc.Schedule, Timeout: timeout})
	}
	return out, nil
}
