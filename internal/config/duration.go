package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrDuration marks a duration field that does not parse.
var ErrDuration = errors.New("invalid duration")

// durationKeys are the leaf keys holding durations. YAML numbers under these
// keys are read as seconds.
var durationKeys = map[string]bool{
	"timeout":         true,
	"retry_base":      true,
	"retry_max_delay": true,
	"send_timeout":    true,
	"dedup_window":    true,
	"busy_timeout":    true,
}

// ParseDuration reads a duration field at the given config path. Empty is
// zero; a bare number counts seconds ("30" == "30s").
func ParseDuration(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		s = strconv.FormatFloat(n, 'f', -1, 64) + "s"
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w %q (want e.g. 30s, 5m, 1h30m)", path, ErrDuration, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: %w %q: negative", path, ErrDuration, raw)
	}
	return d, nil
}

// DurationOr is ParseDuration with def for empty or zero values.
func DurationOr(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDuration(path, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}

// durationFields lists every duration field in cfg by config path.
func (c *Config) durationFields() map[string]string {
	out := map[string]string{"http.timeout": c.HTTP.Timeout}
	for name, j := range c.Scheduler.Jobs {
		out["scheduler.jobs."+name+".timeout"] = j.Timeout
	}
	if n := c.Notifier; n != nil {
		out["notifier.retry_base"] = n.RetryBase
		out["notifier.retry_max_delay"] = n.RetryMaxDelay
		out["notifier.send_timeout"] = n.SendTimeout
		out["notifier.dedup_window"] = n.DedupWindow
	}
	if s := c.Storage; s != nil {
		out["storage.busy_timeout"] = s.BusyTimeout
	}
	return out
}
