package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"
)

const DefaultTimezone = "Asia/Shanghai"

// Default returns the configuration used when no file is given. Flags fill in
// the keys.
func Default() *Config {
	return &Config{
		Timezone: DefaultTimezone,
		News: NewsConfig{
			ExcludeWebsites: []string{"news.cnhubei.com", "www.ce.cn", "m.36kr.com", "www.guancha.cn"},
		},
		Logging: LoggingConfig{Level: "info", Console: true},
	}
}

// Overrides carries command-line values. Empty fields leave the file value in
// place.
type Overrides struct {
	SendKey         string
	TimeZone        string
	WeatherLocation string
	WeatherKey      string
	AlphaVantageKey string
	LogLevel        string
}

func (o Overrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&cfg.Push.ServerChan.SendKey, o.SendKey)
	set(&cfg.Timezone, o.TimeZone)
	set(&cfg.Weather.Location, o.WeatherLocation)
	set(&cfg.Weather.Key, o.WeatherKey)
	set(&cfg.Finance.Key, o.AlphaVantageKey)
	set(&cfg.Logging.Level, o.LogLevel)
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

// Validate checks what a run needs. job selects which provider keys are
// required; an empty job validates every job.
func Validate(cfg *Config, job string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if _, err := cfg.Location(); err != nil {
		errs = append(errs, err)
	}

	if job == "" || job == "report" {
		if On(cfg.Weather.Enabled) {
			if strings.TrimSpace(cfg.Weather.Key) == "" {
				errs = append(errs, errors.New("weather.key is required (or -weather-key)"))
			}
			if strings.TrimSpace(cfg.Weather.Location) == "" {
				errs = append(errs, errors.New("weather.location is required (or -weather-location)"))
			}
		}
		if On(cfg.Finance.Enabled) && strings.TrimSpace(cfg.Finance.Key) == "" {
			errs = append(errs, errors.New("finance.key is required (or -alpha-vantage-key)"))
		}
	}
	for i, t := range cfg.News.Topics {
		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, fmt.Errorf("news.topics[%d].name is required", i))
		}
	}
	if tg := cfg.Push.Telegram; tg != nil && (strings.TrimSpace(tg.Token) == "" || tg.ChatID == 0) {
		errs = append(errs, errors.New("push.telegram needs token and chat_id"))
	}

	for name, j := range cfg.Scheduler.Jobs {
		if name != "report" && name != "remind" {
			errs = append(errs, fmt.Errorf("scheduler.jobs.%s: unknown job", name))
		}
		if On(j.Enabled) && strings.TrimSpace(j.Schedule) == "" {
			errs = append(errs, fmt.Errorf("scheduler.jobs.%s.schedule is required", name))
		}
	}
	if n := cfg.Notifier; n != nil {
		if n.RetryMax < 0 {
			errs = append(errs, errors.New("notifier.retry_max must be >= 0"))
		}
	}
	if s := cfg.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(s.Path) == "" {
				errs = append(errs, errors.New("storage.path is required"))
			}
		default:
			errs = append(errs, fmt.Errorf("storage.driver %q is not supported", s.Driver))
		}
	}

	fields := cfg.durationFields()
	paths := make([]string, 0, len(fields))
	for p := range fields {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if _, err := ParseDuration(p, fields[p]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
