package config

import (
	"reflect"
	"sort"
	"strings"

	logx "dailypush/pkg/logx"
)

// SummarizeConfigChange returns the changed top-level sections and safe
// attributes for logging. Keys and tokens are never included, only whether
// they are set.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var (
		changed []string
		attrs   []logx.Field
	)
	mark := func(section string, fields ...logx.Field) {
		changed = append(changed, section)
		attrs = append(attrs, fields...)
	}

	if strings.TrimSpace(oldCfg.Timezone) != strings.TrimSpace(newCfg.Timezone) {
		mark("timezone", logx.String("timezone", newCfg.Timezone))
	}
	if !reflect.DeepEqual(oldCfg.Push, newCfg.Push) {
		mark("push",
			logx.Bool("push.serverchan_key_set", strings.TrimSpace(newCfg.Push.ServerChan.SendKey) != ""),
			logx.Bool("push.telegram", newCfg.Push.Telegram != nil))
	}
	if !reflect.DeepEqual(oldCfg.Weather, newCfg.Weather) {
		mark("weather",
			logx.Bool("weather.enabled", On(newCfg.Weather.Enabled)),
			logx.String("weather.location", newCfg.Weather.Location),
			logx.Bool("weather.key_set", newCfg.Weather.Key != ""))
	}
	if !reflect.DeepEqual(oldCfg.News, newCfg.News) {
		mark("news",
			logx.Bool("news.enabled", On(newCfg.News.Enabled)),
			logx.Int("news.topics", len(newCfg.News.Topics)))
	}
	if !reflect.DeepEqual(oldCfg.Finance, newCfg.Finance) {
		mark("finance",
			logx.Bool("finance.enabled", On(newCfg.Finance.Enabled)),
			logx.Bool("finance.key_set", newCfg.Finance.Key != ""))
	}
	if !reflect.DeepEqual(oldCfg.Quote, newCfg.Quote) {
		mark("quote", logx.Bool("quote.enabled", On(newCfg.Quote.Enabled)))
	}
	if oldCfg.HTTP != newCfg.HTTP {
		mark("http",
			logx.String("http.timeout", newCfg.HTTP.Timeout),
			logx.Int("http.rate_per_min", newCfg.HTTP.RatePerMin))
	}
	if oldCfg.Logging != newCfg.Logging {
		mark("logging",
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled))
	}
	if !reflect.DeepEqual(oldCfg.Scheduler, newCfg.Scheduler) {
		mark("scheduler", logx.Int("scheduler.jobs", len(newCfg.Scheduler.Jobs)))
	}
	if !reflect.DeepEqual(oldCfg.Notifier, newCfg.Notifier) {
		n := NotifierConfig{}
		if newCfg.Notifier != nil {
			n = *newCfg.Notifier
		}
		mark("notifier",
			logx.Int("notifier.retry_max", n.RetryMax),
			logx.String("notifier.dedup_window", n.DedupWindow),
			logx.Bool("notifier.persist_dedup", n.PersistDedup))
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		driver := ""
		if newCfg.Storage != nil {
			driver = newCfg.Storage.Driver
		}
		mark("storage", logx.String("storage.driver", driver))
	}

	sort.Strings(changed)
	return changed, attrs
}
