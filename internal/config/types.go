package config

// Config is the on-disk configuration. Files may be JSON or YAML; unknown keys
// are rejected.
//
// All durations are Go duration strings (e.g. "500ms", "15s", "1h").
type Config struct {
	// Timezone is an IANA name used for report timestamps and triggers.
	// Default: "Asia/Shanghai".
	Timezone string `json:"timezone"`

	Push    PushConfig    `json:"push"`
	Weather WeatherConfig `json:"weather"`
	News    NewsConfig    `json:"news"`
	Finance FinanceConfig `json:"finance"`
	Quote   QuoteConfig   `json:"quote"`
	HTTP    HTTPConfig    `json:"http"`
	Logging LoggingConfig `json:"logging"`

	Scheduler SchedulerConfig `json:"scheduler"`

	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
}

type PushConfig struct {
	ServerChan ServerChanConfig `json:"serverchan"`
	Telegram   *TelegramConfig  `json:"telegram,omitempty"`
}

type ServerChanConfig struct {
	SendKey string `json:"send_key"`
	// Endpoint overrides the URL derived from send_key.
	Endpoint string `json:"endpoint,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
	APIURL string `json:"api_url,omitempty"`
}

// WeatherConfig configures the QWeather provider.
type WeatherConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"`
	Key      string `json:"key"`
	Location string `json:"location"`
	GeoBase  string `json:"geo_base,omitempty"`
	APIBase  string `json:"api_base,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

type NewsConfig struct {
	Enabled         *bool         `json:"enabled,omitempty"`
	Base            string        `json:"base,omitempty"`
	Language        string        `json:"language,omitempty"`
	Country         string        `json:"country,omitempty"`
	MaxResults      int           `json:"max_results,omitempty"`
	ExcludeWebsites []string      `json:"exclude_websites,omitempty"`
	Topics          []TopicConfig `json:"topics,omitempty"`
}

type TopicConfig struct {
	Name  string `json:"name"`
	Limit int    `json:"limit"`
}

// FinanceConfig configures the Alpha Vantage provider.
type FinanceConfig struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Key     string `json:"key"`
	Base    string `json:"base,omitempty"`
}

type QuoteConfig struct {
	Enabled    *bool    `json:"enabled,omitempty"`
	Base       string   `json:"base,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// HTTPConfig applies to every outbound provider call.
//
// Defaults: timeout "15s", rate_per_min 0 (unlimited), user_agent "dailypush/1.0".
type HTTPConfig struct {
	Timeout    string `json:"timeout,omitempty"`
	RatePerMin int    `json:"rate_per_min,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig holds daemon triggers keyed by job name ("report", "remind").
//
// Example:
//
//	"scheduler": { "jobs": { "report": { "schedule": "07:30" } } }
type SchedulerConfig struct {
	Jobs map[string]JobConfig `json:"jobs,omitempty"`
}

// JobConfig is one trigger. Schedule accepts cron ("30 7 * * *", "@daily"),
// a daily wall-clock time ("07:30") or an interval ("every:6h").
type JobConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"`
	Schedule string `json:"schedule"`
	// Timeout bounds one run; "0s" disables it.
	Timeout string `json:"timeout,omitempty"`
}

// NotifierConfig controls delivery policy.
//
// Defaults (when fields are omitted/zero):
//   - rate_per_sec: 3
//   - retry_max: 0 (single attempt)
//   - retry_base: "500ms", retry_max_delay: "10s"
//   - send_timeout: "15s"
//   - dedup_window: "0s" (disabled)
//   - dedup_max_entries: 2000
type NotifierConfig struct {
	RatePerSec      int    `json:"rate_per_sec"`
	RetryMax        int    `json:"retry_max"`
	RetryBase       string `json:"retry_base"`
	RetryMaxDelay   string `json:"retry_max_delay"`
	SendTimeout     string `json:"send_timeout,omitempty"`
	DedupWindow     string `json:"dedup_window"`
	DedupMaxEntries int    `json:"dedup_max_entries"`
	PersistDedup    bool   `json:"persist_dedup,omitempty"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/dailypush.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite
}

// On reports whether an optional section switch is enabled; nil means on.
func On(b *bool) bool { return b == nil || *b }
