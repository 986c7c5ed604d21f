package config

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	logx "dailypush/pkg/logx"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestParseJSONAndYAML(t *testing.T) {
	t.Parallel()
	jsonPath := writeFile(t, "c.json", `{
		"timezone": "Asia/Tokyo",
		"push": {"serverchan": {"send_key": "SCT1"}},
		"weather": {"key": "wk", "location": "北京"},
		"news": {"topics": [{"name": "WORLD", "limit": 2}]},
		"scheduler": {"jobs": {"report": {"schedule": "07:30"}}}
	}`)
	yamlPath := writeFile(t, "c.yaml", `
timezone: Asia/Tokyo
push:
  serverchan:
    send_key: SCT1
weather:
  key: wk
  location: 北京
news:
  topics:
    - name: WORLD
      limit: 2
scheduler:
  jobs:
    report:
      schedule: "07:30"
`)
	for _, p := range []string{jsonPath, yamlPath} {
		cfg, err := NewManager(p, Overrides{}).Parse()
		if err != nil {
			t.Fatalf("Parse(%s): %v", filepath.Base(p), err)
		}
		if cfg.Timezone != "Asia/Tokyo" || cfg.Push.ServerChan.SendKey != "SCT1" || cfg.Weather.Location != "北京" {
			t.Fatalf("%s: cfg = %+v", filepath.Base(p), cfg)
		}
		if len(cfg.News.Topics) != 1 || cfg.News.Topics[0].Limit != 2 {
			t.Fatalf("%s: topics = %+v", filepath.Base(p), cfg.News.Topics)
		}
		if cfg.Scheduler.Jobs["report"].Schedule != "07:30" {
			t.Fatalf("%s: jobs = %+v", filepath.Base(p), cfg.Scheduler.Jobs)
		}
		// defaults survive when the file omits them
		if cfg.Logging.Level != "info" || !cfg.Logging.Console {
			t.Fatalf("%s: logging defaults lost: %+v", filepath.Base(p), cfg.Logging)
		}
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name, file, body, want string
	}{
		{"unknown field", "c.json", `{"weather": {"apikey": "x"}}`, "unknown field"},
		{"trailing data", "c.json", `{} {}`, "trailing data"},
		{"bad yaml", "c.yml", "weather: [", "c.yml: yaml:"},
		{"yaml list at top", "c.yaml", "- a\n- b\n", "top level must be a mapping"},
		{"unknown yaml field", "c.yaml", "bogus: 1\n", "unknown field"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewManager(writeFile(t, tt.file, tt.body), Overrides{}).Parse()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestOverridesApplyOnlyNonEmpty(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "c.json", `{"weather": {"key": "file-key", "location": "上海"}, "finance": {"key": "fk"}}`)
	cfg, err := NewManager(p, Overrides{WeatherKey: "flag-key", SendKey: " SCT2 ", TimeZone: "UTC"}).Parse()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Weather.Key != "flag-key" || cfg.Weather.Location != "上海" || cfg.Finance.Key != "fk" {
		t.Fatalf("overlay wrong: %+v %+v", cfg.Weather, cfg.Finance)
	}
	if cfg.Push.ServerChan.SendKey != "SCT2" || cfg.Timezone != "UTC" {
		t.Fatalf("overlay wrong: key=%q tz=%q", cfg.Push.ServerChan.SendKey, cfg.Timezone)
	}
}

func TestParseWithoutFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := NewManager("", Overrides{AlphaVantageKey: "av"}).Parse()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timezone != DefaultTimezone || cfg.Finance.Key != "av" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	ok := func() *Config {
		c := Default()
		c.Weather = WeatherConfig{Key: "k", Location: "北京"}
		c.Finance = FinanceConfig{Key: "k"}
		return c
	}
	off := false

	tests := []struct {
		name   string
		mutate func(*Config)
		job    string
		want   string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing weather key", mutate: func(c *Config) { c.Weather.Key = "" }, want: "weather.key"},
		{name: "weather disabled", mutate: func(c *Config) { c.Weather = WeatherConfig{Enabled: &off} }},
		{name: "remind needs no keys", mutate: func(c *Config) { c.Weather.Key, c.Finance.Key = "", "" }, job: "remind"},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Mars/Base" }, want: "timezone"},
		{name: "unknown job", mutate: func(c *Config) {
			c.Scheduler.Jobs = map[string]JobConfig{"lunch": {Schedule: "12:00"}}
		}, want: "unknown job"},
		{name: "bad duration", mutate: func(c *Config) { c.Notifier = &NotifierConfig{DedupWindow: "soon"} }, want: "notifier.dedup_window"},
		{name: "storage without path", mutate: func(c *Config) { c.Storage = &StorageConfig{Driver: "sqlite"} }, want: "storage.path"},
		{name: "telegram without chat", mutate: func(c *Config) { c.Push.Telegram = &TelegramConfig{Token: "t"} }, want: "push.telegram"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := ok()
			tt.mutate(c)
			job := tt.job
			if job == "" {
				job = "report"
			}
			err := Validate(c, job)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "", want: 0},
		{raw: "2m", want: 2 * time.Minute},
		{raw: " 90 ", want: 90 * time.Second},
		{raw: "1.5", want: 1500 * time.Millisecond},
		{raw: "-1s", wantErr: true},
		{raw: "soon", wantErr: true},
	}
	for _, tt := range tests {
		d, err := ParseDuration("http.timeout", tt.raw)
		if tt.wantErr {
			if !errors.Is(err, ErrDuration) || !strings.Contains(err.Error(), "http.timeout") {
				t.Errorf("%q: err = %v", tt.raw, err)
			}
			continue
		}
		if err != nil || d != tt.want {
			t.Errorf("%q: got %v, %v; want %v", tt.raw, d, err, tt.want)
		}
	}

	if d, err := DurationOr("x", "", 3*time.Second); err != nil || d != 3*time.Second {
		t.Fatalf("default: %v %v", d, err)
	}
	if d, err := DurationOr("x", "0s", 3*time.Second); err != nil || d != 3*time.Second {
		t.Fatalf("zero falls back: %v %v", d, err)
	}
}

func TestYAMLDurationsAndEmptyDocument(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "c.yaml", `
http:
  timeout: 30
notifier:
  retry_base: 0.5
  dedup_window: 12h
scheduler:
  jobs:
    remind:
      schedule: "12:00"
      timeout: 45
`)
	cfg, err := NewManager(p, Overrides{}).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Timeout != "30s" || cfg.Notifier.RetryBase != "0.5s" || cfg.Notifier.DedupWindow != "12h" {
		t.Fatalf("durations = %q %q %q", cfg.HTTP.Timeout, cfg.Notifier.RetryBase, cfg.Notifier.DedupWindow)
	}
	if got := cfg.Scheduler.Jobs["remind"].Timeout; got != "45s" {
		t.Fatalf("job timeout = %q", got)
	}
	if err := Validate(cfg, "remind"); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	empty, err := NewManager(writeFile(t, "empty.yml", "# nothing yet\n"), Overrides{}).Parse()
	if err != nil {
		t.Fatalf("empty yaml: %v", err)
	}
	if empty.Timezone != DefaultTimezone {
		t.Fatalf("empty yaml lost defaults: %+v", empty)
	}
}

func TestSummarizeConfigChangeHidesSecrets(t *testing.T) {
	t.Parallel()
	a, b := Default(), Default()
	b.Weather.Key = "super-secret"
	b.Logging.Level = "debug"

	changed, attrs := SummarizeConfigChange(a, b)
	if strings.Join(changed, ",") != "logging,weather" {
		t.Fatalf("changed = %v", changed)
	}
	var buf bytes.Buffer
	logx.NewWriter(&buf, "info").Info("config changed", attrs...)
	if strings.Contains(buf.String(), "super-secret") {
		t.Fatalf("secret leaked: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"weather.key_set":true`) {
		t.Fatalf("missing key_set attr: %s", buf.String())
	}
}

func TestWatchPublishesReload(t *testing.T) {
	p := writeFile(t, "c.json", `{"timezone": "UTC"}`)
	m := NewManager(p, Overrides{})
	m.SetLogger(logx.Nop())
	m.debounce = 10 * time.Millisecond
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = m.Watch(ctx) }()

	// Let the watcher register before writing.
	deadline := time.After(4 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for i := 0; ; i++ {
		select {
		case cfg := <-ch:
			if cfg.Timezone != "Asia/Tokyo" {
				t.Fatalf("reloaded timezone = %q", cfg.Timezone)
			}
			if m.Get().Timezone != "Asia/Tokyo" {
				t.Fatal("reload not committed")
			}
			return
		case <-tick.C:
			if i%5 == 0 {
				_ = os.WriteFile(p, []byte(`{"timezone": "Asia/Tokyo"}`), 0o600)
			}
		case <-deadline:
			t.Fatal("no reload published")
		}
	}
}
