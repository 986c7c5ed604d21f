package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"dailypush/internal/config"
	"dailypush/internal/notifier"
	"dailypush/internal/storage"
)

var fixedNow = time.Date(2026, 10, 19, 7, 30, 0, 0, time.FixedZone("CST", 8*3600))

const rss = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>t</title>
<item><title>头条一 - 新华网</title><guid>a1</guid><source url="https://www.news.cn">新华网</source></item>
<item><title>头条二 - 澎湃</title><guid>a2</guid><source url="https://www.thepaper.cn">澎湃</source></item>
</channel></rss>`

var upstream = map[string]string{
	"/v2/city/lookup": `{"code":"200","location":[{"id":"101010100","name":"北京"}]}`,
	"/v7/weather/now": `{"code":"200","now":{"text":"晴","temp":"21","feelsLike":"20","windDir":"北风","windScale":"3"}}`,
	"/v7/weather/24h": `{"code":"200","hourly":[{"fxTime":"2026-10-19T08:00+08:00","pop":"10"}]}`,
	"/v7/indices/1d":  `{"code":"200","daily":[{"type":"1","level":"2","category":"较适宜"},{"type":"3","level":"5","category":"舒适"},{"type":"5","level":"3","category":"中等"}]}`,
	"/v7/weather/7d":  `{"code":"200","daily":[{"fxDate":"2026-10-19","tempMax":"24","tempMin":"12","textDay":"晴","textNight":"多云","windDirDay":"北风","windScaleDay":"1-3","windDirNight":"南风","windScaleNight":"1-3"},{"fxDate":"2026-10-20","tempMax":"22","tempMin":"11","textDay":"晴","textNight":"晴"}]}`,
	"/hitokoto/":      `{"hitokoto":"路漫漫其修远兮","from":"离骚","from_who":"屈原"}`,
}

type sent struct {
	Title string `json:"title"`
	Desp  string `json:"desp"`
}

type fakeUpstream struct {
	*httptest.Server
	mu       sync.Mutex
	sends    []sent
	requests int
}

func newUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests++
		f.mu.Unlock()
		switch {
		case r.URL.Path == "/send":
			var s sent
			_ = json.NewDecoder(r.Body).Decode(&s)
			f.mu.Lock()
			f.sends = append(f.sends, s)
			f.mu.Unlock()
			_, _ = w.Write([]byte(`{"code":0,"message":"","data":{"pushid":"1","error":"SUCCESS","errno":0}}`))
		case strings.HasPrefix(r.URL.Path, "/rss/"):
			_, _ = w.Write([]byte(rss))
		case r.URL.Path == "/query":
			if r.URL.Query().Get("function") == "GLOBAL_QUOTE" {
				_, _ = w.Write([]byte(`{"Global Quote":{"05. price":"181.8100"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"Realtime Currency Exchange Rate":{"5. Exchange Rate":"7.81230000"}}`))
		default:
			body, ok := upstream[r.URL.Path]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(body))
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeUpstream) Sends() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sends...)
}

func (f *fakeUpstream) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func writeConfig(t *testing.T, srv *fakeUpstream, extra map[string]any) string {
	t.Helper()
	cfg := map[string]any{
		"timezone": "Asia/Shanghai",
		"push":     map[string]any{"serverchan": map[string]any{"endpoint": srv.URL + "/send"}},
		"weather":  map[string]any{"key": "k", "location": "北京", "geo_base": srv.URL, "api_base": srv.URL},
		"news":     map[string]any{"base": srv.URL},
		"finance":  map[string]any{"key": "k", "base": srv.URL},
		"quote":    map[string]any{"base": srv.URL + "/hitokoto"},
		"logging":  map[string]any{"level": "error", "console": false},
	}
	for k, v := range extra {
		cfg[k] = v
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(p, b, 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestApp(t *testing.T, opts Options) *App {
	t.Helper()
	opts.Now = func() time.Time { return fixedNow }
	a, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestRunOnceMorningReportEndToEnd(t *testing.T) {
	srv := newUpstream(t)
	a := newTestApp(t, Options{ConfigPath: writeConfig(t, srv, nil)})

	out, err := a.RunOnce(context.Background(), "report")
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].Error != "SUCCESS" {
		t.Fatalf("outcome = %+v", out)
	}
	sends := srv.Sends()
	if len(sends) != 1 {
		t.Fatalf("sends = %d", len(sends))
	}
	if sends[0].Title != "🌞 早安晨报 (10/19)" {
		t.Fatalf("title = %q", sends[0].Title)
	}
	body := sends[0].Desp
	order := []string{"🕒 现在是2026年10月19日，北京时间早上7时30分", "⛅️ 当前天气：晴", "📰 热点新闻：\n\n1. 头条一", "💵 实时金融市场数据：", "EUR/CNY:   7.81", "NVDA: 181.81", "「路漫漫其修远兮」—— 屈原《离骚》"}
	pos := -1
	for _, want := range order {
		i := strings.Index(body, want)
		if i < 0 || i < pos {
			t.Fatalf("body missing or out of order %q:\n%s", want, body)
		}
		pos = i
	}
}

func TestRunOnceDryRunDoesNotSend(t *testing.T) {
	srv := newUpstream(t)
	var buf bytes.Buffer
	a := newTestApp(t, Options{ConfigPath: writeConfig(t, srv, nil), DryRun: true, Out: &buf})

	if _, err := a.RunOnce(context.Background(), "remind"); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	want := "🍽️ 吃饭提醒 (10/19)\n\n🕒 现在是2026年10月19日7时30分\n\n🍳 新的一天刚刚开始，不要忘记吃早餐哦！"
	if buf.String() != want {
		t.Fatalf("dry-run output = %q", buf.String())
	}
	if len(srv.Sends()) != 0 {
		t.Fatal("dry-run pushed a message")
	}
}

func TestRunOnceOverridesAndValidation(t *testing.T) {
	srv := newUpstream(t)
	// Keys come only from the command line.
	p := writeConfig(t, srv, map[string]any{
		"weather": map[string]any{"location": "北京", "geo_base": srv.URL, "api_base": srv.URL},
	})

	a := newTestApp(t, Options{ConfigPath: p})
	if _, err := a.RunOnce(context.Background(), "report"); err == nil || !strings.Contains(err.Error(), "weather.key") {
		t.Fatalf("err = %v, want weather.key validation error", err)
	}

	a = newTestApp(t, Options{ConfigPath: p, Overrides: config.Overrides{WeatherKey: "k"}})
	if _, err := a.RunOnce(context.Background(), "report"); err != nil {
		t.Fatalf("RunOnce with -weather-key: %v", err)
	}

	if _, err := a.RunOnce(context.Background(), "lunch"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("err = %v, want ErrUnknownJob", err)
	}
}

func TestRunOnceWithoutGatewayQueriesNothing(t *testing.T) {
	srv := newUpstream(t)
	p := writeConfig(t, srv, map[string]any{"push": map[string]any{}})

	a := newTestApp(t, Options{ConfigPath: p})
	_, err := a.RunOnce(context.Background(), "report")
	if !errors.Is(err, notifier.ErrNoGateways) || !strings.Contains(err.Error(), "-send-key") {
		t.Fatalf("err = %v, want ErrNoGateways naming -send-key", err)
	}
	if n := srv.Requests(); n != 0 {
		t.Fatalf("%d provider requests made before the gateway check", n)
	}

	// dry-run needs no gateway
	var buf bytes.Buffer
	a = newTestApp(t, Options{ConfigPath: p, DryRun: true, Out: &buf})
	if _, err := a.RunOnce(context.Background(), "remind"); err != nil {
		t.Fatalf("dry-run: %v", err)
	}
}

func TestUpstreamFailureSendsNothing(t *testing.T) {
	srv := newUpstream(t)
	p := writeConfig(t, srv, map[string]any{"quote": map[string]any{"base": srv.URL + "/missing"}})
	a := newTestApp(t, Options{ConfigPath: p})

	if _, err := a.RunOnce(context.Background(), "report"); err == nil || !strings.Contains(err.Error(), "section quote") {
		t.Fatalf("err = %v", err)
	}
	if len(srv.Sends()) != 0 {
		t.Fatal("partial report was pushed")
	}
}

func TestHistoryAndDedupWithStorage(t *testing.T) {
	srv := newUpstream(t)
	p := writeConfig(t, srv, map[string]any{
		"storage":  map[string]any{"driver": "sqlite", "path": filepath.Join(t.TempDir(), "dp.db")},
		"notifier": map[string]any{"dedup_window": "1h", "persist_dedup": true},
	})
	a := newTestApp(t, Options{ConfigPath: p})
	ctx := context.Background()

	if _, err := a.RunOnce(ctx, "remind"); err != nil {
		t.Fatal(err)
	}
	out, err := a.RunOnce(ctx, "remind")
	if err != nil || !out.Suppressed {
		t.Fatalf("second run: out=%+v err=%v", out, err)
	}
	hist, err := a.History(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 || hist[0].Job != "remind" || !hist[0].OK || hist[0].Gateway != "serverchan" {
		t.Fatalf("history = %+v", hist)
	}
}

func TestHistoryWithoutStorage(t *testing.T) {
	srv := newUpstream(t)
	a := newTestApp(t, Options{ConfigPath: writeConfig(t, srv, nil)})
	if _, err := a.History(context.Background(), 5); !errors.Is(err, storage.ErrDisabled) {
		t.Fatalf("err = %v", err)
	}
}

func TestDaemonSchedulerFromConfig(t *testing.T) {
	srv := newUpstream(t)
	p := writeConfig(t, srv, map[string]any{
		"scheduler": map[string]any{"jobs": map[string]any{
			"report": map[string]any{"schedule": "07:30"},
			"remind": map[string]any{"schedule": "0 12,18 * * *"},
		}},
	})
	a := newTestApp(t, Options{ConfigPath: p})
	cfg := a.components().cfg
	if err := validateJobs(cfg); err != nil {
		t.Fatalf("validateJobs: %v", err)
	}
	s, err := a.newScheduler(cfg)
	if err != nil {
		t.Fatal(err)
	}
	e := s.Entries()
	if len(e) != 2 || e[0].Name != "remind" || e[1].Name != "report" {
		t.Fatalf("entries = %+v", e)
	}

	empty := writeConfig(t, srv, nil)
	b := newTestApp(t, Options{ConfigPath: empty})
	if _, err := b.newScheduler(b.components().cfg); err == nil {
		t.Fatal("daemon without jobs should fail")
	}
}

func TestDaemonRunStopsOnCancel(t *testing.T) {
	srv := newUpstream(t)
	p := writeConfig(t, srv, map[string]any{
		"scheduler": map[string]any{"jobs": map[string]any{"remind": map[string]any{"schedule": "0 12 * * *"}}},
	})
	a := newTestApp(t, Options{ConfigPath: p})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}
