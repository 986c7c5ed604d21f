package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	logx "dailypush/pkg/logx"
)

func TestTelegramSend(t *testing.T) {
	t.Parallel()
	var (
		mu    sync.Mutex
		texts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/botTOKEN/sendMessage") {
			t.Errorf("path = %s", r.URL.Path)
		}
		var p map[string]any
		_ = json.NewDecoder(r.Body).Decode(&p)
		if fmt.Sprint(p["chat_id"]) != "42" || p["parse_mode"] != "HTML" {
			t.Errorf("params = %v", p)
		}
		mu.Lock()
		texts = append(texts, fmt.Sprint(p["text"]))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
	}))
	defer srv.Close()

	tg, err := NewTelegram(TelegramConfig{Token: "TOKEN", ChatID: 42, APIURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	res, err := tg.Send(context.Background(), "a<b", "line 1\n\n")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.PushID != "7" || res.Error != "SUCCESS" {
		t.Fatalf("result = %+v", res)
	}
	if len(texts) != 1 || texts[0] != "<b>a&lt;b</b>\n\nline 1" {
		t.Fatalf("texts = %q", texts)
	}
}

func TestNewTelegramValidates(t *testing.T) {
	t.Parallel()
	if _, err := NewTelegram(TelegramConfig{ChatID: 1}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
	if _, err := NewTelegram(TelegramConfig{Token: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty chat id")
	}
}

func TestSplitText(t *testing.T) {
	t.Parallel()
	if got := splitText("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("short = %q", got)
	}

	line := strings.Repeat("新", 8)
	s := strings.Join([]string{line, line, line}, "\n")
	got := splitText(s, 20)
	if len(got) != 2 || got[0] != line+"\n"+line || got[1] != line {
		t.Fatalf("chunks = %q", got)
	}
	for _, c := range got {
		if n := len([]rune(c)); n > 20 {
			t.Fatalf("chunk has %d runes", n)
		}
	}

	// escaping is per chunk: entities stay whole and every chunk fits
	for _, in := range []string{"aaaaaa&&&<>", "x & y & z & w", "🌞🌞🌞🌞🌞"} {
		got := splitText(in, 8)
		if strings.Join(got, "") != in {
			t.Fatalf("%q: chunks %q lose text", in, got)
		}
		for _, c := range got {
			esc := html.EscapeString(c)
			if n := textUnits(esc); n > 8 {
				t.Fatalf("%q: chunk %q is %d units escaped", in, esc, n)
			}
			if strings.Count(esc, "&") != strings.Count(esc, ";") {
				t.Fatalf("%q: broken entity in %q", in, esc)
			}
		}
	}
}

func TestTelegramSendSplitsLongReports(t *testing.T) {
	t.Parallel()
	var (
		mu    sync.Mutex
		texts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p map[string]any
		_ = json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		texts = append(texts, fmt.Sprint(p["text"]))
		n := len(texts)
		mu.Unlock()
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"date":0,"chat":{"id":42,"type":"private"}}}`, n)
	}))
	defer srv.Close()

	tg, err := NewTelegram(TelegramConfig{Token: "TOKEN", ChatID: 42, APIURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	body := strings.Repeat("R&D <news> 🌞\n\n", 600)
	res, err := tg.Send(context.Background(), "晨报", body)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.PushID != "1" {
		t.Fatalf("push id = %q", res.PushID)
	}
	if len(texts) < 2 {
		t.Fatalf("expected several messages, got %d", len(texts))
	}
	if !strings.HasPrefix(texts[0], "<b>晨报</b>\n\n") {
		t.Fatalf("first message lacks title: %.40q", texts[0])
	}
	for i, txt := range texts {
		if n := textUnits(txt); n > telegramTextLimit {
			t.Fatalf("message %d is %d units", i, n)
		}
		if i > 0 && !strings.HasPrefix(txt, "R&amp;D") {
			t.Fatalf("message %d starts mid-line: %.40q", i, txt)
		}
	}
}
