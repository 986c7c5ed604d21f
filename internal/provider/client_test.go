package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logx "dailypush/pkg/logx"
)

func TestGetJSONSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Key") != "k1" {
			t.Errorf("X-Key = %q", r.Header.Get("X-Key"))
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`{"name":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{UserAgent: "test-agent"}, logx.Nop())
	var out struct {
		Name string `json:"name"`
	}
	if err := c.GetJSON(context.Background(), srv.URL, http.Header{"X-Key": {"k1"}}, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Name != "ok" {
		t.Fatalf("Name = %q", out.Name)
	}
}

func TestGetNon2xxIsErrStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(Config{}, logx.Nop()).Get(context.Background(), srv.URL, nil)
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("err = %v, want ErrStatus", err)
	}
}

func TestGetJSONMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	var out map[string]any
	if err := NewClient(Config{}, logx.Nop()).GetJSON(context.Background(), srv.URL, nil, &out); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{RatePerMin: 1}, logx.Nop())
	if _, err := c.Get(context.Background(), srv.URL, nil); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Get(ctx, srv.URL, nil); err == nil {
		t.Fatal("second Get should fail waiting for the limiter")
	}
}

func TestMissingNamesFirstEmptyKey(t *testing.T) {
	t.Parallel()
	err := Missing("now", map[string]string{"text": "晴", "temp": "", "feelsLike": " "})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("err = %v", err)
	}
	if got, want := err.Error(), ErrMissingField.Error()+": now.feelsLike"; got != want {
		t.Fatalf("err = %q, want %q", got, want)
	}
	if err := Missing("now", map[string]string{"text": "晴"}); err != nil {
		t.Fatalf("unexpected err %v", err)
	}
}
