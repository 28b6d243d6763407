package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/interprelab/go-offline-cache/pkg/config"
	"github.com/interprelab/go-offline-cache/pkg/notify"
)

func crisisNotification() notify.Notification {
	return notify.Notification{
		Title:              "InterpreLab Crisis Support",
		Body:               "Crisis support is available. You are not alone.",
		Tag:                "crisis-support",
		RequireInteraction: true,
		Actions:            []notify.Action{{Action: "open-support", Title: "Open Support"}},
		Data:               map[string]any{"url": "/crisis-support"},
	}
}

func TestShowPostsJSON(t *testing.T) {
	var got map[string]any
	var method, token, user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		token = r.Header.Get("X-Token")
		user, pass, _ = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	a := New(nil, WithConfig(Config{
		URL:           srv.URL,
		Method:        "put",
		Headers:       map[string]string{"X-Token": "abc"},
		BasicAuthUser: "ops",
		BasicAuthPass: "secret",
	}), WithClient(srv.Client()))
	a.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	if err := a.Show(context.Background(), crisisNotification()); err != nil {
		t.Fatalf("show: %v", err)
	}
	if method != http.MethodPut || token != "abc" || user != "ops" || pass != "secret" {
		t.Fatalf("unexpected request %s token=%q auth=%q:%q", method, token, user, pass)
	}
	if got["title"] != "InterpreLab Crisis Support" || got["tag"] != "crisis-support" || got["requireInteraction"] != true {
		t.Fatalf("unexpected payload %v", got)
	}
	if got["sent_at"] != "2024-01-02T03:04:05Z" {
		t.Fatalf("unexpected timestamp %v", got["sent_at"])
	}
	if data := got["data"].(map[string]any); data["url"] != "/crisis-support" {
		t.Fatalf("unexpected data %v", data)
	}
}

func TestShowReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := New(nil, WithConfig(Config{URL: srv.URL}), WithClient(srv.Client()))
	if err := a.Show(context.Background(), crisisNotification()); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestShowRequiresURL(t *testing.T) {
	a := New(nil)
	if err := a.Show(context.Background(), crisisNotification()); !errors.Is(err, ErrURLRequired) {
		t.Fatalf("expected ErrURLRequired, got %v", err)
	}
}

func TestShowDryRunSkipsDelivery(t *testing.T) {
	a := New(nil, WithConfig(Config{URL: "http://127.0.0.1:1", DryRun: true}))
	if err := a.Show(context.Background(), crisisNotification()); err != nil {
		t.Fatalf("dry run: %v", err)
	}
}

func TestShowRejectsInvalidNotification(t *testing.T) {
	a := New(nil, WithConfig(Config{URL: "http://127.0.0.1:1"}))
	if err := a.Show(context.Background(), notify.Notification{}); !errors.Is(err, notify.ErrMissingTitle) {
		t.Fatalf("expected ErrMissingTitle, got %v", err)
	}
}

func TestConfigFromCopiesHeaders(t *testing.T) {
	src := config.WebhookConfig{URL: "https://ops.example.com/hook", Headers: map[string]string{"A": "1"}}
	cfg := ConfigFrom(src)
	cfg.Headers["A"] = "2"
	if src.Headers["A"] != "1" || cfg.URL != src.URL {
		t.Fatalf("expected header copy, got %v", src.Headers)
	}
}
