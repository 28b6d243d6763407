package di

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/interprelab/go-offline-cache/pkg/commands"
	"github.com/interprelab/go-offline-cache/pkg/config"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/broadcaster"
	"github.com/interprelab/go-offline-cache/pkg/offline"
)

func TestNewRequiresValidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Cache.APIPrefix = "api"
	if _, err := New(context.Background(), Options{Config: cfg}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestNewWiresDefaults(t *testing.T) {
	c, err := New(context.Background(), Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	if c.Controller == nil || c.Syncs == nil || c.Commands == nil || c.Pages == nil {
		t.Fatalf("expected all services wired")
	}
	if c.Controller.State() != offline.StateParsed {
		t.Fatalf("unexpected initial state %s", c.Controller.State())
	}
	if len(c.Notifier) != 2 {
		t.Fatalf("expected broadcast and console notifiers, got %d", len(c.Notifier))
	}
}

func TestNewAddsWebhookChannel(t *testing.T) {
	var got map[string]any
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	cfg := config.Defaults()
	cfg.Webhook.URL = hook.URL
	c, err := New(context.Background(), Options{Config: cfg})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	if len(c.Notifier) != 3 {
		t.Fatalf("expected webhook notifier, got %d", len(c.Notifier))
	}
	payload, _ := json.Marshal(offline.PushMessage{Type: offline.PushTypeCrisisSupport, Message: "Reach out"})
	if err := c.Commands.Push.Execute(context.Background(), commands.Push{Payload: payload}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if got["body"] != "Reach out" || got["tag"] != offline.NotificationTag {
		t.Fatalf("unexpected webhook payload %v", got)
	}
	var notified bool
	for _, evt := range c.Events.Events() {
		if evt.Topic == broadcaster.TopicNotification {
			notified = true
		}
	}
	if !notified {
		t.Fatalf("expected notification broadcast")
	}
}

func TestNewUsesInjectedNetwork(t *testing.T) {
	calls := 0
	network := offline.FetcherFunc(func(ctx context.Context, req *offline.Request) (*offline.Response, error) {
		calls++
		return &offline.Response{Status: http.StatusOK, Header: http.Header{}, Body: []byte("ok")}, nil
	})
	c, err := New(context.Background(), Options{Network: network})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	if _, _, err := c.Controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	want := len(c.Config.Cache.CriticalResources) + len(c.Config.Cache.CriticalAPI)
	if calls != want {
		t.Fatalf("expected %d fetches, got %d", want, calls)
	}
	if c.Controller.State() != offline.StateActive {
		t.Fatalf("expected active, got %s", c.Controller.State())
	}
}

func TestNewForwardsEventsToBroadcaster(t *testing.T) {
	external := broadcaster.NewRecorder(10)
	network := offline.FetcherFunc(func(ctx context.Context, req *offline.Request) (*offline.Response, error) {
		return &offline.Response{Status: http.StatusOK, Header: http.Header{}}, nil
	})
	c, err := New(context.Background(), Options{Network: network, Broadcaster: external})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	if _, _, err := c.Controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(external.Events()) == 0 || len(external.Events()) != len(c.Events.Events()) {
		t.Fatalf("expected mirrored events, got %d and %d", len(external.Events()), len(c.Events.Events()))
	}
}
