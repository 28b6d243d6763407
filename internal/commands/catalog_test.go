package commands

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/interprelab/go-offline-cache/internal/storage/memory"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/queue"
	"github.com/interprelab/go-offline-cache/pkg/notify"
	"github.com/interprelab/go-offline-cache/pkg/offline"
)

func TestCatalogCommands(t *testing.T) {
	ctx := context.Background()
	network := offline.FetcherFunc(func(ctx context.Context, req *offline.Request) (*offline.Response, error) {
		return &offline.Response{Status: http.StatusOK, Header: http.Header{}, Body: []byte(req.Path())}, nil
	})
	clients := &stubClients{}
	shown := 0
	ctrl, err := offline.New(offline.Options{
		CriticalResources: []string{"/"},
		CriticalAPI:       []string{"/api/health"},
	}, offline.Dependencies{
		Storage: memory.NewStorage(),
		Network: network,
		Clients: clients,
		Notifier: notify.NotifierFunc(func(context.Context, notify.Notification) error {
			shown++
			return nil
		}),
	})
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	q := &stubQueue{}
	cat, err := NewCatalog(Dependencies{Controller: ctrl, Queue: q})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	var installed offline.InstallReport
	var activated offline.ActivateReport
	if err := cat.Install.Execute(ctx, Install{Report: &installed, Activate: &activated}); err != nil {
		t.Fatalf("install: %v", err)
	}
	if len(installed.Resources) != 1 || ctrl.State() != offline.StateActive {
		t.Fatalf("expected install + activation, got %+v state=%s", installed, ctrl.State())
	}
	if err := cat.Activate.Execute(ctx, Activate{}); err != nil {
		t.Fatalf("activate: %v", err)
	}

	var synced offline.SyncReport
	if err := cat.RunSync.Execute(ctx, RunSync{Tag: offline.SyncTagCriticalData, Report: &synced}); err != nil {
		t.Fatalf("run sync: %v", err)
	}
	if len(synced.Endpoints) != 1 || synced.AllFailed() {
		t.Fatalf("unexpected sync report %+v", synced)
	}
	if err := cat.RegisterSync.Execute(ctx, RegisterSync{Tag: offline.SyncTagCriticalData}); err != nil {
		t.Fatalf("register sync: %v", err)
	}
	if len(q.jobs) != 1 || q.jobs[0].Payload != offline.SyncTagCriticalData {
		t.Fatalf("expected queued sync job, got %+v", q.jobs)
	}
	if err := cat.RegisterSync.Execute(ctx, RegisterSync{}); err == nil {
		t.Fatalf("expected error for empty tag")
	}

	var pushed notify.Notification
	var displayed bool
	if err := cat.Push.Execute(ctx, Push{Payload: json.RawMessage(`{"type":"crisis-support"}`), Notification: &pushed, Shown: &displayed}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if shown != 1 {
		t.Fatalf("expected notification, got %d", shown)
	}
	if !displayed || pushed.Tag != offline.NotificationTag || !pushed.RequireInteraction || len(pushed.Actions) != 2 {
		t.Fatalf("unexpected pushed notification %+v (shown=%v)", pushed, displayed)
	}
	displayed = true
	if err := cat.Push.Execute(ctx, Push{Payload: json.RawMessage(`{"type":"marketing"}`), Shown: &displayed}); err != nil {
		t.Fatalf("ignored push: %v", err)
	}
	if displayed {
		t.Fatalf("expected ignored push to report nothing shown")
	}
	if err := cat.NotificationClick.Execute(ctx, NotificationClick{Action: "open-support"}); err != nil {
		t.Fatalf("click: %v", err)
	}
	if len(clients.opened) != 1 || clients.opened[0] != "/crisis-support" {
		t.Fatalf("unexpected opened windows %v", clients.opened)
	}
}

func TestNewCatalogRequiresController(t *testing.T) {
	if _, err := NewCatalog(Dependencies{}); err == nil {
		t.Fatalf("expected error without controller")
	}
}

type stubQueue struct {
	jobs []queue.Job
}

func (s *stubQueue) Enqueue(ctx context.Context, job queue.Job) error {
	s.jobs = append(s.jobs, job)
	return nil
}

type stubClients struct {
	opened []string
}

func (s *stubClients) Open(ctx context.Context, path string) error {
	s.opened = append(s.opened, path)
	return nil
}

func (s *stubClients) Claim(ctx context.Context) error { return nil }
