package offline

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/interprelab/go-offline-cache/internal/storage/memory"
	"github.com/interprelab/go-offline-cache/pkg/notify"
)

var errOffline = errors.New("dial tcp: network is unreachable")

// fakeNetwork serves canned bodies per path and counts calls.
type fakeNetwork struct {
	mu      sync.Mutex
	offline bool
	bodies  map[string]string
	status  map[string]int
	calls   map[string]int
	headers []http.Header
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		bodies: make(map[string]string),
		status: make(map[string]int),
		calls:  make(map[string]int),
	}
}

func (f *fakeNetwork) Fetch(ctx context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.Method+" "+req.Path()]++
	f.headers = append(f.headers, req.Header.Clone())
	if f.offline {
		return nil, errOffline
	}
	status, ok := f.status[req.Path()]
	if !ok {
		status = http.StatusOK
	}
	body, ok := f.bodies[req.Path()]
	if !ok {
		status = http.StatusNotFound
	}
	header := make(http.Header)
	header.Set("Content-Type", "text/plain")
	return &Response{Status: status, Header: header, Body: []byte(body), URL: "http://origin" + req.Path()}, nil
}

func (f *fakeNetwork) set(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[path] = body
}

func (f *fakeNetwork) setOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = offline
}

func (f *fakeNetwork) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method+" "+path]
}

type recordingNotifier struct {
	mu    sync.Mutex
	shown []notify.Notification
}

func (r *recordingNotifier) Show(ctx context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, n)
	return nil
}

type recordingClients struct {
	opened []string
	claims int
}

func (r *recordingClients) Open(ctx context.Context, path string) error {
	r.opened = append(r.opened, path)
	return nil
}

func (r *recordingClients) Claim(ctx context.Context) error {
	r.claims++
	return nil
}

type harness struct {
	ctrl     *Controller
	net      *fakeNetwork
	storage  *memory.Storage
	notifier *recordingNotifier
	clients  *recordingClients
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		net:      newFakeNetwork(),
		storage:  memory.NewStorage(),
		notifier: &recordingNotifier{},
		clients:  &recordingClients{},
	}
	ctrl, err := New(opts, Dependencies{
		Storage:  h.storage,
		Network:  h.net,
		Notifier: h.notifier,
		Clients:  h.clients,
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	h.ctrl = ctrl
	return h
}

func (h *harness) fetch(t *testing.T, method, target string) *Response {
	t.Helper()
	req, err := NewRequest(method, target)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := h.ctrl.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("fetch %s %s: %v", method, target, err)
	}
	h.ctrl.Wait()
	return resp
}

func (h *harness) keys(t *testing.T, store string) []string {
	t.Helper()
	s, err := h.storage.Open(context.Background(), store)
	if err != nil {
		t.Fatalf("open %s: %v", store, err)
	}
	keys, err := s.Keys(context.Background())
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	return keys
}
