package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/interprelab/go-offline-cache/pkg/config"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/queue"
	"github.com/interprelab/go-offline-cache/pkg/offline"
	"github.com/interprelab/go-offline-cache/pkg/retry"
)

type stubHandler struct {
	mu       sync.Mutex
	calls    int
	failures int
}

func (s *stubHandler) Sync(ctx context.Context, tag string) (offline.SyncReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	report := offline.SyncReport{Tag: tag}
	if s.calls <= s.failures {
		report.Endpoints = []offline.EndpointResult{{Endpoint: "/api/health", Err: offline.ErrNetwork}}
		return report, nil
	}
	report.Endpoints = []offline.EndpointResult{{Endpoint: "/api/health"}}
	return report, nil
}

func newTestManager(t *testing.T, handler Handler, attempts int) (*Manager, chan Result) {
	t.Helper()
	results := make(chan Result, 4)
	m, err := New(Dependencies{
		Handler: handler,
		Config:  config.SyncConfig{MaxAttempts: attempts},
		Backoff: retry.ExponentialBackoff{Base: time.Millisecond, Max: 5 * time.Millisecond},
		OnComplete: func(r Result) {
			results <- r
		},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, results
}

func waitResult(t *testing.T, results chan Result) Result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for sync result")
	}
	return Result{}
}

func TestManagerRetriesUntilOnline(t *testing.T) {
	handler := &stubHandler{failures: 2}
	m, results := newTestManager(t, handler, 5)

	if err := m.Register(context.Background(), offline.SyncTagCriticalData); err != nil {
		t.Fatalf("register: %v", err)
	}
	r := waitResult(t, results)
	if r.Err != nil {
		t.Fatalf("expected success, got %v", r.Err)
	}
	if r.Attempts != 3 || r.Tag != offline.SyncTagCriticalData {
		t.Fatalf("unexpected result %+v", r)
	}
}

func TestManagerGivesUp(t *testing.T) {
	handler := &stubHandler{failures: 10}
	m, results := newTestManager(t, handler, 2)

	if err := m.Register(context.Background(), offline.SyncTagCriticalData); err != nil {
		t.Fatalf("register: %v", err)
	}
	r := waitResult(t, results)
	if !errors.Is(r.Err, retry.ErrExhausted) || !errors.Is(r.Err, ErrStillOffline) {
		t.Fatalf("expected exhausted offline error, got %v", r.Err)
	}
	if r.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", r.Attempts)
	}
}

func TestManagerRejectsBadPayloadAndClosed(t *testing.T) {
	m, _ := newTestManager(t, &stubHandler{}, 1)
	if err := m.Enqueue(context.Background(), queue.Job{Payload: 42}); !errors.Is(err, errInvalidPayload) {
		t.Fatalf("expected invalid payload, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := m.Register(context.Background(), "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestNewRequiresHandler(t *testing.T) {
	if _, err := New(Dependencies{}); !errors.Is(err, errSyncerRequired) {
		t.Fatalf("expected handler error, got %v", err)
	}
}
