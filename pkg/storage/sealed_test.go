package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/interprelab/go-offline-cache/internal/storage/memory"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/cache"
)

func testKey() []byte {
	return bytes.Repeat([]byte{7}, 32)
}

func TestSealedRoundTrip(t *testing.T) {
	ctx := context.Background()
	backing := memory.NewStorage()
	sealed, err := NewSealed(backing, testKey())
	if err != nil {
		t.Fatalf("new sealed: %v", err)
	}

	store, _ := sealed.Open(ctx, "interprelab-offline-v1")
	payload := []byte(`{"status":"ok"}`)
	if err := store.Put(ctx, cache.Entry{Key: "GET /api/health", Status: 200, Body: payload}); err != nil {
		t.Fatalf("put: %v", err)
	}

	raw, _ := backing.Open(ctx, "interprelab-offline-v1")
	rawEntry, ok, _ := raw.Match(ctx, "GET /api/health")
	if !ok {
		t.Fatalf("expected backing entry")
	}
	if bytes.Contains(rawEntry.Body, payload) {
		t.Fatalf("body stored in clear text")
	}

	entry, ok, err := store.Match(ctx, "GET /api/health")
	if err != nil || !ok {
		t.Fatalf("match: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(entry.Body, payload) {
		t.Fatalf("expected %q got %q", payload, entry.Body)
	}
}

func TestSealedRejectsMovedBody(t *testing.T) {
	ctx := context.Background()
	backing := memory.NewStorage()
	sealed, _ := NewSealed(backing, testKey())
	store, _ := sealed.Open(ctx, "s")
	_ = store.Put(ctx, cache.Entry{Key: "GET /a", Body: []byte("secret")})

	raw, _ := backing.Open(ctx, "s")
	entry, _, _ := raw.Match(ctx, "GET /a")
	entry.Key = "GET /b"
	_ = raw.Put(ctx, entry)

	_, _, err := store.Match(ctx, "GET /b")
	if !errors.Is(err, ErrSealedBody) {
		t.Fatalf("expected ErrSealedBody, got %v", err)
	}
}

func TestNewSealedKeySize(t *testing.T) {
	if _, err := NewSealed(memory.NewStorage(), []byte("short")); err == nil {
		t.Fatalf("expected key size error")
	}
}
