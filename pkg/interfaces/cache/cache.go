package cache

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrStoreNotFound is returned when a named store does not exist.
var ErrStoreNotFound = errors.New("cache: store not found")

// Entry is a captured response held by a named store.
type Entry struct {
	Key      string
	URL      string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Clone returns a deep copy so callers never share header maps or body slices.
func (e Entry) Clone() Entry {
	out := e
	out.Header = e.Header.Clone()
	if e.Body != nil {
		out.Body = append([]byte(nil), e.Body...)
	}
	return out
}

// Store is a single named key/response mapping. A miss is reported through
// the boolean, never as an error.
type Store interface {
	Name() string
	Match(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, entry Entry) error
	// PutAll stores every entry or none of them.
	PutAll(ctx context.Context, entries []Entry) error
	Delete(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
}

// Storage manages the set of named stores for an origin.
type Storage interface {
	// Open returns the named store, creating it when missing.
	Open(ctx context.Context, name string) (Store, error)
	Has(ctx context.Context, name string) (bool, error)
	// Delete drops the store and every entry in it.
	Delete(ctx context.Context, name string) (bool, error)
	Names(ctx context.Context) ([]string, error)
}

// Nop storage hands out stores that always miss and ignore writes.
type Nop struct{}

var _ Storage = (*Nop)(nil)

func (n *Nop) Open(ctx context.Context, name string) (Store, error) { return nopStore{name: name}, nil }
func (n *Nop) Has(ctx context.Context, name string) (bool, error)   { return false, nil }
func (n *Nop) Delete(ctx context.Context, name string) (bool, error) {
	return false, nil
}
func (n *Nop) Names(ctx context.Context) ([]string, error) { return nil, nil }

type nopStore struct {
	name string
}

func (s nopStore) Name() string { return s.name }
func (s nopStore) Match(ctx context.Context, key string) (Entry, bool, error) {
	return Entry{}, false, nil
}
func (s nopStore) Put(ctx context.Context, entry Entry) error           { return nil }
func (s nopStore) PutAll(ctx context.Context, entries []Entry) error    { return nil }
func (s nopStore) Delete(ctx context.Context, key string) (bool, error) { return false, nil }
func (s nopStore) Keys(ctx context.Context) ([]string, error)           { return nil, nil }
