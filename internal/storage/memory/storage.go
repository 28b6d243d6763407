package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/interprelab/go-offline-cache/pkg/interfaces/cache"
)

// Storage keeps named stores in process memory.
type Storage struct {
	mu     sync.RWMutex
	stores map[string]*Store
	now    func() time.Time
}

var _ cache.Storage = (*Storage)(nil)

// NewStorage returns an empty in-memory cache storage.
func NewStorage() *Storage {
	return &Storage{
		stores: make(map[string]*Store),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Storage) Open(ctx context.Context, name string) (cache.Store, error) {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	if store, ok := s.stores[name]; ok {
		return store, nil
	}
	store := &Store{
		name:    name,
		entries: make(map[string]cache.Entry),
		now:     s.now,
	}
	s.stores[name] = store
	return store, nil
}

func (s *Storage) Has(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.stores[strings.TrimSpace(name)]
	return ok, nil
}

func (s *Storage) Delete(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = strings.TrimSpace(name)
	if _, ok := s.stores[name]; !ok {
		return false, nil
	}
	delete(s.stores, name)
	return true, nil
}

func (s *Storage) Names(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.stores))
	for name := range s.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Store is a single in-memory named store.
type Store struct {
	mu      sync.RWMutex
	name    string
	entries map[string]cache.Entry
	now     func() time.Time
}

var _ cache.Store = (*Store)(nil)

func (s *Store) Name() string { return s.name }

func (s *Store) Match(ctx context.Context, key string) (cache.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return cache.Entry{}, false, nil
	}
	return entry.Clone(), true, nil
}

func (s *Store) Put(ctx context.Context, entry cache.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(entry)
	return nil
}

func (s *Store) PutAll(ctx context.Context, entries []cache.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		s.put(entry)
	}
	return nil
}

func (s *Store) put(entry cache.Entry) {
	stored := entry.Clone()
	if stored.StoredAt.IsZero() {
		stored.StoredAt = s.now()
	}
	s.entries[entry.Key] = stored
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
