package bunrepo

import (
	"context"
	"errors"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/interprelab/go-offline-cache/pkg/domain"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/cache"
	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a registry record is missing.
var ErrNotFound = errors.New("bunrepo: record not found")

// storeRegistry tracks which named stores exist.
type storeRegistry struct {
	repo repository.Repository[*domain.CacheStore]
}

func newStoreRegistry(db *bun.DB) storeRegistry {
	handlers := repository.ModelHandlers[*domain.CacheStore]{
		NewRecord:          func() *domain.CacheStore { return &domain.CacheStore{} },
		GetID:              func(s *domain.CacheStore) uuid.UUID { return s.ID },
		SetID:              func(s *domain.CacheStore, id uuid.UUID) { s.ID = id },
		GetIdentifier:      func() string { return "name" },
		GetIdentifierValue: func(s *domain.CacheStore) string { return s.Name },
	}
	return storeRegistry{
		repo: repository.MustNewRepository[*domain.CacheStore](db, handlers),
	}
}

func (r storeRegistry) create(ctx context.Context, name string) (*domain.CacheStore, error) {
	record := &domain.CacheStore{Name: name}
	record.EnsureID()
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	if _, err := r.repo.Create(ctx, record); err != nil {
		return nil, mapError(err)
	}
	return record, nil
}

func (r storeRegistry) getByName(ctx context.Context, name string) (*domain.CacheStore, error) {
	record, err := r.repo.Get(ctx, withName(name))
	if err != nil {
		return nil, mapError(err)
	}
	return record, nil
}

func (r storeRegistry) names(ctx context.Context) ([]string, error) {
	records, _, err := r.repo.List(ctx, orderByName())
	if err != nil {
		return nil, mapError(err)
	}
	names := make([]string, len(records))
	for i, rec := range records {
		names[i] = rec.Name
	}
	return names, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if repository.IsRecordNotFound(err) {
		return ErrNotFound
	}
	return err
}

func toEntry(rec domain.CacheEntry) cache.Entry {
	return cache.Entry{
		Key:      rec.Key,
		URL:      rec.URL,
		Status:   rec.Status,
		Header:   httpHeader(rec.Header),
		Body:     rec.Body,
		StoredAt: rec.StoredAt,
	}
}

func fromEntry(store string, entry cache.Entry) *domain.CacheEntry {
	storedAt := entry.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now().UTC()
	}
	return &domain.CacheEntry{
		Store:    store,
		Key:      entry.Key,
		URL:      entry.URL,
		Status:   entry.Status,
		Header:   domain.HeaderMap(entry.Header.Clone()),
		Body:     entry.Body,
		StoredAt: storedAt,
	}
}
