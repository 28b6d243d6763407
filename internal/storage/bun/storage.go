package bunrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/interprelab/go-offline-cache/pkg/domain"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/cache"
	"github.com/uptrace/bun"
)

// Models lists the tables used by the bun cache storage.
func Models() []any {
	return []any{
		(*domain.CacheStore)(nil),
		(*domain.CacheEntry)(nil),
	}
}

// Migrate creates the cache tables when they are missing.
func Migrate(ctx context.Context, db *bun.DB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("bunrepo: create table: %w", err)
		}
	}
	return nil
}

// Storage persists named stores and their entries through bun.
type Storage struct {
	db       *bun.DB
	registry storeRegistry
}

var _ cache.Storage = (*Storage)(nil)

// NewStorage wires a bun-backed cache storage. Tables must exist (see Migrate).
func NewStorage(db *bun.DB) *Storage {
	return &Storage{
		db:       db,
		registry: newStoreRegistry(db),
	}
}

func (s *Storage) Open(ctx context.Context, name string) (cache.Store, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("bunrepo: store name is required")
	}
	_, err := s.registry.getByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		if _, err = s.registry.create(ctx, name); err != nil {
			// a concurrent Open may have created it first
			if _, getErr := s.registry.getByName(ctx, name); getErr != nil {
				return nil, fmt.Errorf("bunrepo: create store %s: %w", name, err)
			}
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("bunrepo: open store %s: %w", name, err)
	}
	return &Store{db: s.db, name: name}, nil
}

func (s *Storage) Has(ctx context.Context, name string) (bool, error) {
	_, err := s.registry.getByName(ctx, strings.TrimSpace(name))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Storage) Delete(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	deleted := false
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*domain.CacheEntry)(nil)).
			Where("store = ?", name).
			Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().
			Model((*domain.CacheStore)(nil)).
			Where("name = ?", name).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			deleted = true
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("bunrepo: delete store %s: %w", name, err)
	}
	return deleted, nil
}

func (s *Storage) Names(ctx context.Context) ([]string, error) {
	return s.registry.names(ctx)
}

// Store is a bun-backed named store.
type Store struct {
	db   *bun.DB
	name string
}

var _ cache.Store = (*Store)(nil)

func (s *Store) Name() string { return s.name }

func (s *Store) Match(ctx context.Context, key string) (cache.Entry, bool, error) {
	var rec domain.CacheEntry
	err := s.db.NewSelect().
		Model(&rec).
		Where("store = ? AND key = ?", s.name, key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, err
	}
	return toEntry(rec), true, nil
}

func (s *Store) Put(ctx context.Context, entry cache.Entry) error {
	return upsertEntry(ctx, s.db, fromEntry(s.name, entry))
}

func (s *Store) PutAll(ctx context.Context, entries []cache.Entry) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, entry := range entries {
			if err := upsertEntry(ctx, tx, fromEntry(s.name, entry)); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertEntry(ctx context.Context, db bun.IDB, model *domain.CacheEntry) error {
	_, err := db.NewInsert().
		Model(model).
		On("CONFLICT (store, key) DO UPDATE").
		Set("url = EXCLUDED.url").
		Set("status = EXCLUDED.status").
		Set("header = EXCLUDED.header").
		Set("body = EXCLUDED.body").
		Set("stored_at = EXCLUDED.stored_at").
		Exec(ctx)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.db.NewDelete().
		Model((*domain.CacheEntry)(nil)).
		Where("store = ? AND key = ?", s.name, key).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.NewSelect().
		Model((*domain.CacheEntry)(nil)).
		Column("key").
		Where("store = ?", s.name).
		Order("key ASC").
		Scan(ctx, &keys)
	if err != nil {
		return nil, err
	}
	return keys, nil
}
