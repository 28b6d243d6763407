package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"
	bunrepo "github.com/interprelab/go-offline-cache/internal/storage/bun"
	"github.com/interprelab/go-offline-cache/internal/storage/memory"
	"github.com/interprelab/go-offline-cache/pkg/config"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/cache"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Provider bundles a cache storage with the resources that back it.
type Provider struct {
	Storage cache.Storage
	DB      *bun.DB
}

// Close releases the underlying database, when there is one.
func (p Provider) Close() error {
	if p.DB == nil {
		return nil
	}
	return p.DB.Close()
}

// NewMemoryStorage returns a storage backed by in-memory maps.
func NewMemoryStorage() cache.Storage {
	return memory.NewStorage()
}

// NewBunStorage wires a bun-backed storage on an existing database.
// The caller owns the *bun.DB lifecycle.
func NewBunStorage(ctx context.Context, db *bun.DB) (cache.Storage, error) {
	if db == nil {
		return nil, fmt.Errorf("storage: bun DB is required")
	}

	// Register models so go-persistence-bun migrations can pick them up.
	persistence.RegisterModel(bunrepo.Models()...)

	if err := bunrepo.Migrate(ctx, db); err != nil {
		return nil, err
	}
	return bunrepo.NewStorage(db), nil
}

// Open builds the storage described by cfg, sealing bodies when an
// encryption key is configured.
func Open(ctx context.Context, cfg config.StorageConfig) (Provider, error) {
	var provider Provider
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		provider.Storage = NewMemoryStorage()
	case "sqlite":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return Provider{}, fmt.Errorf("storage: open sqlite: %w", err)
		}
		db := bun.NewDB(sqldb, sqlitedialect.New())
		st, err := NewBunStorage(ctx, db)
		if err != nil {
			_ = db.Close()
			return Provider{}, err
		}
		provider.Storage = st
		provider.DB = db
	default:
		return Provider{}, fmt.Errorf("storage: unsupported driver %q", cfg.Driver)
	}

	if strings.TrimSpace(cfg.EncryptionKey) != "" {
		key, err := cfg.Key()
		if err != nil {
			_ = provider.Close()
			return Provider{}, err
		}
		sealed, err := NewSealed(provider.Storage, key)
		if err != nil {
			_ = provider.Close()
			return Provider{}, err
		}
		provider.Storage = sealed
	}
	return provider, nil
}
