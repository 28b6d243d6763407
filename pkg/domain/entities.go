package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RecordMeta captures identifiers and audit fields shared across entities.
type RecordMeta struct {
	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// EnsureID assigns a UUID when the struct is about to be persisted.
func (m *RecordMeta) EnsureID() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
}

// HeaderMap persists http.Header values as JSON.
type HeaderMap http.Header

func (h HeaderMap) Value() (driver.Value, error) {
	if h == nil {
		return []byte("null"), nil
	}
	return json.Marshal(map[string][]string(h))
}

func (h *HeaderMap) Scan(value any) error {
	if h == nil {
		return errors.New("HeaderMap: Scan on nil pointer")
	}
	switch v := value.(type) {
	case nil:
		*h = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*map[string][]string)(h))
	case string:
		return json.Unmarshal([]byte(v), (*map[string][]string)(h))
	default:
		return fmt.Errorf("HeaderMap: unsupported type %T", value)
	}
}

// CacheStore is a named cache generation, e.g. "interprelab-critical-v1".
type CacheStore struct {
	bun.BaseModel `bun:"table:cache_stores"`
	RecordMeta

	Name string `bun:",unique,nullzero,notnull" json:"name"`
}

// CacheEntry is a captured response persisted under a store.
type CacheEntry struct {
	bun.BaseModel `bun:"table:cache_entries"`

	ID       int64     `bun:",pk,autoincrement" json:"id"`
	Store    string    `bun:",notnull,unique:cache_entry_identity" json:"store"`
	Key      string    `bun:",notnull,unique:cache_entry_identity" json:"key"`
	URL      string    `bun:",nullzero" json:"url"`
	Status   int       `bun:",notnull" json:"status"`
	Header   HeaderMap `bun:"type:jsonb,nullzero" json:"header"`
	Body     []byte    `bun:",nullzero" json:"body"`
	StoredAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"stored_at"`
}
