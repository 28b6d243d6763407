package storage

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/interprelab/go-offline-cache/pkg/interfaces/cache"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealedBody is returned when a stored body cannot be opened with the key.
var ErrSealedBody = errors.New("storage: sealed body could not be opened")

type cipherSuite interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
}

// Sealed encrypts entry bodies at rest with XChaCha20-Poly1305. The store
// name and entry key are bound as additional data, so a body copied under a
// different key fails to open.
type Sealed struct {
	next cache.Storage
	aead cipherSuite
}

var _ cache.Storage = (*Sealed)(nil)

// NewSealed wraps next using a 32 byte key.
func NewSealed(next cache.Storage, key []byte) (*Sealed, error) {
	if next == nil {
		return nil, fmt.Errorf("storage: sealed storage requires a backing storage")
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("storage: key must be %d bytes", chacha20poly1305.KeySize)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Sealed{next: next, aead: aead}, nil
}

func (s *Sealed) Open(ctx context.Context, name string) (cache.Store, error) {
	store, err := s.next.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &sealedStore{next: store, aead: s.aead}, nil
}

func (s *Sealed) Has(ctx context.Context, name string) (bool, error) {
	return s.next.Has(ctx, name)
}

func (s *Sealed) Delete(ctx context.Context, name string) (bool, error) {
	return s.next.Delete(ctx, name)
}

func (s *Sealed) Names(ctx context.Context) ([]string, error) {
	return s.next.Names(ctx)
}

type sealedStore struct {
	next cache.Store
	aead cipherSuite
}

func (s *sealedStore) Name() string { return s.next.Name() }

func (s *sealedStore) Match(ctx context.Context, key string) (cache.Entry, bool, error) {
	entry, ok, err := s.next.Match(ctx, key)
	if err != nil || !ok {
		return entry, ok, err
	}
	plain, err := s.open(key, entry.Body)
	if err != nil {
		return cache.Entry{}, false, err
	}
	entry.Body = plain
	return entry, true, nil
}

func (s *sealedStore) Put(ctx context.Context, entry cache.Entry) error {
	sealed, err := s.seal(entry)
	if err != nil {
		return err
	}
	return s.next.Put(ctx, sealed)
}

func (s *sealedStore) PutAll(ctx context.Context, entries []cache.Entry) error {
	sealed := make([]cache.Entry, 0, len(entries))
	for _, entry := range entries {
		out, err := s.seal(entry)
		if err != nil {
			return err
		}
		sealed = append(sealed, out)
	}
	return s.next.PutAll(ctx, sealed)
}

func (s *sealedStore) Delete(ctx context.Context, key string) (bool, error) {
	return s.next.Delete(ctx, key)
}

func (s *sealedStore) Keys(ctx context.Context) ([]string, error) {
	return s.next.Keys(ctx)
}

func (s *sealedStore) seal(entry cache.Entry) (cache.Entry, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return cache.Entry{}, fmt.Errorf("storage: nonce: %w", err)
	}
	out := entry.Clone()
	out.Body = s.aead.Seal(nonce, nonce, entry.Body, s.additionalData(entry.Key))
	return out, nil
}

func (s *sealedStore) open(key string, body []byte) ([]byte, error) {
	size := s.aead.NonceSize()
	if len(body) < size {
		return nil, ErrSealedBody
	}
	plain, err := s.aead.Open(nil, body[:size], body[size:], s.additionalData(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealedBody, err)
	}
	return plain, nil
}

func (s *sealedStore) additionalData(key string) []byte {
	return []byte(s.next.Name() + "\x00" + key)
}
