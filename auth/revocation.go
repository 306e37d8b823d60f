// Package auth, as part of the authentication module.
// This file, `revocation.go`, keeps the optional set of session tokens that
// were revoked at logout before their natural expiry.
package auth

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

// RevocationSet records token ids that must be rejected until they would
// have expired anyway.
type RevocationSet interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type memRevocations struct {
	cache *bigcache.BigCache
	now   func() time.Time
}

// InMemoryRevocations returns a process-local RevocationSet. Entries are
// evicted after lifetime, which should be the session TTL.
func InMemoryRevocations(lifetime time.Duration) (RevocationSet, error) {
	cfg := bigcache.DefaultConfig(lifetime)
	cfg.CleanWindow = 5 * time.Minute
	cfg.Verbose = false
	cache, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("create revocation cache: %w", err)
	}
	return &memRevocations{cache: cache, now: time.Now}, nil
}

func (m *memRevocations) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(until.Unix()))
	return m.cache.Set(tokenID, buf)
}

func (m *memRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	buf, err := m.cache.Get(tokenID)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(buf) != 8 {
		return false, nil
	}
	until := time.Unix(int64(binary.BigEndian.Uint64(buf)), 0)
	return m.now().Before(until), nil
}
