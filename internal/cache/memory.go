package cache

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrNotFound = errors.New("key not found")

// MemoryProvider keeps idempotency records in an in-process LRU. Good
// enough for a single instance; multi-instance deployments should use
// the redis provider so webhook dedup survives restarts.
type MemoryProvider struct {
	records *lru.Cache[string, record]
}

type record struct {
	value     string
	expiresAt time.Time
}

func (r record) expired(now time.Time) bool {
	return now.After(r.expiresAt)
}

const memoryCacheCapacity = 10_000

func NewMemoryProvider() (*MemoryProvider, error) {
	records, err := lru.New[string, record](memoryCacheCapacity)
	if err != nil {
		return nil, err
	}
	return &MemoryProvider{records: records}, nil
}

func (m *MemoryProvider) Get(ctx context.Context, key string) (string, error) {
	_ = ctx
	stored, ok := m.records.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	if stored.expired(time.Now()) {
		m.records.Remove(key)
		return "", ErrNotFound
	}
	return stored.value, nil
}

func (m *MemoryProvider) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	_ = ctx
	m.records.Add(key, record{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

func (m *MemoryProvider) Delete(ctx context.Context, key string) error {
	_ = ctx
	m.records.Remove(key)
	return nil
}

func (m *MemoryProvider) Close() error {
	return nil
}
