package auth

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/zestcart/zestcart/config"
)

// RevocationStore tracks revoked token ids until they would have
// expired anyway.
type RevocationStore interface {
	// Revoke blacklists a token id for ttl.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked reports whether a token id is blacklisted.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revokedKeyPrefix = "zestcart:revoked:"

// RedisRevocationStore keeps revoked ids in redis with a per-key TTL so
// entries vanish when the token would expire.
type RedisRevocationStore struct {
	rdb *redis.Client
}

func NewRedisRevocationStore(cfg config.RedisConfig) (*RedisRevocationStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Passwd,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "connect redis")
	}
	return &RedisRevocationStore{rdb: rdb}, nil
}

func (r *RedisRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return r.rdb.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err()
}

func (r *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisRevocationStore) Close() error {
	return r.rdb.Close()
}

// MemoryRevocationStore holds revoked ids in process memory, used in
// tests and in single node setups without redis.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{entries: make(map[string]time.Time)}
}

func (m *MemoryRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[jti] = time.Now().Add(ttl)
	return nil
}

func (m *MemoryRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expire, ok := m.entries[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expire) {
		delete(m.entries, jti)
		return false, nil
	}
	return true, nil
}
