package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
)

// Store is the pluggable backend holding cached provider responses. Entries
// past their TTL are never returned. Implementations must support concurrent
// get/put without corrupting TTL bookkeeping.
type Store interface {
	Get(ctx context.Context, key string) (interface{}, bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LocalStore is the in-memory default backend
type LocalStore struct {
	cache *gocache.Cache
}

// NewLocalStore creates an in-memory store. cleanupInterval controls how
// often expired entries are purged in the background.
func NewLocalStore(defaultTTL, cleanupInterval time.Duration) *LocalStore {
	return &LocalStore{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a fresh value from the store
func (l *LocalStore) Get(ctx context.Context, key string) (interface{}, bool, error) {
	value, found := l.cache.Get(key)
	return value, found, nil
}

// Set stores a value with the given TTL
func (l *LocalStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	l.cache.Set(key, value, ttl)
	return nil
}

// Delete removes a value from the store
func (l *LocalStore) Delete(ctx context.Context, key string) error {
	l.cache.Delete(key)
	return nil
}

// RedisStore is a Redis-backed backend for multi-instance deployments.
// Values are stored as JSON; TTL bookkeeping is delegated to Redis.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a Redis-backed store
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get retrieves a fresh value from Redis
func (r *RedisStore) Get(ctx context.Context, key string) (interface{}, bool, error) {
	data, err := r.client.Get(ctx, r.keyPrefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var value interface{}
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores a value in Redis with the given TTL
func (r *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.keyPrefix+key, data, ttl).Err()
}

// Delete removes a value from Redis
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.keyPrefix+key).Err()
}

var (
	_ Store = (*LocalStore)(nil)
	_ Store = (*RedisStore)(nil)
)
