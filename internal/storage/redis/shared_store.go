package redis

import (
	"context"

	"github.com/goodtune/kfocus/internal/storage"
	"github.com/redis/go-redis/v9"
)

type sharedStore struct {
	client *redis.Client
	keys   keyspace
}

// Get returns the raw value stored under key
func (s *sharedStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.keys.shared(key)).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put replaces the value stored under key
func (s *sharedStore) Put(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.keys.shared(key), value, 0).Err()
}

// Delete removes key; a missing key is not an error
func (s *sharedStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.keys.shared(key)).Err()
}
