package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/kfocus/internal/config"
	"github.com/goodtune/kfocus/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Store implements the storage.Store interface using Redis
type Store struct {
	client        *redis.Client
	sessionStore  *sessionStore
	presetStore   *presetStore
	scheduleStore *scheduleStore
	sharedStore   *sharedStore
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Host may already carry the port
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newStore(client, cfg.KeyPrefix), nil
}

func newStore(client *redis.Client, prefix string) *Store {
	keys := keyspace{prefix: prefix}
	if keys.prefix == "" {
		keys.prefix = "kfocus"
	}
	return &Store{
		client:        client,
		sessionStore:  &sessionStore{client: client, keys: keys},
		presetStore:   &presetStore{client: client, keys: keys},
		scheduleStore: &scheduleStore{client: client, keys: keys},
		sharedStore:   &sharedStore{client: client, keys: keys},
	}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Sessions returns the SessionStore implementation
func (s *Store) Sessions() storage.SessionStore {
	return s.sessionStore
}

// Presets returns the PresetStore implementation
func (s *Store) Presets() storage.PresetStore {
	return s.presetStore
}

// Schedules returns the ScheduleStore implementation
func (s *Store) Schedules() storage.ScheduleStore {
	return s.scheduleStore
}

// Shared returns the SharedStore implementation
func (s *Store) Shared() storage.SharedStore {
	return s.sharedStore
}

// keyspace builds every key the backend touches from one prefix.
type keyspace struct {
	prefix string
}

func (k keyspace) session(id string) string { return k.prefix + ":session:" + id }
func (k keyspace) sessionPrefix() string { return k.prefix + ":session:" }
func (k keyspace) sessionsByStart() string { return k.prefix + ":sessions:started" }
func (k keyspace) preset(id string) string { return k.prefix + ":preset:" + id }
func (k keyspace) presets() string { return k.prefix + ":presets" }
func (k keyspace) schedule(id string) string { return k.prefix + ":schedule:" + id }
func (k keyspace) schedules() string { return k.prefix + ":schedules" }
func (k keyspace) shared(key string) string { return k.prefix + ":shared:" + key }
