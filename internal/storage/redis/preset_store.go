package redis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goodtune/kfocus/internal/storage"
	"github.com/redis/go-redis/v9"
)

type presetStore struct {
	client *redis.Client
	keys   keyspace
}

// Get retrieves a preset by ID
func (s *presetStore) Get(ctx context.Context, id string) (*storage.BlockListPreset, error) {
	data, err := s.client.HGetAll(ctx, s.keys.preset(id)).Result()
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	return parseBlockListPreset(data)
}

// List returns all presets ordered by name
func (s *presetStore) List(ctx context.Context) ([]storage.BlockListPreset, error) {
	ids, err := s.client.SMembers(ctx, s.keys.presets()).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []storage.BlockListPreset{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.keys.preset(id))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	presets := make([]storage.BlockListPreset, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}

		preset, err := parseBlockListPreset(data)
		if err == nil {
			presets = append(presets, *preset)
		}
	}

	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets, nil
}

// Upsert creates or replaces a preset
func (s *presetStore) Upsert(ctx context.Context, preset storage.BlockListPreset) error {
	fields, err := presetFields(preset)
	if err != nil {
		return err
	}

	key := s.keys.preset(preset.ID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields...)
		pipe.SAdd(ctx, s.keys.presets(), preset.ID)
		return nil
	})
	return err
}

// Delete removes a preset by ID
func (s *presetStore) Delete(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, s.keys.preset(id)).Result()
	if err != nil {
		return err
	}
	if err := s.client.SRem(ctx, s.keys.presets(), id).Err(); err != nil {
		return err
	}
	if removed == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// RecordUsage increments the usage counter of a preset
func (s *presetStore) RecordUsage(ctx context.Context, id string, at time.Time) error {
	script := redis.NewScript(recordPresetUsageScript)

	result, err := script.Run(ctx, s.client, []string{s.keys.preset(id)}, formatTime(at)).Text()
	if err != nil {
		return fmt.Errorf("record preset usage %s: %w", id, err)
	}
	if result == "NOT_FOUND" {
		return storage.ErrNotFound
	}
	return nil
}
