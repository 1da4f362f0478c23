package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/goodtune/kfocus/internal/storage"
	"github.com/redis/go-redis/v9"
)

// scheduleStore keeps each definition as a JSON document; nothing updates
// individual schedule fields atomically.
type scheduleStore struct {
	client *redis.Client
	keys   keyspace
}

// Get retrieves a schedule by ID
func (s *scheduleStore) Get(ctx context.Context, id string) (*storage.ScheduledSession, error) {
	data, err := s.client.Get(ctx, s.keys.schedule(id)).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var schedule storage.ScheduledSession
	if err := json.Unmarshal(data, &schedule); err != nil {
		return nil, fmt.Errorf("unmarshal schedule %s: %w", id, err)
	}
	return &schedule, nil
}

// List returns all schedules ordered by creation time
func (s *scheduleStore) List(ctx context.Context) ([]storage.ScheduledSession, error) {
	ids, err := s.client.SMembers(ctx, s.keys.schedules()).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []storage.ScheduledSession{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keys.schedule(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	schedules := make([]storage.ScheduledSession, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var schedule storage.ScheduledSession
		if err := json.Unmarshal([]byte(raw), &schedule); err != nil {
			continue
		}
		schedules = append(schedules, schedule)
	}

	sort.Slice(schedules, func(i, j int) bool { return schedules[i].CreatedAt.Before(schedules[j].CreatedAt) })
	return schedules, nil
}

// ListEnabled returns the schedules the scheduler should consider
func (s *scheduleStore) ListEnabled(ctx context.Context) ([]storage.ScheduledSession, error) {
	schedules, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	enabled := make([]storage.ScheduledSession, 0, len(schedules))
	for _, schedule := range schedules {
		if schedule.IsEnabled {
			enabled = append(enabled, schedule)
		}
	}
	return enabled, nil
}

// Upsert creates or replaces a schedule
func (s *scheduleStore) Upsert(ctx context.Context, schedule storage.ScheduledSession) error {
	data, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("marshal schedule %s: %w", schedule.ID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.schedule(schedule.ID), data, 0)
		pipe.SAdd(ctx, s.keys.schedules(), schedule.ID)
		return nil
	})
	return err
}

// Delete removes a schedule by ID
func (s *scheduleStore) Delete(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, s.keys.schedule(id)).Result()
	if err != nil {
		return err
	}
	if err := s.client.SRem(ctx, s.keys.schedules(), id).Err(); err != nil {
		return err
	}
	if removed == 0 {
		return storage.ErrNotFound
	}
	return nil
}
