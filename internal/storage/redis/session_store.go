package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/kfocus/internal/storage"
	"github.com/redis/go-redis/v9"
)

type sessionStore struct {
	client *redis.Client
	keys   keyspace
}

// Create stores a new session record
func (s *sessionStore) Create(ctx context.Context, record storage.SessionRecord) error {
	script := redis.NewScript(createSessionScript)

	keys := []string{s.keys.session(record.ID), s.keys.sessionsByStart()}
	result, err := script.Run(ctx, s.client, keys, sessionArgs(record)...).Text()
	if err != nil {
		return fmt.Errorf("create session %s: %w", record.ID, err)
	}
	if result == "EXISTS" {
		return fmt.Errorf("session %s already exists", record.ID)
	}
	return nil
}

// Get retrieves a session by ID
func (s *sessionStore) Get(ctx context.Context, id string) (*storage.SessionRecord, error) {
	data, err := s.client.HGetAll(ctx, s.keys.session(id)).Result()
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	return parseSessionRecord(data)
}

// Finalize writes the terminal fields of a pending session
func (s *sessionStore) Finalize(ctx context.Context, record storage.SessionRecord) error {
	if !record.IsTerminal() {
		return fmt.Errorf("finalize session %s: outcome must be completed or canceled", record.ID)
	}

	script := redis.NewScript(finalizeSessionScript)

	keys := []string{s.keys.session(record.ID)}
	args := []interface{}{
		string(record.Outcome),
		formatOptionalTime(record.EndedAt),
		formatOptionalInt(record.ActualDuration),
		record.PointsEarned,
	}

	result, err := script.Run(ctx, s.client, keys, args...).Text()
	if err != nil {
		return fmt.Errorf("finalize session %s: %w", record.ID, err)
	}

	switch result {
	case "NOT_FOUND":
		return storage.ErrNotFound
	case "TERMINAL":
		return storage.ErrAlreadyTerminal
	}
	return nil
}

// List returns session history matching the filter, newest first
func (s *sessionStore) List(ctx context.Context, filter storage.SessionFilter) ([]storage.SessionRecord, error) {
	byScore := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if filter.Since != nil {
		byScore.Min = strconv.FormatInt(filter.Since.UnixMilli(), 10)
	}
	if filter.Until != nil {
		byScore.Max = "(" + strconv.FormatInt(filter.Until.UnixMilli(), 10)
	}

	ids, err := s.client.ZRangeByScore(ctx, s.keys.sessionsByStart(), byScore).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []storage.SessionRecord{}, nil
	}

	// Use pipeline for efficient batch retrieval
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.keys.session(id))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	records := make([]storage.SessionRecord, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}

		record, err := parseSessionRecord(data)
		if err != nil {
			continue
		}
		if filter.Matches(*record) {
			records = append(records, *record)
		}
	}

	return storage.SortSessions(records, filter.Limit), nil
}

// DeleteBefore removes terminal sessions that started before cutoff
func (s *sessionStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	script := redis.NewScript(deleteSessionsBeforeScript)

	keys := []string{s.keys.sessionsByStart()}
	deleted, err := script.Run(ctx, s.client, keys, cutoff.UnixMilli(), s.keys.sessionPrefix()).Int()
	if err != nil {
		return 0, fmt.Errorf("delete sessions before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return deleted, nil
}
