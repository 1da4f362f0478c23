package bolt

import (
	"context"
	"sort"

	"github.com/goodtune/kfocus/internal/storage"
)

type scheduleStore struct {
	store *Store
}

func (s *scheduleStore) Get(ctx context.Context, id string) (*storage.ScheduledSession, error) {
	return getBucketValue[storage.ScheduledSession](ctx, s.store, bucketSchedules, id)
}

func (s *scheduleStore) List(ctx context.Context) ([]storage.ScheduledSession, error) {
	schedules, err := listBucket[storage.ScheduledSession](ctx, s.store, bucketSchedules)
	if err != nil {
		return nil, err
	}
	sort.Slice(schedules, func(i, j int) bool { return schedules[i].CreatedAt.Before(schedules[j].CreatedAt) })
	return schedules, nil
}

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

func (s *scheduleStore) Upsert(ctx context.Context, schedule storage.ScheduledSession) error {
	return putBucketValue(ctx, s.store, bucketSchedules, schedule.ID, schedule)
}

func (s *scheduleStore) Delete(ctx context.Context, id string) error {
	return deleteBucketValue(ctx, s.store, bucketSchedules, id)
}
