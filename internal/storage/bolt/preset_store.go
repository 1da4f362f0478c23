package bolt

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goodtune/kfocus/internal/storage"
	"go.etcd.io/bbolt"
)

type presetStore struct {
	store *Store
}

func (s *presetStore) Get(ctx context.Context, id string) (*storage.BlockListPreset, error) {
	return getBucketValue[storage.BlockListPreset](ctx, s.store, bucketPresets, id)
}

func (s *presetStore) List(ctx context.Context) ([]storage.BlockListPreset, error) {
	presets, err := listBucket[storage.BlockListPreset](ctx, s.store, bucketPresets)
	if err != nil {
		return nil, err
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets, nil
}

func (s *presetStore) Upsert(ctx context.Context, preset storage.BlockListPreset) error {
	return putBucketValue(ctx, s.store, bucketPresets, preset.ID, preset)
}

func (s *presetStore) Delete(ctx context.Context, id string) error {
	return deleteBucketValue(ctx, s.store, bucketPresets, id)
}

func (s *presetStore) RecordUsage(ctx context.Context, id string, at time.Time) error {
	return s.store.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketPresets))
		if b == nil {
			return fmt.Errorf("presets bucket missing")
		}
		existing := b.Get([]byte(id))
		if existing == nil {
			return storage.ErrNotFound
		}
		var preset storage.BlockListPreset
		if err := unmarshal(existing, &preset); err != nil {
			return err
		}
		used := at
		preset.UsageCount++
		preset.LastUsedAt = &used
		data, err := marshal(preset)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}
