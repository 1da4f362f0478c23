package bolt

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/kfocus/internal/storage"
	"go.etcd.io/bbolt"
)

type sessionStore struct {
	store *Store
}

func (s *sessionStore) Create(ctx context.Context, record storage.SessionRecord) error {
	data, err := marshal(record)
	if err != nil {
		return err
	}
	return s.store.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return fmt.Errorf("sessions bucket missing")
		}
		if b.Get([]byte(record.ID)) != nil {
			return fmt.Errorf("session %s already exists", record.ID)
		}
		return b.Put([]byte(record.ID), data)
	})
}

func (s *sessionStore) Get(ctx context.Context, id string) (*storage.SessionRecord, error) {
	return getBucketValue[storage.SessionRecord](ctx, s.store, bucketSessions, id)
}

func (s *sessionStore) Finalize(ctx context.Context, record storage.SessionRecord) error {
	data, err := marshal(record)
	if err != nil {
		return err
	}
	return s.store.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return fmt.Errorf("sessions bucket missing")
		}
		existing := b.Get([]byte(record.ID))
		if existing == nil {
			return storage.ErrNotFound
		}
		var stored storage.SessionRecord
		if err := unmarshal(existing, &stored); err != nil {
			return err
		}
		if err := storage.ValidateFinalize(stored, record); err != nil {
			return err
		}
		return b.Put([]byte(record.ID), data)
	})
}

func (s *sessionStore) List(ctx context.Context, filter storage.SessionFilter) ([]storage.SessionRecord, error) {
	records, err := listBucket[storage.SessionRecord](ctx, s.store, bucketSessions)
	if err != nil {
		return nil, err
	}
	matched := records[:0]
	for _, record := range records {
		if filter.Matches(record) {
			matched = append(matched, record)
		}
	}
	return storage.SortSessions(matched, filter.Limit), nil
}

func (s *sessionStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	deleted := 0
	err := s.store.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return nil
		}
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var record storage.SessionRecord
			if err := unmarshal(v, &record); err != nil {
				return err
			}
			if record.IsTerminal() && record.StartedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		// Deleting through a live cursor skips siblings, so delete after the scan.
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
