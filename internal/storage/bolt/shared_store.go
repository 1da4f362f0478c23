package bolt

import (
	"context"
	"fmt"

	"github.com/goodtune/kfocus/internal/storage"
	"go.etcd.io/bbolt"
)

type sharedStore struct {
	store *Store
}

func (s *sharedStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.store.view(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketShared))
		if b == nil {
			return storage.ErrNotFound
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return storage.ErrNotFound
		}
		// bbolt memory is only valid inside the transaction.
		value = append([]byte(nil), raw...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *sharedStore) Put(ctx context.Context, key string, value []byte) error {
	return s.store.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketShared))
		if b == nil {
			return fmt.Errorf("shared bucket missing")
		}
		return b.Put([]byte(key), value)
	})
}

func (s *sharedStore) Delete(ctx context.Context, key string) error {
	return s.store.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketShared))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}
