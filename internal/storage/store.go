package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// ErrAlreadyTerminal is returned when a completed or canceled session is finalized again.
var ErrAlreadyTerminal = errors.New("session already terminal")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Sessions() SessionStore
	Presets() PresetStore
	Schedules() ScheduleStore
	Shared() SharedStore
}

// SessionStore manages focus session history.
type SessionStore interface {
	Create(ctx context.Context, record SessionRecord) error
	Get(ctx context.Context, id string) (*SessionRecord, error)
	// Finalize persists a terminal record. It returns ErrAlreadyTerminal when the
	// stored row is no longer pending, whichever process finalized it.
	Finalize(ctx context.Context, record SessionRecord) error
	List(ctx context.Context, filter SessionFilter) ([]SessionRecord, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// PresetStore manages block-list presets.
type PresetStore interface {
	Get(ctx context.Context, id string) (*BlockListPreset, error)
	List(ctx context.Context) ([]BlockListPreset, error)
	Upsert(ctx context.Context, preset BlockListPreset) error
	Delete(ctx context.Context, id string) error
	RecordUsage(ctx context.Context, id string, at time.Time) error
}

// ScheduleStore manages schedule definitions.
type ScheduleStore interface {
	Get(ctx context.Context, id string) (*ScheduledSession, error)
	List(ctx context.Context) ([]ScheduledSession, error)
	ListEnabled(ctx context.Context) ([]ScheduledSession, error)
	Upsert(ctx context.Context, schedule ScheduledSession) error
	Delete(ctx context.Context, id string) error
}

// SharedStore is the raw key/value space shared between processes.
// Values are opaque bytes; Put replaces, Delete of a missing key is not an error.
type SharedStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
