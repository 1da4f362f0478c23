// Package bridge shares the active session between the main process and
// enforcement processes through a raw key/value store.
//
// There are no locks. Each key has a single writer by convention: the main
// process owns the snapshot, the display hints and the session-ended flag;
// enforcement processes own the end-requested flag. Whoever consumes a flag
// clears it. Absent, undecodable and wrong-version values all read as absent.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goodtune/kfocus/internal/clock"
	"github.com/goodtune/kfocus/internal/metrics"
	"github.com/goodtune/kfocus/internal/storage"
	"github.com/rs/zerolog"
)

// Well-known keys in the shared store.
const (
	KeySnapshot     = "active-session-snapshot"
	KeyDisplayHints = "shield-display-config"
)

// Flag is an edge-triggered signal between processes.
type Flag string

const (
	// FlagSessionEnded is raised by the main process after finalizing a session.
	FlagSessionEnded Flag = "session-ended-flag"
	// FlagEndRequested is raised by an enforcement process to ask for cancellation.
	FlagEndRequested Flag = "end-session-requested-flag"
)

type flagPayload struct {
	RaisedAt time.Time `json:"raised_at"`
}

// Bridge reads and writes shared session state.
type Bridge struct {
	store  storage.SharedStore
	clock  clock.Clock
	logger zerolog.Logger
}

// New creates a bridge over store.
func New(store storage.SharedStore, clk clock.Clock, logger zerolog.Logger) *Bridge {
	return &Bridge{
		store:  store,
		clock:  clk,
		logger: logger.With().Str("component", "bridge").Logger(),
	}
}

// PublishSnapshot replaces the active-session snapshot.
func (b *Bridge) PublishSnapshot(ctx context.Context, snap Snapshot) error {
	snap.Version = SchemaVersion
	return b.put(ctx, KeySnapshot, snap)
}

// ReadSnapshot returns the published snapshot, or false when there is none.
func (b *Bridge) ReadSnapshot(ctx context.Context) (*Snapshot, bool) {
	var snap Snapshot
	if !b.get(ctx, KeySnapshot, &snap) {
		return nil, false
	}
	if !snap.valid() {
		b.decodeFailure(KeySnapshot, fmt.Errorf("unsupported snapshot version %d", snap.Version))
		return nil, false
	}
	return &snap, true
}

// ClearSnapshot removes the snapshot. Clearing an absent snapshot is not an error.
func (b *Bridge) ClearSnapshot(ctx context.Context) error {
	return b.delete(ctx, KeySnapshot)
}

// PublishDisplayHints replaces the display hints.
func (b *Bridge) PublishDisplayHints(ctx context.Context, hints DisplayHints) error {
	hints.Version = SchemaVersion
	return b.put(ctx, KeyDisplayHints, hints)
}

// ReadDisplayHints returns the published hints, or false when there are none.
func (b *Bridge) ReadDisplayHints(ctx context.Context) (*DisplayHints, bool) {
	var hints DisplayHints
	if !b.get(ctx, KeyDisplayHints, &hints) {
		return nil, false
	}
	if !hints.valid() {
		b.decodeFailure(KeyDisplayHints, fmt.Errorf("unsupported hints version %d", hints.Version))
		return nil, false
	}
	return &hints, true
}

// ClearDisplayHints removes the display hints.
func (b *Bridge) ClearDisplayHints(ctx context.Context) error {
	return b.delete(ctx, KeyDisplayHints)
}

// SetFlag raises flag, stamped with the bridge clock.
func (b *Bridge) SetFlag(ctx context.Context, flag Flag) error {
	return b.put(ctx, string(flag), flagPayload{RaisedAt: b.clock.Now()})
}

// FlagRaisedAt returns when flag was raised, or false when it is not set.
func (b *Bridge) FlagRaisedAt(ctx context.Context, flag Flag) (time.Time, bool) {
	var payload flagPayload
	if !b.get(ctx, string(flag), &payload) {
		return time.Time{}, false
	}
	return payload.RaisedAt, true
}

// IsFlagSet reports whether flag is raised.
func (b *Bridge) IsFlagSet(ctx context.Context, flag Flag) bool {
	_, ok := b.FlagRaisedAt(ctx, flag)
	return ok
}

// ClearFlag lowers flag.
func (b *Bridge) ClearFlag(ctx context.Context, flag Flag) error {
	return b.delete(ctx, string(flag))
}

// ConsumeFlag reads and clears flag, reporting whether it was raised.
// A raw value that cannot be decoded is still cleared.
func (b *Bridge) ConsumeFlag(ctx context.Context, flag Flag) bool {
	raised := b.IsFlagSet(ctx, flag)
	if err := b.delete(ctx, string(flag)); err != nil {
		b.logger.Warn().Err(err).Str("flag", string(flag)).Msg("Failed to clear consumed flag")
	}
	return raised
}

func (b *Bridge) put(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := b.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (b *Bridge) get(ctx context.Context, key string, out any) bool {
	data, err := b.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		b.logger.Warn().Err(err).Str("key", key).Msg("Failed to read shared state")
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		b.decodeFailure(key, err)
		return false
	}
	return true
}

func (b *Bridge) delete(ctx context.Context, key string) error {
	if err := b.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	return nil
}

func (b *Bridge) decodeFailure(key string, err error) {
	metrics.BridgeDecodeFailures.WithLabelValues(key).Inc()
	b.logger.Warn().Err(err).Str("key", key).Msg("Ignoring undecodable shared state")
}
