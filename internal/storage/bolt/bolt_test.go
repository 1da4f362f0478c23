package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/goodtune/kfocus/internal/storage"
)

func TestSessionStoreFinalizeGuard(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	started := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	record := storage.SessionRecord{
		ID:                "session-a",
		Title:             "Write report",
		ScheduledDuration: 1500,
		StartedAt:         started,
		Outcome:           storage.OutcomePending,
		BlockSelection:    []byte{0x01, 0x02, 0xff},
	}
	if err := store.Sessions().Create(ctx, record); err != nil {
		t.Fatalf("create session: %v", err)
	}

	completed := record
	if err := completed.Complete(started.Add(25*time.Minute), 25); err != nil {
		t.Fatalf("complete record: %v", err)
	}
	if err := store.Sessions().Finalize(ctx, completed); err != nil {
		t.Fatalf("finalize session: %v", err)
	}

	canceled := record
	if err := canceled.Cancel(started.Add(10 * time.Minute)); err != nil {
		t.Fatalf("cancel record: %v", err)
	}
	if err := store.Sessions().Finalize(ctx, canceled); !errors.Is(err, storage.ErrAlreadyTerminal) {
		t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
	}

	stored, err := store.Sessions().Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if stored.Outcome != storage.OutcomeCompleted {
		t.Fatalf("expected completed outcome, got %s", stored.Outcome)
	}
	if stored.PointsEarned != 25 {
		t.Fatalf("expected 25 points, got %d", stored.PointsEarned)
	}
	if string(stored.BlockSelection) != string(record.BlockSelection) {
		t.Fatalf("block selection not preserved: %v", stored.BlockSelection)
	}
}

func TestSessionStoreFinalizeMissing(t *testing.T) {
	store := openTestStore(t)

	record := storage.SessionRecord{ID: "missing", StartedAt: time.Now()}
	if err := record.Cancel(time.Now()); err != nil {
		t.Fatalf("cancel record: %v", err)
	}
	if err := store.Sessions().Finalize(context.Background(), record); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionStoreListAndPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, outcome := range []storage.Outcome{storage.OutcomeCompleted, storage.OutcomeCanceled, storage.OutcomePending} {
		record := storage.SessionRecord{
			ID:                string(rune('a' + i)),
			ScheduledDuration: 600,
			StartedAt:         base.Add(time.Duration(i) * 24 * time.Hour),
			Outcome:           storage.OutcomePending,
		}
		if err := store.Sessions().Create(ctx, record); err != nil {
			t.Fatalf("create session: %v", err)
		}
		switch outcome {
		case storage.OutcomeCompleted:
			_ = record.Complete(record.StartedAt.Add(10*time.Minute), 10)
		case storage.OutcomeCanceled:
			_ = record.Cancel(record.StartedAt.Add(time.Minute))
		default:
			continue
		}
		if err := store.Sessions().Finalize(ctx, record); err != nil {
			t.Fatalf("finalize session: %v", err)
		}
	}

	all, err := store.Sessions().List(ctx, storage.SessionFilter{})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(all))
	}
	if all[0].ID != "c" {
		t.Fatalf("expected newest first, got %s", all[0].ID)
	}

	completed, err := store.Sessions().List(ctx, storage.SessionFilter{Outcome: storage.OutcomeCompleted})
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != "a" {
		t.Fatalf("unexpected completed sessions: %+v", completed)
	}

	since := base.Add(12 * time.Hour)
	recent, err := store.Sessions().List(ctx, storage.SessionFilter{Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent sessions, got %d", len(recent))
	}

	deleted, err := store.Sessions().DeleteBefore(ctx, base.Add(10*24*time.Hour))
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted sessions (pending kept), got %d", deleted)
	}
}

func TestPresetStoreRecordUsage(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	preset := storage.BlockListPreset{ID: "social", Name: "Social", Targets: []string{"twitter.com"}}
	if err := store.Presets().Upsert(ctx, preset); err != nil {
		t.Fatalf("upsert preset: %v", err)
	}

	used := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		if err := store.Presets().RecordUsage(ctx, "social", used); err != nil {
			t.Fatalf("record usage: %v", err)
		}
	}

	got, err := store.Presets().Get(ctx, "social")
	if err != nil {
		t.Fatalf("get preset: %v", err)
	}
	if got.UsageCount != 2 {
		t.Fatalf("expected usage count 2, got %d", got.UsageCount)
	}
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(used) {
		t.Fatalf("unexpected last used: %v", got.LastUsedAt)
	}

	if err := store.Presets().RecordUsage(ctx, "missing", used); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScheduleStoreListEnabled(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	schedules := []storage.ScheduledSession{
		{ID: "morning", IsRecurring: true, RecurringDays: []int{1, 2, 3}, StartHour: 9, Duration: 1800, IsEnabled: true},
		{ID: "evening", IsRecurring: true, RecurringDays: []int{5}, StartHour: 20, Duration: 1800, IsEnabled: false},
	}
	for _, schedule := range schedules {
		if err := store.Schedules().Upsert(ctx, schedule); err != nil {
			t.Fatalf("upsert schedule: %v", err)
		}
	}

	enabled, err := store.Schedules().ListEnabled(ctx)
	if err != nil {
		t.Fatalf("list enabled: %v", err)
	}
	if len(enabled) != 1 || enabled[0].ID != "morning" {
		t.Fatalf("unexpected enabled schedules: %+v", enabled)
	}

	if err := store.Schedules().Delete(ctx, "evening"); err != nil {
		t.Fatalf("delete schedule: %v", err)
	}
	if err := store.Schedules().Delete(ctx, "evening"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSharedStoreAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kfocus.bolt")
	writer, err := Open(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	reader, err := Open(path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}

	ctx := context.Background()
	if err := writer.Shared().Put(ctx, "key", []byte("value")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := reader.Shared().Get(ctx, "key")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "value" {
		t.Fatalf("expected value, got %q", got)
	}

	if err := writer.Shared().Delete(ctx, "key"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := writer.Shared().Delete(ctx, "key"); err != nil {
		t.Fatalf("delete absent key: %v", err)
	}
	if _, err := reader.Shared().Get(ctx, "key"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "kfocus.bolt")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}
