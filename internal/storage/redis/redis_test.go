package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goodtune/kfocus/internal/config"
	"github.com/goodtune/kfocus/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port", so Port stays zero
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
		KeyPrefix:    "kfocus",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}

	return store, mr
}

func pendingRecord(id string, started time.Time) storage.SessionRecord {
	return storage.SessionRecord{
		ID:                id,
		Title:             "Deep work",
		ScheduledDuration: 1500,
		StartedAt:         started,
		Outcome:           storage.OutcomePending,
		TaskID:            "task-1",
		TaskTitle:         "Write tests",
		BlockSelection:    []byte{0x00, 0x10, 0xfe},
	}
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	started := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	record := pendingRecord("session-1", started)
	record.IsDeepFocus = true

	if err := store.Sessions().Create(ctx, record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Sessions().Create(ctx, record); err == nil {
		t.Fatal("Expected duplicate create to fail")
	}

	retrieved, err := store.Sessions().Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if retrieved.ID != record.ID {
		t.Errorf("Expected ID %s, got %s", record.ID, retrieved.ID)
	}
	if !retrieved.StartedAt.Equal(started) {
		t.Errorf("Expected StartedAt %v, got %v", started, retrieved.StartedAt)
	}
	if retrieved.Outcome != storage.OutcomePending {
		t.Errorf("Expected pending outcome, got %s", retrieved.Outcome)
	}
	if retrieved.EndedAt != nil || retrieved.ActualDuration != nil {
		t.Error("Expected pending record to have no end fields")
	}
	if !retrieved.IsDeepFocus {
		t.Error("Expected IsDeepFocus to be true")
	}
	if string(retrieved.BlockSelection) != string(record.BlockSelection) {
		t.Errorf("Expected block selection %v, got %v", record.BlockSelection, retrieved.BlockSelection)
	}

	if _, err := store.Sessions().Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSessionStore_FinalizeOnce(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	started := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	record := pendingRecord("session-1", started)
	if err := store.Sessions().Create(ctx, record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	canceled := record
	if err := canceled.Cancel(started.Add(5 * time.Minute)); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if err := store.Sessions().Finalize(ctx, canceled); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	// A second process racing to complete the same session must lose
	completed := record
	if err := completed.Complete(started.Add(25*time.Minute), 25); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if err := store.Sessions().Finalize(ctx, completed); !errors.Is(err, storage.ErrAlreadyTerminal) {
		t.Fatalf("Expected ErrAlreadyTerminal, got %v", err)
	}

	retrieved, err := store.Sessions().Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if retrieved.Outcome != storage.OutcomeCanceled {
		t.Errorf("Expected canceled outcome, got %s", retrieved.Outcome)
	}
	if retrieved.ActualDuration == nil || *retrieved.ActualDuration != 300 {
		t.Errorf("Expected actual duration 300, got %v", retrieved.ActualDuration)
	}
	if retrieved.PointsEarned != 0 {
		t.Errorf("Expected 0 points, got %d", retrieved.PointsEarned)
	}

	if err := store.Sessions().Finalize(ctx, record); err == nil {
		t.Error("Expected finalize of a pending record to fail")
	}
}

func TestSessionStore_ListAndDeleteBefore(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	base := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		record := pendingRecord(id, base.Add(time.Duration(i)*24*time.Hour))
		if err := store.Sessions().Create(ctx, record); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if id == "c" {
			continue
		}
		_ = record.Complete(record.StartedAt.Add(25*time.Minute), 25)
		if err := store.Sessions().Finalize(ctx, record); err != nil {
			t.Fatalf("Finalize failed: %v", err)
		}
	}

	since := base.Add(time.Hour)
	until := base.Add(48 * time.Hour)
	window, err := store.Sessions().List(ctx, storage.SessionFilter{Since: &since, Until: &until})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(window) != 1 || window[0].ID != "b" {
		t.Fatalf("Expected only session b in window, got %+v", window)
	}

	pending, err := store.Sessions().List(ctx, storage.SessionFilter{Outcome: storage.OutcomePending})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "c" {
		t.Fatalf("Expected only session c pending, got %+v", pending)
	}

	deleted, err := store.Sessions().DeleteBefore(ctx, base.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted sessions, got %d", deleted)
	}

	remaining, err := store.Sessions().List(ctx, storage.SessionFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("Expected 1 remaining session, got %d", len(remaining))
	}
}

func TestPresetStore_UpsertAndUsage(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	now := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	preset := storage.BlockListPreset{
		ID:        "social",
		Name:      "Social",
		Targets:   []string{"twitter.com", "instagram.com"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.Presets().Upsert(ctx, preset); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Presets().Upsert(ctx, storage.BlockListPreset{ID: "games", Name: "Games", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := store.Presets().RecordUsage(ctx, "social", now.Add(time.Hour)); err != nil {
		t.Fatalf("RecordUsage failed: %v", err)
	}

	retrieved, err := store.Presets().Get(ctx, "social")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if retrieved.UsageCount != 1 {
		t.Errorf("Expected usage count 1, got %d", retrieved.UsageCount)
	}
	if len(retrieved.Targets) != 2 {
		t.Errorf("Expected 2 targets, got %v", retrieved.Targets)
	}

	presets, err := store.Presets().List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(presets) != 2 || presets[0].Name != "Games" {
		t.Errorf("Expected presets ordered by name, got %+v", presets)
	}

	if err := store.Presets().Delete(ctx, "games"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Presets().Delete(ctx, "games"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.Presets().RecordUsage(ctx, "games", now); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestScheduleStore_ListEnabled(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	now := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	schedules := []storage.ScheduledSession{
		{ID: "first", IsRecurring: true, RecurringDays: []int{1}, StartHour: 9, Duration: 1800, IsEnabled: true, CreatedAt: now},
		{ID: "second", StartTime: now.Add(time.Hour), Duration: 1800, IsEnabled: false, CreatedAt: now.Add(time.Minute)},
	}
	for _, schedule := range schedules {
		if err := store.Schedules().Upsert(ctx, schedule); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	all, err := store.Schedules().List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "first" {
		t.Fatalf("Expected schedules in creation order, got %+v", all)
	}

	enabled, err := store.Schedules().ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled failed: %v", err)
	}
	if len(enabled) != 1 || enabled[0].ID != "first" {
		t.Fatalf("Expected only first enabled, got %+v", enabled)
	}

	if _, err := store.Schedules().Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSharedStore_PrefixIsolation(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.Shared().Put(ctx, "active-session-snapshot", []byte(`{"id":"x"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	raw, err := mr.Get("kfocus:shared:active-session-snapshot")
	if err != nil {
		t.Fatalf("Expected prefixed key in redis: %v", err)
	}
	if raw != `{"id":"x"}` {
		t.Errorf("Unexpected raw value %q", raw)
	}

	if err := store.Shared().Delete(ctx, "active-session-snapshot"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Shared().Delete(ctx, "active-session-snapshot"); err != nil {
		t.Fatalf("Delete of absent key failed: %v", err)
	}
	if _, err := store.Shared().Get(ctx, "active-session-snapshot"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
