package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/goodtune/kfocus/internal/config"
	"github.com/goodtune/kfocus/internal/storage"
	"github.com/goodtune/kfocus/internal/storage/bolt"
)

func TestParseAge(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"90d", 90 * 24 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"36h", 36 * time.Hour, false},
		{"0d", 0, true},
		{"-5h", 0, true},
		{"xd", 0, true},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAge(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseAge(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAge(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseAge(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFindPreset(t *testing.T) {
	store, err := bolt.Open(filepath.Join(t.TempDir(), "cli.bolt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	p := storage.BlockListPreset{ID: "p-1", Name: "Social", Targets: []string{"social"}}
	if err := store.Presets().Upsert(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	for _, ref := range []string{"p-1", "social", "SOCIAL"} {
		got, err := findPreset(ctx, store.Presets(), ref)
		if err != nil {
			t.Fatalf("findPreset(%q) error: %v", ref, err)
		}
		if got.ID != "p-1" {
			t.Errorf("findPreset(%q) = %s, want p-1", ref, got.ID)
		}
	}

	if _, err := findPreset(ctx, store.Presets(), "games"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("findPreset(games) error = %v, want ErrNotFound", err)
	}
}

func TestUnknownKeys(t *testing.T) {
	got := unknownKeys(
		[]string{"session.poll_interval", "sesion.default_duration", "goals.weekly_tasks", "dns.port"},
		config.ValidKeys(),
	)
	want := []string{"dns.port", "sesion.default_duration"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unknownKeys() = %v, want %v", got, want)
	}
}

func TestFindUnknownKeysMissingFile(t *testing.T) {
	_, err := findUnknownKeys(filepath.Join(t.TempDir(), "absent.yaml"))
	if !os.IsNotExist(err) {
		t.Errorf("findUnknownKeys() error = %v, want not-exist", err)
	}
}

func TestDescribeSchedule(t *testing.T) {
	until := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	def := storage.ScheduledSession{
		IsRecurring:   true,
		StartHour:     8,
		StartMinute:   5,
		RecurringDays: []int{1, 3, 5},
		EndDate:       &until,
	}
	if got, want := describeSchedule(def), "Mon,Wed,Fri at 08:05 until 2025-06-30"; got != want {
		t.Errorf("describeSchedule() = %q, want %q", got, want)
	}
}

func TestParseLocalTime(t *testing.T) {
	got, err := parseLocalTime("2025-03-14T14:00:00Z")
	if err != nil {
		t.Fatalf("parseLocalTime RFC3339: %v", err)
	}
	if !got.Equal(time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC)) {
		t.Errorf("parseLocalTime RFC3339 = %v", got)
	}

	local, err := parseLocalTime("2025-03-14 14:00")
	if err != nil {
		t.Fatalf("parseLocalTime local: %v", err)
	}
	if local.Location() != time.Local || local.Hour() != 14 {
		t.Errorf("parseLocalTime local = %v", local)
	}

	if _, err := parseLocalTime("tomorrow"); err == nil {
		t.Error("parseLocalTime(tomorrow) want error")
	}
}

func TestModifiedKeys(t *testing.T) {
	def := config.Default()
	if got := modifiedKeys(configSections(def, config.Default())); len(got) != 0 {
		t.Fatalf("defaults should report no modified keys, got %v", got)
	}

	cfg := config.Default()
	cfg.Goals.WeeklyTasks = 25
	cfg.Storage.Redis.Password = "hunter2"
	got := modifiedKeys(configSections(cfg, def))
	want := []string{"storage.redis.password", "goals.weekly_tasks"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("modifiedKeys() = %v, want %v", got, want)
	}
}
