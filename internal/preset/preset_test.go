package preset

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/goodtune/kfocus/internal/metrics"
	"github.com/goodtune/kfocus/internal/storage"
	"github.com/goodtune/kfocus/internal/storage/bolt"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func newTestResolver(t *testing.T) (*Resolver, storage.PresetStore) {
	t.Helper()
	store, err := bolt.Open(filepath.Join(t.TempDir(), "presets.bolt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewResolver(store.Presets(), Config{CacheSize: 4, CacheTTL: time.Minute}, zerolog.Nop()), store.Presets()
}

func TestResolverCachesLookups(t *testing.T) {
	ctx := context.Background()
	resolver, presets := newTestResolver(t)

	p, err := New("Social", []string{"twitter.com", "reddit.com"}, false, time.Now())
	if err != nil {
		t.Fatalf("new preset: %v", err)
	}
	if err := presets.Upsert(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	misses := testutil.ToFloat64(metrics.PresetCacheMisses)
	hits := testutil.ToFloat64(metrics.PresetCacheHits)

	name, allow := resolver.DisplayName(ctx, p.ID)
	if name != "Social" || allow {
		t.Fatalf("unexpected display name %q allow=%v", name, allow)
	}
	if _, err := resolver.Resolve(ctx, p.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if got := testutil.ToFloat64(metrics.PresetCacheMisses) - misses; got != 1 {
		t.Fatalf("expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.PresetCacheHits) - hits; got != 1 {
		t.Fatalf("expected 1 hit, got %v", got)
	}

	p.Name = "Social media"
	if err := presets.Upsert(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if name, _ := resolver.DisplayName(ctx, p.ID); name != "Social" {
		t.Fatalf("expected cached name until invalidated, got %q", name)
	}
	resolver.Invalidate(p.ID)
	if name, _ := resolver.DisplayName(ctx, p.ID); name != "Social media" {
		t.Fatalf("expected refreshed name, got %q", name)
	}
}

func TestResolverUnknownPreset(t *testing.T) {
	ctx := context.Background()
	resolver, _ := newTestResolver(t)

	if name, _ := resolver.DisplayName(ctx, ""); name != "" {
		t.Fatalf("expected empty name for empty id, got %q", name)
	}
	if name, _ := resolver.DisplayName(ctx, "missing"); name != "" {
		t.Fatalf("expected empty name for unknown id, got %q", name)
	}
	if _, err := resolver.Resolve(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolverRecordUsage(t *testing.T) {
	ctx := context.Background()
	resolver, presets := newTestResolver(t)

	p, err := New("Work", []string{"slack"}, true, time.Now())
	if err != nil {
		t.Fatalf("new preset: %v", err)
	}
	if err := presets.Upsert(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := resolver.Resolve(ctx, p.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	used := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		if err := resolver.RecordUsage(ctx, p.ID, used); err != nil {
			t.Fatalf("record usage: %v", err)
		}
	}

	got, err := resolver.Resolve(ctx, p.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.UsageCount != 2 {
		t.Fatalf("expected usage count 2, got %d", got.UsageCount)
	}
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(used) {
		t.Fatalf("expected last used %v, got %v", used, got.LastUsedAt)
	}

	if err := resolver.RecordUsage(ctx, "", used); err != nil {
		t.Fatalf("empty id should be a no-op: %v", err)
	}
	if err := resolver.RecordUsage(ctx, "missing", used); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewPreset(t *testing.T) {
	p, err := New("  Focus  ", []string{"a", " a ", "", "b"}, false, time.Now())
	if err != nil {
		t.Fatalf("new preset: %v", err)
	}
	if p.Name != "Focus" || len(p.Targets) != 2 || p.ID == "" {
		t.Fatalf("unexpected preset %+v", p)
	}

	if _, err := New("", []string{"a"}, false, time.Now()); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := New("x", []string{" "}, false, time.Now()); err == nil {
		t.Fatal("expected error for empty targets")
	}
}
