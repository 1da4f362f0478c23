// Package preset resolves block-list presets for display and keeps their usage
// counters current.
package preset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goodtune/kfocus/internal/metrics"
	"github.com/goodtune/kfocus/internal/storage"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

const (
	// DefaultCacheSize is used when Config.CacheSize is not positive.
	DefaultCacheSize = 128

	// DefaultCacheTTL is used when Config.CacheTTL is not positive.
	DefaultCacheTTL = 5 * time.Minute
)

// Config holds resolver cache settings.
type Config struct {
	CacheSize int
	CacheTTL  time.Duration
}

// Resolver looks presets up by id through an expiring LRU cache.
// Presets edited by another process become visible once their entry expires.
type Resolver struct {
	presets storage.PresetStore
	cache   *expirable.LRU[string, storage.BlockListPreset]
	logger  zerolog.Logger
}

// NewResolver creates a resolver over presets.
func NewResolver(presets storage.PresetStore, cfg Config, logger zerolog.Logger) *Resolver {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	return &Resolver{
		presets: presets,
		cache:   expirable.NewLRU[string, storage.BlockListPreset](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:  logger.With().Str("component", "preset-resolver").Logger(),
	}
}

// Resolve returns the preset with the given id.
func (r *Resolver) Resolve(ctx context.Context, id string) (*storage.BlockListPreset, error) {
	if p, ok := r.cache.Get(id); ok {
		metrics.PresetCacheHits.Inc()
		return &p, nil
	}
	metrics.PresetCacheMisses.Inc()

	p, err := r.presets.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve preset %s: %w", id, err)
	}
	r.cache.Add(id, *p)
	return p, nil
}

// DisplayName returns the preset name and allow-list mode for id. Unknown or
// empty ids yield an empty name; the shield then omits the target.
func (r *Resolver) DisplayName(ctx context.Context, id string) (string, bool) {
	if id == "" {
		return "", false
	}
	p, err := r.Resolve(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn().Err(err).Str("preset_id", id).Msg("Failed to resolve preset name")
		}
		return "", false
	}
	return p.Name, p.IsAllowList
}

// RecordUsage bumps the usage counter of id and drops its cached copy.
func (r *Resolver) RecordUsage(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return nil
	}
	r.cache.Remove(id)
	if err := r.presets.RecordUsage(ctx, id, at); err != nil {
		return fmt.Errorf("record preset usage %s: %w", id, err)
	}
	return nil
}

// Invalidate drops id from the cache.
func (r *Resolver) Invalidate(id string) {
	r.cache.Remove(id)
}

// New builds a preset with a fresh id. Targets are trimmed and de-duplicated
// in their given order.
func New(name string, targets []string, allowList bool, now time.Time) (storage.BlockListPreset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.BlockListPreset{}, errors.New("preset name is required")
	}

	seen := make(map[string]bool, len(targets))
	cleaned := make([]string, 0, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		cleaned = append(cleaned, t)
	}
	if len(cleaned) == 0 {
		return storage.BlockListPreset{}, errors.New("preset requires at least one target")
	}

	return storage.BlockListPreset{
		ID:          uuid.NewString(),
		Name:        name,
		Targets:     cleaned,
		IsAllowList: allowList,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
