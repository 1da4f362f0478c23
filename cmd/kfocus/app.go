package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goodtune/kfocus/internal/bridge"
	"github.com/goodtune/kfocus/internal/clock"
	"github.com/goodtune/kfocus/internal/config"
	"github.com/goodtune/kfocus/internal/preset"
	"github.com/goodtune/kfocus/internal/session"
	"github.com/goodtune/kfocus/internal/storage"
	"github.com/goodtune/kfocus/internal/storage/bolt"
	"github.com/goodtune/kfocus/internal/storage/redis"
	"github.com/goodtune/kfocus/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// app wires the runtime shared by every command.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   storage.Store
	clock   clock.Clock
	bridge  *bridge.Bridge
	presets *preset.Resolver
	manager *session.Manager
}

// newApp loads configuration and opens storage. One-shot commands log to
// stderr and only at error level so their output stays clean.
func newApp(daemon bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var logger zerolog.Logger
	if daemon {
		logger = setupLogger(cfg.Logging, os.Stdout, zerolog.DebugLevel)
	} else {
		logger = setupLogger(cfg.Logging, os.Stderr, zerolog.ErrorLevel)
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	clk := clock.RealClock{}
	br := bridge.New(store.Shared(), clk, logger)
	resolver := preset.NewResolver(store.Presets(), preset.Config{
		CacheSize: cfg.Presets.CacheSize,
		CacheTTL:  parseDuration(cfg.Presets.CacheTTL, preset.DefaultCacheTTL),
	}, logger)
	manager := session.NewManager(store.Sessions(), br, resolver, clk, session.Config{
		DeepFocusMultiplier:  cfg.Session.DeepFocusMultiplier,
		MotivationalMessages: cfg.Session.MotivationalMessages,
	}, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		clock:   clk,
		bridge:  br,
		presets: resolver,
		manager: manager,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close storage")
	}
}

// withApp runs fn against a freshly opened app, closing it afterwards.
func withApp(fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(context.Background(), a)
}

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "", "bolt":
		return bolt.Open(cfg.Path)
	case "redis":
		return redis.Open(cfg.Redis)
	case "sqlite":
		return sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (must be bolt, redis, or sqlite)", cfg.Type)
	}
}

// setupLogger configures the logger based on configuration. The level never
// drops below floor.
func setupLogger(cfg config.LoggingConfig, out io.Writer, floor zerolog.Level) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	if level < floor {
		level = floor
	}

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// parseAge extends time.ParseDuration with a day suffix, e.g. "90d".
func parseAge(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		var days int
		if _, err := fmt.Sscanf(strings.TrimSuffix(s, "d"), "%d", &days); err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid age %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid age %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid age %q: must be positive", s)
	}
	return d, nil
}

// findPreset resolves a preset by id or, failing that, by case-insensitive name.
func findPreset(ctx context.Context, presets storage.PresetStore, ref string) (*storage.BlockListPreset, error) {
	if ref == "" {
		return nil, nil
	}
	p, err := presets.Get(ctx, ref)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	all, err := presets.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if strings.EqualFold(all[i].Name, ref) {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("preset %q: %w", ref, storage.ErrNotFound)
}
