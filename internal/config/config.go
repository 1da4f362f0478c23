package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Session   SessionConfig   `mapstructure:"session"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Goals     GoalsConfig     `mapstructure:"goals"`
	Presets   PresetsConfig   `mapstructure:"presets"`
}

// ServerConfig defines the daemon's metrics endpoint
type ServerConfig struct {
	BindAddress    string `mapstructure:"bind_address"`
	MetricsPort    int    `mapstructure:"metrics_port"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // bolt, redis or sqlite
	Path  string      `mapstructure:"path"` // bolt and sqlite file
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SessionConfig defines focus session behavior
type SessionConfig struct {
	DefaultDuration      string   `mapstructure:"default_duration"`
	PollInterval         string   `mapstructure:"poll_interval"`
	DeepFocusMultiplier  int      `mapstructure:"deep_focus_multiplier"`
	MotivationalMessages []string `mapstructure:"motivational_messages"`
}

// SchedulerConfig defines the schedule trigger loop
type SchedulerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	PollInterval string `mapstructure:"poll_interval"`
}

// GoalsConfig defines the weekly targets the velocity score is measured against
type GoalsConfig struct {
	WeeklyTasks        int `mapstructure:"weekly_tasks"`
	WeeklyFocusMinutes int `mapstructure:"weekly_focus_minutes"`
}

// PresetsConfig defines the preset name cache
type PresetsConfig struct {
	CacheSize int    `mapstructure:"cache_size"`
	CacheTTL  string `mapstructure:"cache_ttl"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix("KFOCUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration produced by defaults alone
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.bind_address", "127.0.0.1")
	v.SetDefault("server.metrics_port", 9464)
	v.SetDefault("server.metrics_enabled", true)

	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.path", defaultStoragePath())
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")
	v.SetDefault("storage.redis.key_prefix", "kfocus")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Session defaults
	v.SetDefault("session.default_duration", "25m")
	v.SetDefault("session.poll_interval", "5s")
	v.SetDefault("session.deep_focus_multiplier", 2)
	v.SetDefault("session.motivational_messages", []string{
		"Stay focused. You've got this.",
		"One thing at a time.",
		"Deep work builds great things.",
		"The distraction will still be there later.",
		"Protect your attention.",
	})

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.poll_interval", "30s")

	// Goal defaults
	v.SetDefault("goals.weekly_tasks", 10)
	v.SetDefault("goals.weekly_focus_minutes", 600)

	// Preset cache defaults
	v.SetDefault("presets.cache_size", 128)
	v.SetDefault("presets.cache_ttl", "5m")
}

// ValidKeys returns the set of every recognized configuration key
func ValidKeys() map[string]bool {
	v := viper.New()
	SetDefaults(v)

	keys := make(map[string]bool)
	for _, key := range v.AllKeys() {
		keys[key] = true
	}
	return keys
}

func defaultStoragePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "kfocus", "kfocus.bolt")
	}
	return "kfocus.bolt"
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "bolt"
	}

	switch cfg.Storage.Type {
	case "bolt", "sqlite":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required for %s storage", cfg.Storage.Type)
		}
		// Ensure storage directory exists
		storageDir := filepath.Dir(cfg.Storage.Path)
		if err := os.MkdirAll(storageDir, 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	case "redis":
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("redis host is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s (must be bolt, redis, or sqlite)", cfg.Storage.Type)
	}

	if cfg.Server.MetricsEnabled && (cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535) {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}

	durations := map[string]string{
		"session.default_duration":   cfg.Session.DefaultDuration,
		"session.poll_interval":      cfg.Session.PollInterval,
		"scheduler.poll_interval":    cfg.Scheduler.PollInterval,
		"presets.cache_ttl":          cfg.Presets.CacheTTL,
		"storage.redis.dial_timeout": cfg.Storage.Redis.DialTimeout,
	}
	for key, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s: must be positive", key)
		}
	}

	if cfg.Session.DeepFocusMultiplier < 1 {
		return fmt.Errorf("session.deep_focus_multiplier must be at least 1")
	}

	return nil
}
