package main

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/kfocus/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the kfocus configuration file for syntax and semantic errors.`,
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

// validateReport is the structured form of `validate`.
type validateReport struct {
	Path        string   `json:"path" yaml:"path"`
	Valid       bool     `json:"valid" yaml:"valid"`
	UnknownKeys []string `json:"unknown_keys,omitempty" yaml:"unknown_keys,omitempty"`
	Modified    []string `json:"modified,omitempty" yaml:"modified,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	// Unknown keys are checked even without --dump
	unknown, err := findUnknownKeys(configPath)
	if err != nil && !os.IsNotExist(err) {
		_, _ = fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	sections := configSections(cfg, config.Default())
	report := validateReport{Path: configPath, Valid: true, UnknownKeys: unknown, Modified: modifiedKeys(sections)}

	return render(report, func() error {
		_, _ = fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", configPath)

		if len(unknown) > 0 {
			red := color.New(color.FgRed, color.Bold)
			_, _ = fmt.Fprintln(os.Stdout)
			_, _ = red.Fprintf(os.Stdout, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknown))
			for _, key := range unknown {
				_, _ = red.Fprintf(os.Stdout, "   - %s\n", key)
			}
			_, _ = fmt.Fprintln(os.Stdout, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
		}

		if validateDump {
			_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
			_, _ = fmt.Fprintln(os.Stdout, "FULL CONFIGURATION (values different from defaults are highlighted)")
			_, _ = fmt.Fprintln(os.Stdout, strings.Repeat("=", 80))
			dumpSections(sections)
		}
		return nil
	})
}

// findUnknownKeys loads the config file and reports keys config does not recognize
func findUnknownKeys(configPath string) ([]string, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unknownKeys(v.AllKeys(), config.ValidKeys()), nil
}

func unknownKeys(keys []string, valid map[string]bool) []string {
	unknown := []string{}
	for _, key := range keys {
		if !valid[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// configField is one dumped key with its effective and default values.
type configField struct {
	key          string
	value, deflt any
}

func (f configField) modified() bool {
	return !reflect.DeepEqual(f.value, f.deflt)
}

type configSection struct {
	name   string
	fields []configField
}

// configSections flattens cfg next to its defaults, in dump order.
func configSections(cfg, def *config.Config) []configSection {
	r, d := cfg.Storage.Redis, def.Storage.Redis
	return []configSection{
		{"server", []configField{
			{"bind_address", cfg.Server.BindAddress, def.Server.BindAddress},
			{"metrics_port", cfg.Server.MetricsPort, def.Server.MetricsPort},
			{"metrics_enabled", cfg.Server.MetricsEnabled, def.Server.MetricsEnabled},
		}},
		{"storage", []configField{
			{"type", cfg.Storage.Type, def.Storage.Type},
			{"path", cfg.Storage.Path, def.Storage.Path},
		}},
		{"storage.redis", []configField{
			{"host", r.Host, d.Host},
			{"port", r.Port, d.Port},
			{"password", redactPassword(r.Password), redactPassword(d.Password)},
			{"db", r.DB, d.DB},
			{"pool_size", r.PoolSize, d.PoolSize},
			{"min_idle_conns", r.MinIdleConns, d.MinIdleConns},
			{"dial_timeout", r.DialTimeout, d.DialTimeout},
			{"read_timeout", r.ReadTimeout, d.ReadTimeout},
			{"write_timeout", r.WriteTimeout, d.WriteTimeout},
			{"key_prefix", r.KeyPrefix, d.KeyPrefix},
		}},
		{"logging", []configField{
			{"level", cfg.Logging.Level, def.Logging.Level},
			{"format", cfg.Logging.Format, def.Logging.Format},
		}},
		{"session", []configField{
			{"default_duration", cfg.Session.DefaultDuration, def.Session.DefaultDuration},
			{"poll_interval", cfg.Session.PollInterval, def.Session.PollInterval},
			{"deep_focus_multiplier", cfg.Session.DeepFocusMultiplier, def.Session.DeepFocusMultiplier},
			{"motivational_messages", cfg.Session.MotivationalMessages, def.Session.MotivationalMessages},
		}},
		{"scheduler", []configField{
			{"enabled", cfg.Scheduler.Enabled, def.Scheduler.Enabled},
			{"poll_interval", cfg.Scheduler.PollInterval, def.Scheduler.PollInterval},
		}},
		{"goals", []configField{
			{"weekly_tasks", cfg.Goals.WeeklyTasks, def.Goals.WeeklyTasks},
			{"weekly_focus_minutes", cfg.Goals.WeeklyFocusMinutes, def.Goals.WeeklyFocusMinutes},
		}},
		{"presets", []configField{
			{"cache_size", cfg.Presets.CacheSize, def.Presets.CacheSize},
			{"cache_ttl", cfg.Presets.CacheTTL, def.Presets.CacheTTL},
		}},
	}
}

// modifiedKeys lists the dotted keys whose value differs from the default.
func modifiedKeys(sections []configSection) []string {
	var keys []string
	for _, sec := range sections {
		for _, f := range sec.fields {
			if f.modified() {
				keys = append(keys, sec.name+"."+f.key)
			}
		}
	}
	return keys
}

func dumpSections(sections []configSection) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	for _, sec := range sections {
		_, _ = cyan.Printf("\n[%s]\n", sec.name)
		for _, f := range sec.fields {
			if f.modified() {
				_, _ = yellow.Printf("  %s = %v  (modified from default: %v)\n", f.key, f.value, f.deflt)
			} else {
				_, _ = green.Printf("  %s = %v\n", f.key, f.value)
			}
		}
	}
	fmt.Println()
}

// redactPassword redacts password if not empty
func redactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "***REDACTED***"
}
