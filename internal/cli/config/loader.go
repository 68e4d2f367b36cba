package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes the environment variables read by Load.
// Nested keys use a double underscore: BEARVISION_SERVER__PORT.
const EnvPrefix = "BEARVISION_"

type (
	loggerKey struct{}
	configKey struct{}
)

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"driver":         "database.driver",
	"database":       "database.dsn",
	"port":           "server.port",
	"session-secret": "server.session_secret",
	"secure-cookies": "server.secure_cookies",
	"watch":          "server.watch",
	"page-size":      "server.page_size",
	"locale":         "locale",
	"menu-items":     "menu_items",
	"log-level":      "log_level",
	"log-format":     "log_format",
	"verbose":        "verbose",
}

// FindConfigFile returns the configuration file to use.
// Priority: explicit path > bearvision.yaml > bearvision.yml
func FindConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"bearvision.yaml", "bearvision.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load loads configuration from defaults, file, environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
// Only flags that were explicitly set are applied.
func Load(cfgFile string, flagSets ...*pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"database.driver":       DefaultDriver,
		"database.dsn":          DefaultDSN,
		"server.port":           DefaultPort,
		"server.watch":          false,
		"server.secure_cookies": false,
		"server.page_size":      DefaultPageSize,
		"locale":                DefaultLocale,
		"menu_items":            DefaultMenuItems,
		"log_level":             DefaultLogLevel,
		"log_format":            DefaultLogFormat,
		"verbose":               false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	path := FindConfigFile(cfgFile)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment variables
	// Transform: BEARVISION_SERVER__PORT -> server.port
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	for _, flags := range flagSets {
		if flags == nil {
			continue
		}
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = path
	cfg.MenuItems = splitItems(cfg.MenuItems)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// splitItems accepts comma separated lists, as given by environment variables.
func splitItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// NewLogger builds the root logger described by cfg.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if cfg.Verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the configuration from the command context.
func GetConfig(ctx context.Context) (*Config, error) {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c, nil
	}
	return Load("")
}
