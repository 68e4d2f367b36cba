package config

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"golang.org/x/text/language"
)

var entityKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q (expected sqlite or postgres)", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Server.PageSize < 1 {
		errs = append(errs, fmt.Errorf("server.page_size must be positive, got %d", c.Server.PageSize))
	}
	if _, err := language.Parse(c.Locale); err != nil {
		errs = append(errs, fmt.Errorf("invalid locale %q: %w", c.Locale, err))
	}
	for _, item := range c.MenuItems {
		if !entityKeyPattern.MatchString(item) {
			errs = append(errs, fmt.Errorf("invalid menu item %q (expected app.model)", item))
		}
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("invalid log_level %q", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid log_format %q (expected text or json)", c.LogFormat))
	}

	return errors.Join(errs...)
}
