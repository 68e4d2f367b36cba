package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bearvision.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("driver", "", "")
	fs.String("database", "", "")
	fs.Int("port", 0, "")
	fs.String("locale", "", "")
	fs.StringSlice("menu-items", nil, "")
	fs.BoolP("verbose", "v", false, "")
	fs.String("unrelated", "", "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultDriver, cfg.Database.Driver)
	assert.Equal(t, DefaultDSN, cfg.Database.DSN)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultPageSize, cfg.Server.PageSize)
	assert.False(t, cfg.Server.SecureCookies, "the server speaks plain HTTP")
	assert.Equal(t, DefaultLocale, cfg.Locale)
	assert.Equal(t, DefaultMenuItems, cfg.MenuItems)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.File)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  dsn: postgres://localhost/bearvision
server:
  port: 9000
  watch: true
  secure_cookies: true
locale: fr-FR
menu_items:
  - trading_insights.symbol
  - trading_insights.account
log_format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/bearvision", cfg.Database.DSN)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Server.Watch)
	assert.True(t, cfg.Server.SecureCookies)
	assert.Equal(t, DefaultPageSize, cfg.Server.PageSize, "unset keys keep their default")
	assert.Equal(t, "fr-FR", cfg.Locale)
	assert.Equal(t, []string{"trading_insights.symbol", "trading_insights.account"}, cfg.MenuItems)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadFindsFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bearvision.yml"), []byte("server:\n  port: 8100\n"), 0o600))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "bearvision.yml", cfg.File)
	assert.Equal(t, 8100, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
locale: fr-FR
database:
  dsn: from-file.db
`)
	t.Setenv("BEARVISION_SERVER__PORT", "9100")
	t.Setenv("BEARVISION_DATABASE__DSN", "from-env.db")
	t.Setenv("BEARVISION_MENU_ITEMS", "trading_insights.account, trading_insights.symbol")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--port", "9200", "--unrelated", "x"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port, "flags override env")
	assert.Equal(t, "from-env.db", cfg.Database.DSN, "env overrides file")
	assert.Equal(t, "fr-FR", cfg.Locale, "file overrides defaults")
	assert.Equal(t, []string{"trading_insights.account", "trading_insights.symbol"}, cfg.MenuItems)
	assert.False(t, cfg.Verbose, "unchanged flags are ignored")
}

func TestLoadMenuItemsFlag(t *testing.T) {
	t.Chdir(t.TempDir())
	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--menu-items", "trading_insights.position,trading_insights.symbol", "-v"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, []string{"trading_insights.position", "trading_insights.symbol"}, cfg.MenuItems)
	assert.True(t, cfg.Verbose)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database:  DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
			Server:    ServerConfig{Port: 8000, PageSize: 20},
			Locale:    "en-US",
			MenuItems: []string{"trading_insights.account"},
			LogLevel:  "debug",
			LogFormat: "text",
		}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, errSubstr: "unknown database driver"},
		{name: "empty dsn", mutate: func(c *Config) { c.Database.DSN = "" }, errSubstr: "database.dsn"},
		{name: "port too low", mutate: func(c *Config) { c.Server.Port = 0 }, errSubstr: "out of range"},
		{name: "port too high", mutate: func(c *Config) { c.Server.Port = 70000 }, errSubstr: "out of range"},
		{name: "page size", mutate: func(c *Config) { c.Server.PageSize = 0 }, errSubstr: "page_size"},
		{name: "bad locale", mutate: func(c *Config) { c.Locale = "not a locale" }, errSubstr: "invalid locale"},
		{name: "bad menu item", mutate: func(c *Config) { c.MenuItems = []string{"Account"} }, errSubstr: "invalid menu item"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, errSubstr: "log_level"},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, errSubstr: "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{LogLevel: "warn", LogFormat: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger = NewLogger(&Config{LogLevel: "info", LogFormat: "text", Verbose: true}, &buf)
	logger.Debug("details")
	assert.Contains(t, buf.String(), "msg=details")
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, GetLogger(ctx), "a discard logger is returned without one in the context")

	var buf bytes.Buffer
	logger := NewLogger(&Config{LogLevel: "info"}, &buf)
	assert.Same(t, logger, GetLogger(WithLogger(ctx, logger)))

	cfg := &Config{Locale: "fr-FR"}
	got, err := GetConfig(WithConfig(ctx, cfg))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}
