// Package config provides configuration management for the bearvision CLI.
package config

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Port          int    `koanf:"port"`
	SessionSecret string `koanf:"session_secret"`
	// SecureCookies marks the session cookie secure. Enable it behind HTTPS.
	SecureCookies bool `koanf:"secure_cookies"`
	Watch         bool `koanf:"watch"`
	PageSize      int  `koanf:"page_size"`
}

// Config holds all CLI configuration options.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Locale   string         `koanf:"locale"`
	// MenuItems are the entity keys shown in the navigation, in order.
	MenuItems []string `koanf:"menu_items"`
	LogLevel  string   `koanf:"log_level"`
	LogFormat string   `koanf:"log_format"`
	Verbose   bool     `koanf:"verbose"`

	// File is the configuration file that was loaded, if any.
	File string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultDriver    = "sqlite"
	DefaultDSN       = "bearvision.db"
	DefaultPort      = 8000
	DefaultPageSize  = 20
	DefaultLocale    = "en-US"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DefaultMenuItems is the navigation of a fresh installation.
var DefaultMenuItems = []string{
	"trading_insights.account",
	"trading_insights.position",
	"trading_insights.symbol",
	"trading_insights.scenario",
	"trading_insights.scenarioline",
}
