package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Sources  SourcesConfig  `yaml:"sources"`
	Feed     FeedConfig     `yaml:"feed"`
	Cache    CacheConfig    `yaml:"cache"`
	Export   ExportConfig   `yaml:"export"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `yaml:"port"             env:"PORT"                    env-default:"8080"`
	RequestTimeout  time.Duration `yaml:"request_timeout"  env:"SERVER_REQUEST_TIMEOUT"  env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

// DatabaseConfig selects where feed settings persist.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DB_DRIVER"            env-default:"sqlite"`
	DSN    string `yaml:"dsn"    env:"DB_CONNECTION_STRING" env-default:"versefeed.db"`
}

// SourcesConfig points at the two raw datasets.
type SourcesConfig struct {
	Primary     string `yaml:"primary"      env:"SOURCES_PRIMARY"      env-default:"quran_en.json"`
	Secondary   string `yaml:"secondary"    env:"SOURCES_SECONDARY"    env-default:"quran_fa.json"`
	StrictMerge bool   `yaml:"strict_merge" env:"SOURCES_STRICT_MERGE" env-default:"false"`
}

// FeedConfig tunes the feed controller and card renderer.
type FeedConfig struct {
	ScrollThreshold   float64 `yaml:"scroll_threshold"    env:"FEED_SCROLL_THRESHOLD"    env-default:"600"`
	MaxSessions       int     `yaml:"max_sessions"        env:"FEED_MAX_SESSIONS"        env-default:"1024"`
	LongThreshold     int     `yaml:"long_threshold"      env:"FEED_LONG_THRESHOLD"      env-default:"250"`
	ChunkLimit        int     `yaml:"chunk_limit"         env:"FEED_CHUNK_LIMIT"         env-default:"180"`
	SecondaryFontHint string  `yaml:"secondary_font_hint" env:"FEED_SECONDARY_FONT_HINT" env-default:"vazirmatn"`
}

// CacheConfig controls the offline asset cache.
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled"  env:"CACHE_ENABLED"  env-default:"true"`
	Dir      string `yaml:"dir"      env:"CACHE_DIR"      env-default:"_cache"`
	Manifest string `yaml:"manifest" env:"CACHE_MANIFEST"`

	// RefreshInterval re-prefetches the manifest in the background; 0 disables it.
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"CACHE_REFRESH_INTERVAL" env-default:"24h"`
}

// ExportConfig controls EPUB export.
type ExportConfig struct {
	Dir string `yaml:"dir" env:"EXPORT_DIR" env-default:"_output"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// SlogLevel maps the configured level to a slog.Level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks values cleanenv cannot express.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("database.driver must be sqlite, postgres or memory, got %q", c.Database.Driver)
	}
	if c.Database.Driver != "memory" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %s", c.Database.Driver)
	}
	if c.Sources.Primary == "" || c.Sources.Secondary == "" {
		return fmt.Errorf("sources.primary and sources.secondary are required")
	}
	if c.Feed.ScrollThreshold < 0 {
		return fmt.Errorf("feed.scroll_threshold must not be negative")
	}
	if c.Feed.LongThreshold < 1 || c.Feed.ChunkLimit < 1 {
		return fmt.Errorf("feed.long_threshold and feed.chunk_limit must be positive")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	return nil
}
