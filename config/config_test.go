package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "quran_en.json", cfg.Sources.Primary)
	assert.Equal(t, "quran_fa.json", cfg.Sources.Secondary)
	assert.Equal(t, 600.0, cfg.Feed.ScrollThreshold)
	assert.Equal(t, 250, cfg.Feed.LongThreshold)
	assert.Equal(t, 180, cfg.Feed.ChunkLimit)
	assert.True(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Sources.StrictMerge)
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
database:
  driver: memory
sources:
  primary: data/en.json.xz
  secondary: data/fa.json
  strict_merge: true
feed:
  scroll_threshold: 400
`), 0o644))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("FEED_SCROLL_THRESHOLD", "250")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "data/en.json.xz", cfg.Sources.Primary)
	assert.True(t, cfg.Sources.StrictMerge)
	assert.Equal(t, 250.0, cfg.Feed.ScrollThreshold)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: "8080"},
			Database: DatabaseConfig{Driver: "sqlite", DSN: "x.db"},
			Sources:  SourcesConfig{Primary: "a", Secondary: "b"},
			Feed:     FeedConfig{ScrollThreshold: 600, LongThreshold: 250, ChunkLimit: 180},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "memory without dsn", mutate: func(c *Config) { c.Database = DatabaseConfig{Driver: "memory"} }},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "sqlite without dsn", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: true},
		{name: "missing source", mutate: func(c *Config) { c.Sources.Secondary = "" }, wantErr: true},
		{name: "negative threshold", mutate: func(c *Config) { c.Feed.ScrollThreshold = -1 }, wantErr: true},
		{name: "zero chunk limit", mutate: func(c *Config) { c.Feed.ChunkLimit = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, slog.LevelDebug, LogConfig{Level: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "warning"}.SlogLevel())
	assert.Equal(t, slog.LevelError, LogConfig{Level: "error"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: ""}.SlogLevel())
}
