package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.False(t, cfg.SerializeProjectWrites)
	assert.Equal(t, 0, cfg.MaxMessagesPerMinute)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "DynamoDB")
	t.Setenv("SERIALIZE_PROJECT_WRITES", "true")
	t.Setenv("MAX_MESSAGES_PER_MINUTE", "120")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DEFAULT_ROLE", "editor")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, BackendDynamoDB, cfg.StoreBackend)
	assert.Equal(t, "EDITOR", cfg.DefaultRole)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)

	sync := cfg.SyncConfig()
	assert.True(t, sync.SerializeProjectWrites)
	assert.Equal(t, 120, sync.MaxMessagesPerMinute)
}

func TestLoadConfig_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagramsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL: debug\nEVENT_BUS_NAME: from-file\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("EVENT_BUS_NAME", "from-env")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "from-env", cfg.EventBusName)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown backend", func(c *Config) { c.StoreBackend = "redis" }, "STORE_BACKEND"},
		{"auth without secret", func(c *Config) { c.RequireAuth = true }, "JWT_SECRET"},
		{"events without bus", func(c *Config) { c.EnableEvents = true; c.EventBusName = "" }, "EVENT_BUS_NAME"},
		{"production on memory", func(c *Config) { c.Environment = "production"; c.JWTSecret = "s" }, "STORE_BACKEND"},
		{"negative rate", func(c *Config) { c.MaxMessagesPerMinute = -1 }, "MAX_MESSAGES_PER_MINUTE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
