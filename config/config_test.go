package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "8080"
  gateway_token: file-token
  allowed_origins: ["https://a.example"]
postgres:
  dsn: postgres://file
scheduler:
  expiry_interval: 30s
`), 0o600))

	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("GAME_SERVICE_TOKEN", "")
	t.Setenv("EXPIRY_INTERVAL", "")
	t.Setenv("ALLOWED_ORIGINS", "https://b.example, https://c.example ,")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "file-token", cfg.Server.GatewayToken)
	assert.Equal(t, "postgres://env", cfg.Postgres.DSN)
	assert.Equal(t, []string{"https://b.example", "https://c.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.ExpiryInterval)
	assert.Equal(t, "/api/v1/public/profiles", cfg.Sync.EndpointPath)
}

func TestLoadMissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("GAME_SERVICE_TOKEN", "env-token")
	t.Setenv("EXPIRY_INTERVAL", "2m")
	t.Setenv("LOG_JSON", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "5200", cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.ExpiryInterval)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadRejectsIncompleteConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GAME_SERVICE_TOKEN", "env-token")

	_, err := Load("")
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("EXPIRY_INTERVAL", "soon")
	_, err = Load("")
	assert.ErrorContains(t, err, "EXPIRY_INTERVAL")
}
