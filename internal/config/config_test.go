package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := writeConfig(t, `
server:
  port: "9090"
auth:
  jwt_secret: s3cret
scoring:
  timezone: Asia/Jakarta
  grace: 10s
  levels:
    - {name: Rookie, min_points: 0}
    - {name: Pro, min_points: 100}
minigame:
  lives: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "Asia/Jakarta", cfg.Location().String())
	assert.Equal(t, 10*time.Second, cfg.Timing().Grace)
	assert.Equal(t, "Pro", cfg.Levels().For(150))
	assert.Equal(t, 5, cfg.MiniGameRules().Lives)
	assert.Equal(t, 60, cfg.MiniGameRules().DurationSeconds)
}

func TestLoadSecretFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	cfg, err := Load(writeConfig(t, "server:\n  port: \"8080\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load(writeConfig(t, `
scoring:
  timezone: Mars/Olympus
  levels:
    - {name: A, min_points: 5}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
	assert.Contains(t, err.Error(), "timezone")
	assert.Contains(t, err.Error(), "levels")
}

func TestTTLDuration(t *testing.T) {
	assert.Equal(t, time.Minute, TTLDuration("", time.Minute))
	assert.Equal(t, time.Minute, TTLDuration("bogus", time.Minute))
	assert.Equal(t, 5*time.Second, TTLDuration("5s", time.Minute))
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	_, err := Load(writeConfig(t, "redis:\n  addr: localhost:6379\n  ttl: 5m\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ttl")
}

func TestLoadEmptyFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestShippedConfigLoads(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jakarta", cfg.Location().String())
	assert.Equal(t, 30, cfg.RateLimit.PerMinute)
}
