package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":3000", c.Addr())
	assert.Equal(t, time.Second, c.Tick)
	assert.Equal(t, 15, c.ResponseTicks)
	assert.Equal(t, 3, c.CountdownTicks)
	assert.Equal(t, 5, c.HandSize)
	assert.Equal(t, "sqlite", c.CatalogDriver)
	assert.Empty(t, c.CORSOrigins, "empty allows any origin")
	assert.Empty(t, c.WSOriginPatterns, "empty allows any origin")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("GAME_TICK", "250ms")
	t.Setenv("WS_ALLOWED_ORIGINS", "localhost:*,example.com")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	t.Setenv("CATALOG_DRIVER", "memory")

	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Addr())
	assert.Equal(t, 250*time.Millisecond, c.Tick)
	assert.Equal(t, []string{"localhost:*", "example.com"}, c.WSOriginPatterns)
	assert.Equal(t, []string{"http://localhost:5173"}, c.CORSOrigins)
	assert.Equal(t, "memory", c.CatalogDriver)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GAME_MAX_ROUNDS=7\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("GAME_MAX_ROUNDS") })

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, c.MaxRounds)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("GAME_HAND_SIZE", "0")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv("GAME_HAND_SIZE", "5")
	t.Setenv("CATALOG_DRIVER", "mongo")
	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
