package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, time.Hour, cfg.Database.MySQLMaxLife)
	assert.Equal(t, 30, cfg.Game.AutopilotFrames)
	assert.Equal(t, "novice_village", cfg.Game.StartMap)
	assert.Equal(t, 16*time.Millisecond, cfg.Game.TickInterval())
	assert.Equal(t, 7*24*time.Hour, cfg.Audit.Retention)
	assert.Empty(t, cfg.Audit.Types)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
database:
  mode: memory
game:
  tick_ms: 50
  start_map: skull_cave
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Mode)
	assert.Equal(t, "skull_cave", cfg.Game.StartMap)
	assert.Equal(t, 50*time.Millisecond, cfg.Game.TickInterval())
	assert.Equal(t, 600, cfg.Game.RecycleIntervalFrames)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("game:\n  tick_ms: 50\n"), 0o644))
	t.Setenv("MIRIDLE_GAME_TICK_MS", "20")
	t.Setenv("MIRIDLE_CACHE_KEY_PREFIX", "prod:")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, cfg.Game.TickInterval())
	assert.Equal(t, "prod:", cfg.Cache.KeyPrefix)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestTickInterval_Fallback(t *testing.T) {
	assert.Equal(t, time.Second/60, GameConfig{}.TickInterval())
}
