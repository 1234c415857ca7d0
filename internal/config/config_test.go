package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":17171", cfg.Server.GRPC.Address)
	assert.Equal(t, "/ws", cfg.Server.WebSocket.Path)
	assert.Equal(t, 30*time.Second, cfg.Server.GRPC.KeepaliveTime)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, fight.DefaultOptions(), cfg.Engine.Options)
	assert.Equal(t, 10000, cfg.Engine.MaxIterations)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  grpc:
    address: "127.0.0.1:9000"
  websocket:
    write_timeout: 3s
engine:
  options:
    lanes: 5
    features: [hammer]
storage:
  driver: bbolt
  bolt_path: /tmp/battles.db
logging:
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.GRPC.Address)
	assert.Equal(t, ":17172", cfg.Server.WebSocket.Address)
	assert.Equal(t, 3*time.Second, cfg.Server.WebSocket.WriteTimeout)
	assert.Equal(t, 5, cfg.Engine.Options.Lanes)
	assert.Equal(t, 2, cfg.Engine.Options.Lives)
	assert.Equal(t, []string{fight.FeatureHammer}, cfg.Engine.Options.Features)
	assert.Equal(t, DriverBolt, cfg.Storage.Driver)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FIGHT_STORAGE_DRIVER", "postgres")
	t.Setenv("FIGHT_STORAGE_POSTGRES_DSN", "postgres://localhost/fight")
	t.Setenv("FIGHT_ENGINE_MAX_ITERATIONS", "250")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/fight", cfg.Storage.PostgresDSN)
	assert.Equal(t, 250, cfg.Engine.MaxIterations)
}

func TestLoadRejects(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "storage:\n  driver: redis\n"))
	assert.ErrorContains(t, err, "unknown storage driver")

	_, err = Load(writeConfig(t, "storage:\n  driver: postgres\n"))
	assert.ErrorContains(t, err, "postgres_dsn")

	_, err = Load(writeConfig(t, "engine:\n  options:\n    lanes: 0\n"))
	assert.ErrorContains(t, err, "engine.options")
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Engine, cfg.Engine)
	assert.Equal(t, Default().Storage, cfg.Storage)
}
