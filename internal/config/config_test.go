package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/annel0/voxel-level/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VOXEL_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg, "без файла используются значения по умолчанию")
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxel.yaml")
	content := `
level:
  size: {x: 2, y: 1, z: 3}
  seed: 99
storage:
  save_path: world.yaml.zst
  compress: true
server:
  http_port: 9000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("VOXEL_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, vec.New(2, 1, 3), cfg.Level.Size)
	assert.Equal(t, int64(99), cfg.Level.Seed)
	assert.Equal(t, "world.yaml.zst", cfg.Storage.SavePath)
	assert.True(t, cfg.Storage.Compress)
	assert.Equal(t, "archive", cfg.Storage.ArchiveDir, "незаданные поля остаются по умолчанию")
	assert.Equal(t, 9000, cfg.Server.GetHTTPPort())
}

func TestLoadCacheSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxel.yaml")
	content := `
cache:
  enabled: true
  redis_url: localhost:6379
  ttl: 90s
  nats_url: nats://localhost:4222
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisURL)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "nats://localhost:4222", cfg.Cache.NATSURL)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("level:\n  size: {x: 0, y: 1, z: 1}\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPortEnvFallback(t *testing.T) {
	var s ServerConfig

	t.Setenv("VOXEL_HTTP_PORT", "")
	assert.Equal(t, 8088, s.GetHTTPPort())

	t.Setenv("VOXEL_HTTP_PORT", "9100")
	assert.Equal(t, 9100, s.GetHTTPPort())

	t.Setenv("VOXEL_METRICS_PORT", "oops")
	assert.Equal(t, 2112, s.GetMetricsPort(), "некорректное значение игнорируется")

	s.MetricsPort = 3000
	assert.Equal(t, 3000, s.GetMetricsPort())
}

func TestJWTSecretEnvFallback(t *testing.T) {
	var s ServerConfig

	t.Setenv("VOXEL_JWT_SECRET", "from-env")
	assert.Equal(t, "from-env", s.GetJWTSecret())

	s.JWTSecret = "from-config"
	assert.Equal(t, "from-config", s.GetJWTSecret())
}
