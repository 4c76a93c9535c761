package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
database:
  host: db.internal
  port: 5432
  user: app
  password: pw
  name: marzdeck
  sslmode: require
security:
  encryption_key: test-key
ssh:
  connect_timeout: 10s
  worker_pool_size: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Address())
	assert.Equal(t,
		"host=db.internal port=5432 user=app password=pw dbname=marzdeck sslmode=require",
		cfg.Database.DSN())
	assert.Equal(t, "test-key", cfg.Security.EncryptionKey)
	assert.Equal(t, 10*time.Second, cfg.SSH.ConnectTimeout)
	assert.Equal(t, 4, cfg.SSH.WorkerPoolSize)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 8080
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.SSH.ConnectTimeout)
	assert.Equal(t, 60*time.Second, cfg.SSH.CommandTimeout)
	assert.Equal(t, 10, cfg.SSH.WorkerPoolSize)
	assert.Equal(t, 30*time.Second, cfg.Marzban.RequestTimeout)
	assert.Equal(t, 3, cfg.Marzban.MaxRetries)
	assert.Equal(t, 1000, cfg.Jobs.MaxJobs)
	assert.Equal(t, 24*time.Hour, cfg.Jobs.TTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
