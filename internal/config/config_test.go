package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	root, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, root.Dir)
	assert.Empty(t, root.File)
	assert.Equal(t, filepath.Join(dir, "queue"), root.Config.Queue.Dir)
	assert.Equal(t, StorageFile, root.Config.Queue.Storage)
	assert.Equal(t, "queue_messages", root.Config.Queue.Table)
	assert.Equal(t, "console", root.Config.Logging.Type)
	assert.Equal(t, "qstat:stats", root.Config.Cache.Key)

	ttl, err := root.Config.CacheTTL()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[queue]
dir = "/var/spool/elemta"
storage = "SQLite"
dsn = "queue.db"

[logging]
level = "debug"
format = "json"

[metrics]
listen = "127.0.0.1:9108"

[cache]
type = "redis"
addr = "localhost:6379"
ttl = "5m"
`)

	root, err := Load(dir)
	require.NoError(t, err)

	cfg := root.Config
	assert.Equal(t, filepath.Join(dir, FileName), root.File)
	assert.Equal(t, "/var/spool/elemta", cfg.Queue.Dir)
	assert.Equal(t, StorageSQLite, cfg.Queue.Storage)
	assert.Equal(t, filepath.Join(dir, "queue.db"), cfg.Queue.DSN)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "127.0.0.1:9108", cfg.Metrics.Listen)
	assert.Equal(t, "redis", cfg.Cache.Type)

	ttl, err := cfg.CacheTTL()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ttl)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"malformed toml", "[queue\ndir = 1", "error parsing"},
		{"unknown storage", "[queue]\nstorage = \"tape\"", "unsupported queue.storage"},
		{"sql without dsn", "[queue]\nstorage = \"postgres\"", "queue.dsn is required"},
		{"bad table", "[queue]\ntable = \"x; drop\"", "invalid queue.table"},
		{"unknown cache", "[cache]\ntype = \"etcd\"", "unsupported cache.type"},
		{"cache without addr", "[cache]\ntype = \"memcached\"", "cache.addr is required"},
		{"bad ttl", "[cache]\nttl = \"soon\"", "invalid cache.ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.body)

			_, err := Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadEmptyDir(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, MaxFileSize+1)
	for i := range big {
		big[i] = '#'
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), big, 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}
