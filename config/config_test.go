package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, ModeLocal, cfg.Storage.Mode)
	assert.Equal(t, "matchops.sync", cfg.NATS.SubjectPrefix)
	assert.Equal(t, 7, cfg.Backup.Keep)
	assert.False(t, cfg.RemoteEnabled())
}

func TestLoadConfigYAMLThenEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", `
storage:
  mode: remote
  quota_bytes: 1024
postgres:
  dsn: postgres://file
backup:
  interval: 1h
  keep: 3
logging:
  format: json
`)
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("BACKUP_INTERVAL", "30m")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.True(t, cfg.RemoteEnabled())
	assert.Equal(t, int64(1024), cfg.Storage.QuotaBytes)
	assert.Equal(t, "postgres://env", cfg.Postgres.DSN)
	assert.Equal(t, 30*time.Minute, cfg.Backup.Interval)
	assert.Equal(t, 3, cfg.Backup.Keep)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, ":8080", cfg.HTTP.Address, "unset keys keep their defaults")
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		errText string
	}{
		{name: "remote without dsn", yaml: "storage:\n  mode: remote\n", errText: "requires DATABASE_URL"},
		{name: "unknown mode", yaml: "storage:\n  mode: cloud\n", errText: "unknown storage mode"},
		{name: "bad duration", env: map[string]string{"TRANSACTION_TIMEOUT": "soon"}, errText: "TRANSACTION_TIMEOUT"},
		{name: "bad yaml", yaml: "storage: [", errText: "failed to unmarshal"},
		{name: "bad log format", yaml: "logging:\n  format: xml\n", errText: "unknown log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeFile(t, "config.yaml", tt.yaml)

			_, err := LoadConfig(path)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")), "a missing file is fine")

	t.Setenv("MATCHOPS_TEST_KEEP", "from-env")
	path := writeFile(t, ".env", "MATCHOPS_TEST_KEEP=from-file\nMATCHOPS_TEST_NEW=loaded\n")
	t.Cleanup(func() { os.Unsetenv("MATCHOPS_TEST_NEW") })

	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, "from-env", os.Getenv("MATCHOPS_TEST_KEEP"))
	assert.Equal(t, "loaded", os.Getenv("MATCHOPS_TEST_NEW"))
}
