package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, 30, cfg.Batch.FileTimeoutSeconds)
	assert.Equal(t, "camt-import.db", cfg.Ledger.Path)
	assert.Empty(t, cfg.Parties.File)
	assert.Equal(t, ",", cfg.Sheet.Delimiter)
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	content := `log:
  level: debug
  format: json
batch:
  workers: 8
ledger:
  path: /var/lib/camt/ledger.db
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(content), 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, "/var/lib/camt/ledger.db", cfg.Ledger.Path)
	// Untouched keys keep their defaults.
	assert.Equal(t, 30, cfg.Batch.FileTimeoutSeconds)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CAMTIMPORT_LOG_LEVEL", "warn")
	t.Setenv("CAMTIMPORT_BATCH_WORKERS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Batch.Workers)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad log level", "CAMTIMPORT_LOG_LEVEL", "loud"},
		{"bad log format", "CAMTIMPORT_LOG_FORMAT", "xml"},
		{"zero workers", "CAMTIMPORT_BATCH_WORKERS", "0"},
		{"huge timeout", "CAMTIMPORT_BATCH_FILE_TIMEOUT_SECONDS", "10000"},
		{"multi-char delimiter", "CAMTIMPORT_SHEET_DELIMITER", ",,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
