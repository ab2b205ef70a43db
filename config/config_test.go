package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "bramble", cfg.AppName)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 500, cfg.ExportBatchSize)
	assert.Equal(t, 0, cfg.ExportPageNamespace)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte("DB_DRIVER=sqlite\nEXPORT_BATCH_SIZE=25\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("DB_DRIVER")
		os.Unsetenv("EXPORT_BATCH_SIZE")
	})

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 25, cfg.ExportBatchSize)
	assert.Equal(t, cfg.DatabaseSQLitePath, cfg.DatabaseDSN())
}

func TestValidate(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "mysql")
		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DatabaseDriver")
	})

	t.Run("zero batch size", func(t *testing.T) {
		t.Setenv("EXPORT_BATCH_SIZE", "0")
		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ExportBatchSize")
	})
}

func TestDatabaseDSN_Postgres(t *testing.T) {
	cfg := &Config{
		DatabaseDriver:   "postgres",
		DatabaseHost:     "db",
		DatabasePort:     "5432",
		DatabaseUserName: "user",
		DatabasePassword: "pw",
		DatabaseName:     "bramble",
		DatabaseSSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=user password=pw dbname=bramble sslmode=disable", cfg.DatabaseDSN())
}
