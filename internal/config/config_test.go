package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetlogix/pkg/models"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("FLEETLOGIX_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "FACT_DELIVERIES", cfg.Pipeline.FactTable)
	assert.Equal(t, 7, cfg.Pipeline.ExtractDays)
	assert.Equal(t, 500, cfg.Pipeline.DeleteBatchSize)
	assert.Equal(t, 5432, cfg.Source.Port)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Setenv("FLEETLOGIX_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))

	cfg := &models.Config{}
	cfg.Source.Host = "db.internal"
	cfg.Source.Username = "etl"
	cfg.Source.Database = "fleetlogix"
	cfg.Warehouse.Account = "xy12345.us-east-1"
	cfg.Warehouse.Database = "FLEETLOGIX_DW"
	cfg.Warehouse.Schema = "STAR_SCHEMA"
	cfg.Pipeline.ExtractDays = 3
	cfg.ApplyDefaults()

	require.NoError(t, Save(cfg))
	assert.True(t, Exists())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.Source.Host, loaded.Source.Host)
	assert.Equal(t, cfg.Warehouse.Account, loaded.Warehouse.Account)
	assert.Equal(t, 3, loaded.Pipeline.ExtractDays)
	assert.Equal(t, "ACCOUNTADMIN", loaded.Warehouse.Role)
}

func TestSavePermissions(t *testing.T) {
	t.Setenv("FLEETLOGIX_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))

	cfg := &models.Config{}
	cfg.ApplyDefaults()
	require.NoError(t, Save(cfg))

	info, err := os.Stat(GetConfigFile())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("FLEETLOGIX_CONFIG", path)
	require.NoError(t, os.WriteFile(path, []byte("source: [not a mapping"), 0600))

	_, err := Load()
	assert.Error(t, err)
}
