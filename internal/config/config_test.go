package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "stock.csv", cfg.StockFile)
	assert.Equal(t, "sales.csv", cfg.SalesFile)
	assert.Equal(t, 90, cfg.ExpiryWarnDays)
	assert.Equal(t, 101, cfg.IndexCapacity)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STOCK_FILE", "/data/stock.csv")
	t.Setenv("EXPIRY_WARN_DAYS", "30")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "/data/stock.csv", cfg.StockFile)
	assert.Equal(t, 30, cfg.ExpiryWarnDays)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLoad_InvalidPortFallsBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_PORT", "http")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SALES_FILE=ledger.csv\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("SALES_FILE") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ledger.csv", cfg.SalesFile)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "medstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stock_file: from-file.csv\nindex_capacity: 500\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file.csv", cfg.StockFile)
	assert.Equal(t, 500, cfg.IndexCapacity)
}
