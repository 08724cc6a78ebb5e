package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/flowlib/internal/catalog"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, int32(5), cfg.Database.MaxConns)
	assert.Equal(t, 20*time.Second, cfg.Import.SheetFetchTimeout)
	assert.Equal(t, int64(10<<20), cfg.Import.MaxSheetBytes)
	assert.Equal(t, catalog.DefaultPlatforms, cfg.Import.Platforms)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
}

func TestLoadReadsYAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
server:
  addr: ":9090"
  read_timeout: 5s
  cors_origins:
    - https://flowlib.example
database:
  driver: memory
import:
  platforms: [n8n, Make]
`)
	t.Setenv("FLOWLIB_SERVER_ADDR", ":7070")
	t.Setenv("FLOWLIB_DATABASE_HOST", "db.internal")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"https://flowlib.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, []string{"n8n", "Make"}, cfg.Import.Platforms)
}

func TestLoadSplitsCommaSeparatedEnvLists(t *testing.T) {
	t.Setenv("FLOWLIB_IMPORT_PLATFORMS", "n8n, Zapier")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"n8n", "Zapier"}, cfg.Import.Platforms)
}

func TestLoadReadsDotEnv(t *testing.T) {
	const key = "FLOWLIB_SERVER_ADMIN_TOKEN"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	dir := t.TempDir()
	writeFile(t, dir, ".env", key+"=from-dotenv\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Server.AdminToken)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("FLOWLIB_DATABASE_DRIVER", "sqlite")

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "h", Port: 1, User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=d sslmode=disable", cfg.DB().DSN())
}
