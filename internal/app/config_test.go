package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/tenantd.sqlite", cfg.Database.Path)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
	require.True(t, cfg.Monitoring.Health.Enabled)
	require.Equal(t, "@every 1m", cfg.Maintenance.StatsSchedule)
	require.False(t, cfg.Maintenance.Purge.Enabled)
	require.Equal(t, "@daily", cfg.Maintenance.Purge.Schedule)
	require.Equal(t, 30, cfg.Maintenance.Purge.RetentionDays)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	contents := []byte(`
server:
  port: 9100
  log_level: debug
database:
  driver: postgres
  postgres:
    host: db.internal
    port: 5433
    database: tenantd
    username: svc
    password: secret
maintenance:
  purge:
    enabled: true
    retention_days: 7
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), contents, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)
	require.True(t, cfg.Maintenance.Purge.Enabled)
	require.Equal(t, 7, cfg.Maintenance.Purge.RetentionDays)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("TENANTD_SERVER_PORT", "9200")
	t.Setenv("TENANTD_DATABASE_DRIVER", "mysql")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9200, cfg.Server.Port)
	require.Equal(t, "mysql", cfg.Database.Driver)
}

func TestConfigureLogging(t *testing.T) {
	require.NoError(t, ConfigureLogging(""))
	require.NoError(t, ConfigureLogging("debug"))
	// Unknown levels fall back to info rather than failing startup.
	require.NoError(t, ConfigureLogging("extremely-verbose"))
}
