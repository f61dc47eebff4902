package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/joyeria-ledger/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, config.RecomputeSync, cfg.Ledger.RecomputeMode)
	assert.Equal(t, config.LockLocal, cfg.Ledger.LockBackend)
	assert.Equal(t, "America/Bogota", cfg.Ledger.BusinessTZ)
	assert.Equal(t, 5*time.Second, cfg.Ledger.LockWait)
	assert.Equal(t, 31, cfg.Ledger.RangeChunkDays)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
}

func TestLoad_VariablesDeEntorno(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEDGER_RECOMPUTE_MODE", "deferred")
	t.Setenv("LEDGER_LOCK_BACKEND", "redis")
	t.Setenv("LEDGER_LOCK_WAIT", "2s")
	t.Setenv("LEDGER_MAX_GAP_DAYS", "90")
	t.Setenv("LEDGER_JOB_UNIQUE_TTL", "30s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.RecomputeDeferred, cfg.Ledger.RecomputeMode)
	assert.Equal(t, config.LockRedis, cfg.Ledger.LockBackend)
	assert.Equal(t, 2*time.Second, cfg.Ledger.LockWait)
	assert.Equal(t, 90, cfg.Ledger.MaxGapDays)
	assert.Equal(t, 30*time.Second, cfg.Ledger.JobUniqueTTL)
}

func TestLoad_DiferidoRequierePostgres(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEDGER_RECOMPUTE_MODE", "deferred")
	t.Setenv("STORAGE_DRIVER", "memory")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_DRIVER")
}

func TestLoad_DiferidoRequiereLockRedis(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEDGER_RECOMPUTE_MODE", "deferred")
	t.Setenv("LEDGER_LOCK_BACKEND", "local")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_LOCK_BACKEND=redis")
}

func TestLoad_ModoInvalido(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEDGER_RECOMPUTE_MODE", "eventual")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_ZonaHorariaInvalida(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEDGER_BUSINESS_TZ", "Marte/Olimpo")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSN(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "ledger", Password: "p@ss:word", DBName: "joyeria", SSLMode: "disable"}
	assert.Equal(t, "postgres://ledger:p%40ss%3Aword@db:5432/joyeria?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}
