package bootstrap_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/joyeria-ledger/internal/application/balance"
	"github.com/jhoicas/joyeria-ledger/internal/application/dto"
	"github.com/jhoicas/joyeria-ledger/internal/application/inventory"
	"github.com/jhoicas/joyeria-ledger/internal/bootstrap"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/pkg/config"
	"github.com/jhoicas/joyeria-ledger/pkg/logger"
)

func memoryConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Env: "test", Name: "joyeria-ledger"},
		Storage: config.StorageConfig{Driver: "memory"},
		Ledger: config.LedgerConfig{
			BusinessTZ:     "UTC",
			RecomputeMode:  config.RecomputeSync,
			LockBackend:    config.LockLocal,
			LockWait:       time.Second,
			MaxGapDays:     30,
			MaxRangeDays:   30,
			RangeChunkDays: 7,
			Concurrency:    2,
			RetryAttempts:  1,
		},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Cableado en memoria
// ──────────────────────────────────────────────────────────────────────────────

func TestNew_MemoriaSync(t *testing.T) {
	ctx := context.Background()
	c, err := bootstrap.New(ctx, memoryConfig(), logger.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, c.Close()) })

	assert.Nil(t, c.Pool)
	assert.Nil(t, c.Jobs)
	assert.IsType(t, &balance.SyncScheduler{}, c.Scheduler)

	_, created, err := c.Products.RegisterPlacement(ctx, "joyeria-norte", dto.RegisterProductRequest{
		ID: 1, SKU: "ARE-001", Location: dto.LocationRequest{BranchID: 1, CounterID: 1},
	})
	require.NoError(t, err)
	assert.True(t, created)

	total := decimal.NewFromInt(800)
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	_, err = c.Ledger.Append(ctx, "joyeria-norte", inventory.MovementDraft{
		ProductID: 1, Kind: entity.MovementAddition, Quantity: decimal.NewFromInt(4), TotalValue: &total,
		Location: entity.Location{BranchID: 1, CounterID: 1}, OccurredAt: &at, CreatedBy: "ana",
	})
	require.NoError(t, err)

	require.NoError(t, c.Scheduler.ScheduleRecompute(ctx, "joyeria-norte", 1, entity.NormalizeDate(at), entity.NormalizeDate(at)))
	b, err := c.Aggregator.Get(ctx, "joyeria-norte", 1, entity.NormalizeDate(at))
	require.NoError(t, err)
	assert.True(t, b.ClosingQty.Equal(decimal.NewFromInt(4)))
}

func TestNew_LockRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.Ledger.LockBackend = config.LockRedis
	cfg.Redis = config.RedisConfig{Addr: mr.Addr()}

	c, err := bootstrap.New(context.Background(), cfg, logger.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}

func TestNew_RedisCaidoFalla(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := memoryConfig()
	cfg.Ledger.LockBackend = config.LockRedis
	cfg.Redis = config.RedisConfig{Addr: addr}

	_, err := bootstrap.New(context.Background(), cfg, logger.Nop(), prometheus.NewRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Redis")
}

func TestRedisConnOpt(t *testing.T) {
	opt := bootstrap.RedisConnOpt(config.RedisConfig{Addr: "redis:6379", Password: "x", DB: 2})
	assert.Equal(t, "redis:6379", opt.Addr)
	assert.Equal(t, 2, opt.DB)
}
