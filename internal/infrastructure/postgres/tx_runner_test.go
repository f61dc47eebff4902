package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/joyeria-ledger/internal/application/balance"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/joyeria-ledger/pkg/config"
)

// ─────────────────────────────────────────────────────────────────────────────
// Opciones
// ─────────────────────────────────────────────────────────────────────────────

func TestNewTxRunner_Aislamiento(t *testing.T) {
	assert.Equal(t, pgx.RepeatableRead, NewTxRunner(nil).opts.IsoLevel)
	assert.Equal(t, pgx.ReadCommitted, NewTxRunner(nil, WithIsolation(pgx.ReadCommitted)).opts.IsoLevel)
}

// ─────────────────────────────────────────────────────────────────────────────
// Contra PostgreSQL (LEDGER_TEST_DATABASE_URL)
// ─────────────────────────────────────────────────────────────────────────────

func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("LEDGER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL no está definida")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, config.DBConfig{DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool, "up"))
	return pool
}

// Otro proceso tiene el lock del producto y reescribe el día 17 mientras el recálculo del 18 espera.
// El 18 debe abrir con el cierre que ese proceso confirmó.
func TestAggregator_AperturaLeidaDespuesDelLock(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	tenant := "joyeria-" + uuid.NewString()[:8]
	const productID = int64(501)
	day17 := time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)
	day18 := entity.NextDay(day17)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM daily_balances WHERE tenant_id = $1`, tenant)
	})

	stale := entity.ZeroBalance(tenant, productID, day17)
	stale.AddedQty, stale.ClosingQty = decimal.NewFromInt(20), decimal.NewFromInt(20)
	stale.AddedValue, stale.ClosingValue = decimal.NewFromInt(2000), decimal.NewFromInt(2000)
	require.NoError(t, NewDailyBalanceRepository(pool).Upsert(ctx, stale))

	agg := balance.NewAggregator(
		NewTxRunner(pool, WithIsolation(pgx.ReadCommitted)),
		NewDailyBalanceRepository(pool), NewMovementRepository(pool), NewProductRepository(pool),
		lock.NewLocalLocker(5*time.Second), balance.Options{RetryAttempts: 1}, nil, zerolog.Nop(),
	)

	other, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = other.Rollback(ctx) }()
	require.NoError(t, NewDailyBalanceRepository(other).LockProduct(ctx, tenant, productID))

	type result struct {
		b   *entity.DailyBalance
		err error
	}
	done := make(chan result, 1)
	go func() {
		b, err := agg.Recompute(ctx, tenant, productID, day18)
		done <- result{b, err}
	}()

	require.Eventually(t, func() bool {
		var waiting int
		err := pool.QueryRow(ctx, `SELECT count(*) FROM pg_locks WHERE locktype = 'advisory' AND NOT granted`).Scan(&waiting)
		return err == nil && waiting > 0
	}, 5*time.Second, 20*time.Millisecond, "el recálculo debe quedar esperando el lock")

	fresh := entity.ZeroBalance(tenant, productID, day17)
	fresh.AddedQty, fresh.ClosingQty = decimal.NewFromInt(10), decimal.NewFromInt(10)
	fresh.AddedValue, fresh.ClosingValue = decimal.NewFromInt(1000), decimal.NewFromInt(1000)
	require.NoError(t, NewDailyBalanceRepository(other).Upsert(ctx, fresh))
	require.NoError(t, other.Commit(ctx))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.True(t, r.b.OpeningQty.Equal(decimal.NewFromInt(10)), "apertura %s", r.b.OpeningQty)
		assert.True(t, r.b.OpeningValue.Equal(decimal.NewFromInt(1000)), "apertura %s", r.b.OpeningValue)
	case <-time.After(10 * time.Second):
		t.Fatal("el recálculo no terminó")
	}
}
