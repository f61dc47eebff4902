package balance_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/joyeria-ledger/internal/application/balance"
	"github.com/jhoicas/joyeria-ledger/internal/application/inventory"
	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/joyeria-ledger/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const tenant = "joyeria-centro"

var (
	jan16 = time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	jan17 = time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)
	jan18 = time.Date(2024, 1, 18, 0, 0, 0, 0, time.UTC)
	b1c1  = entity.Location{BranchID: 1, CounterID: 1}
)

type fixture struct {
	store  *memory.Store
	ledger *inventory.MovementLedger
	agg    *balance.Aggregator
}

func newFixture(t *testing.T, opts balance.Options) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, repos.Products.Create(context.Background(), &entity.Product{
			ID: id, TenantID: tenant, SKU: fmt.Sprintf("SKU-%d", id), Active: true, Location: b1c1,
		}))
	}
	ledger := inventory.NewMovementLedger(repos.Products, repos.Movements, store, time.UTC, nil, zerolog.Nop())
	agg := balance.NewAggregator(store, repos.Balances, repos.Movements, repos.Products,
		lock.NewLocalLocker(5*time.Second), opts, nil, zerolog.Nop())
	return &fixture{store: store, ledger: ledger, agg: agg}
}

func (f *fixture) append(t *testing.T, productID int64, kind entity.MovementKind, qty, unit string, at time.Time) {
	t.Helper()
	u := decimal.RequireFromString(unit)
	_, err := f.ledger.Append(context.Background(), tenant, inventory.MovementDraft{
		ProductID:  productID,
		Kind:       kind,
		Quantity:   decimal.RequireFromString(qty),
		UnitValue:  &u,
		Location:   b1c1,
		OccurredAt: &at,
	})
	require.NoError(t, err)
}

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios de referencia
// ──────────────────────────────────────────────────────────────────────────────

func TestRecompute_EscenariosAByC(t *testing.T) {
	f := newFixture(t, balance.Options{})
	ctx := context.Background()

	// A: adición desde cero.
	f.append(t, 1, entity.MovementAddition, "20", "15000", jan16.Add(10*time.Hour))
	a, err := f.agg.Recompute(ctx, tenant, 1, jan16)
	require.NoError(t, err)
	assert.True(t, a.OpeningQty.IsZero())
	assert.True(t, a.AddedQty.Equal(qty("20")))
	assert.True(t, a.SoldQty.IsZero())
	assert.True(t, a.ClosingQty.Equal(qty("20")))
	assert.True(t, a.ClosingValue.Equal(qty("300000")), "closingValue = %s", a.ClosingValue)

	// B: venta al día siguiente.
	f.append(t, 1, entity.MovementSale, "10", "15000", jan17.Add(15*time.Hour))
	b, err := f.agg.Recompute(ctx, tenant, 1, jan17)
	require.NoError(t, err)
	assert.True(t, b.OpeningQty.Equal(qty("20")))
	assert.True(t, b.SoldQty.Equal(qty("10")))
	assert.True(t, b.ClosingQty.Equal(qty("10")))

	// C: día sin eventos arrastra el cierre.
	c, err := f.agg.Recompute(ctx, tenant, 1, jan18)
	require.NoError(t, err)
	assert.True(t, c.OpeningQty.Equal(qty("10")))
	assert.True(t, c.ClosingQty.Equal(qty("10")))
	assert.Zero(t, c.EventCount)
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades
// ──────────────────────────────────────────────────────────────────────────────

func TestRecompute_Idempotente(t *testing.T) {
	f := newFixture(t, balance.Options{})
	ctx := context.Background()
	f.append(t, 1, entity.MovementAddition, "5", "100", jan16.Add(time.Hour))
	f.append(t, 1, entity.MovementSale, "2", "100", jan16.Add(2*time.Hour))

	first, err := f.agg.Recompute(ctx, tenant, 1, jan16)
	require.NoError(t, err)
	second, err := f.agg.Recompute(ctx, tenant, 1, jan16)
	require.NoError(t, err)

	assert.Equal(t, first, second, "recalcular sin eventos nuevos debe dar la misma fila")
	stored, err := f.agg.Get(ctx, tenant, 1, jan16)
	require.NoError(t, err)
	assert.True(t, stored.ClosingQty.Equal(qty("3")), "el upsert sobrescribe, no acumula")
}

func TestRecompute_RellenaDiasSinCalcular(t *testing.T) {
	f := newFixture(t, balance.Options{})
	ctx := context.Background()
	f.append(t, 1, entity.MovementAddition, "20", "15000", jan16.Add(time.Hour))
	f.append(t, 1, entity.MovementSale, "10", "15000", jan17.Add(time.Hour))

	jan20 := jan16.AddDate(0, 0, 4)
	got, err := f.agg.Recompute(ctx, tenant, 1, jan20)
	require.NoError(t, err)
	assert.True(t, got.OpeningQty.Equal(qty("10")), "la apertura no debe perder la actividad previa no calculada")

	rows, err := f.agg.History(ctx, tenant, 1, jan16, jan20)
	require.NoError(t, err)
	require.Len(t, rows, 5, "la cadena debe quedar densa de 16 a 20")
	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i].OpeningQty.Equal(rows[i-1].ClosingQty), "opening(%s) = closing(día anterior)", rows[i].BusinessDate.Format(entity.DateLayout))
		assert.True(t, rows[i].Reconciles())
	}
}

func TestRecompute_HuecoExcedeMaximo(t *testing.T) {
	f := newFixture(t, balance.Options{MaxGapDays: 2})
	f.append(t, 1, entity.MovementAddition, "1", "10", jan16)

	_, err := f.agg.Recompute(context.Background(), tenant, 1, jan16.AddDate(0, 0, 10))

	require.ErrorIs(t, err, domain.ErrIntegrity)
	assert.Equal(t, domain.KindIntegrity, domain.KindOf(err))
}

func TestRecompute_DiaAnteriorReencadenaLosSiguientes(t *testing.T) {
	f := newFixture(t, balance.Options{RangeChunkDays: 1})
	ctx := context.Background()
	f.append(t, 1, entity.MovementAddition, "20", "100", jan16.Add(time.Hour))
	_, err := f.agg.RecomputeRange(ctx, tenant, 1, jan16, jan18)
	require.NoError(t, err)

	// Venta registrada tarde sobre un día ya calculado.
	f.append(t, 1, entity.MovementSale, "5", "100", jan16.Add(3*time.Hour))
	d16, err := f.agg.Recompute(ctx, tenant, 1, jan16)
	require.NoError(t, err)
	assert.True(t, d16.ClosingQty.Equal(qty("15")))

	rows, err := f.agg.History(ctx, tenant, 1, jan16, jan18)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i].OpeningQty.Equal(rows[i-1].ClosingQty),
			"%s abre con %s y el día anterior cierra con %s", rows[i].BusinessDate.Format(entity.DateLayout),
			rows[i].OpeningQty, rows[i-1].ClosingQty)
		assert.True(t, rows[i].OpeningValue.Equal(rows[i-1].ClosingValue))
	}
	assert.True(t, rows[2].ClosingQty.Equal(qty("15")))
	assert.True(t, rows[2].ClosingValue.Equal(qty("1500")))
}

func TestRecomputeRange_ReencadenaFilasPosteriores(t *testing.T) {
	f := newFixture(t, balance.Options{})
	ctx := context.Background()
	f.append(t, 1, entity.MovementAddition, "4", "10", jan16)
	_, err := f.agg.RecomputeRange(ctx, tenant, 1, jan16, jan18)
	require.NoError(t, err)

	f.append(t, 1, entity.MovementAddition, "1", "10", jan16.Add(time.Hour))
	rows, err := f.agg.RecomputeRange(ctx, tenant, 1, jan16, jan16)
	require.NoError(t, err)
	require.Len(t, rows, 1, "el resultado solo trae el rango pedido")

	d18, err := f.agg.Get(ctx, tenant, 1, jan18)
	require.NoError(t, err)
	assert.True(t, d18.OpeningQty.Equal(qty("5")))
	assert.True(t, d18.ClosingQty.Equal(qty("5")))
}

func TestRecompute_FilasPosterioresExcedenMaximo(t *testing.T) {
	f := newFixture(t, balance.Options{MaxRangeDays: 2})
	ctx := context.Background()
	f.append(t, 1, entity.MovementAddition, "4", "10", jan16)
	_, err := f.agg.RecomputeRange(ctx, tenant, 1, jan16, jan17)
	require.NoError(t, err)
	_, err = f.agg.RecomputeRange(ctx, tenant, 1, jan18, jan18.AddDate(0, 0, 1))
	require.NoError(t, err)

	_, err = f.agg.Recompute(ctx, tenant, 1, jan16)
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestRecompute_ProductoSinHistoriaEsCero(t *testing.T) {
	f := newFixture(t, balance.Options{})

	got, err := f.agg.Recompute(context.Background(), tenant, 2, jan16)
	require.NoError(t, err)
	assert.True(t, got.OpeningQty.IsZero())
	assert.True(t, got.ClosingQty.IsZero())
}

func TestRecompute_ConcurrenteSobreElMismoProducto(t *testing.T) {
	f := newFixture(t, balance.Options{})
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		f.append(t, 1, entity.MovementAddition, "1", "100", jan16.Add(time.Duration(i)*time.Minute))
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			day := jan16.AddDate(0, 0, i%3)
			_, err := f.agg.Recompute(ctx, tenant, 1, day)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rows, err := f.agg.History(ctx, tenant, 1, jan16, jan18)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.True(t, r.ClosingQty.Equal(qty("10")), "día %d cierra en 10", i)
		assert.True(t, r.Reconciles())
	}
}

func TestGet_NuncaCalculadoDevuelveFilaEnCero(t *testing.T) {
	f := newFixture(t, balance.Options{})
	f.append(t, 1, entity.MovementAddition, "3", "10", jan16)

	got, err := f.agg.Get(context.Background(), tenant, 1, jan16)
	require.NoError(t, err)
	assert.True(t, got.ClosingQty.IsZero(), "la lectura no recalcula")
	assert.Equal(t, jan16, got.BusinessDate)
}

// ──────────────────────────────────────────────────────────────────────────────
// Rangos y recálculo global
// ──────────────────────────────────────────────────────────────────────────────

func TestRecomputeRange_AscendentePorTramos(t *testing.T) {
	f := newFixture(t, balance.Options{RangeChunkDays: 2})
	ctx := context.Background()
	f.append(t, 1, entity.MovementAddition, "20", "15000", jan16.Add(time.Hour))
	f.append(t, 1, entity.MovementSale, "10", "15000", jan17.Add(time.Hour))
	f.append(t, 1, entity.MovementReturn, "1", "15000", jan16.AddDate(0, 0, 3))

	rows, err := f.agg.RecomputeRange(ctx, tenant, 1, jan16, jan16.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.Len(t, rows, 5)

	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i].BusinessDate.After(rows[i-1].BusinessDate))
		assert.True(t, rows[i].OpeningQty.Equal(rows[i-1].ClosingQty))
	}
	assert.True(t, rows[4].ClosingQty.Equal(qty("11")))
}

func TestRecomputeRange_Backfill(t *testing.T) {
	f := newFixture(t, balance.Options{})
	ctx := context.Background()
	f.append(t, 1, entity.MovementAddition, "5", "10", jan17)
	_, err := f.agg.RecomputeRange(ctx, tenant, 1, jan16, jan18)
	require.NoError(t, err)

	// Evento con fecha pasada: el rango lo incorpora y corrige los días siguientes.
	f.append(t, 1, entity.MovementAddition, "2", "10", jan16.Add(time.Hour))
	rows, err := f.agg.RecomputeRange(ctx, tenant, 1, jan16, jan18)
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.True(t, rows[0].ClosingQty.Equal(qty("2")))
	assert.True(t, rows[1].OpeningQty.Equal(qty("2")))
	assert.True(t, rows[2].ClosingQty.Equal(qty("7")))
}

func TestRecomputeRange_Validaciones(t *testing.T) {
	f := newFixture(t, balance.Options{MaxRangeDays: 3})
	ctx := context.Background()

	_, err := f.agg.RecomputeRange(ctx, tenant, 1, jan18, jan16)
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	_, err = f.agg.RecomputeRange(ctx, tenant, 1, jan16, jan16.AddDate(0, 0, 5))
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
	assert.True(t, domain.IsValidation(err))
}

func TestRecomputeRange_CancelacionNoDejaDiasAMedias(t *testing.T) {
	f := newFixture(t, balance.Options{})
	f.append(t, 1, entity.MovementAddition, "1", "10", jan16)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rows, err := f.agg.RecomputeRange(ctx, tenant, 1, jan16, jan18)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rows)
	stored, err := f.agg.History(context.Background(), tenant, 1, jan16, jan18)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRecomputeAll_ParaleloEntreProductos(t *testing.T) {
	f := newFixture(t, balance.Options{Concurrency: 2, MaxGapDays: 5})
	ctx := context.Background()
	f.append(t, 1, entity.MovementAddition, "4", "10", jan16)
	f.append(t, 2, entity.MovementAddition, "6", "10", jan17)
	// El producto 3 tiene historia demasiado antigua para rellenar: falla sin frenar a los demás.
	f.append(t, 3, entity.MovementAddition, "1", "10", jan16.AddDate(0, 0, -30))

	summary, err := f.agg.RecomputeAll(ctx, tenant, nil, jan16, jan18)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIntegrity)
	assert.Equal(t, 3, summary.Products)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, []int64{3}, summary.Failed)

	b2, err := f.agg.Get(ctx, tenant, 2, jan18)
	require.NoError(t, err)
	assert.True(t, b2.ClosingQty.Equal(qty("6")))
}

func TestLocationBreakdown(t *testing.T) {
	f := newFixture(t, balance.Options{})
	f.append(t, 1, entity.MovementAddition, "3", "10", jan16)
	f.append(t, 1, entity.MovementSale, "1", "10", jan16.Add(time.Hour))

	flows, err := f.agg.LocationBreakdown(context.Background(), tenant, 1, jan16)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.True(t, flows[0].InQty.Equal(qty("3")))
	assert.True(t, flows[0].OutQty.Equal(qty("1")))
}

func TestSyncScheduler(t *testing.T) {
	f := newFixture(t, balance.Options{})
	ctx := context.Background()
	f.append(t, 1, entity.MovementAddition, "3", "10", jan16)
	s := balance.NewSyncScheduler(f.agg)

	require.NoError(t, s.ScheduleRecompute(ctx, tenant, 1, jan16, jan16))
	require.NoError(t, s.ScheduleRecompute(ctx, tenant, 1, jan16, jan18))

	got, err := f.agg.Get(ctx, tenant, 1, jan18)
	require.NoError(t, err)
	assert.True(t, got.ClosingQty.Equal(qty("3")))
}
