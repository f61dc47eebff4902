package transfer_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/joyeria-ledger/internal/application/balance"
	"github.com/jhoicas/joyeria-ledger/internal/application/inventory"
	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
	"github.com/jhoicas/joyeria-ledger/internal/application/transfer"
	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
	"github.com/jhoicas/joyeria-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/joyeria-ledger/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const tenant = "joyeria-oriente"

var (
	b1c1  = entity.Location{BranchID: 1, CounterID: 1}
	b2c2  = entity.Location{BranchID: 2, CounterID: 2}
	clock = time.Date(2024, 3, 5, 15, 30, 0, 0, time.UTC)
)

type fixture struct {
	store    *memory.Store
	ledger   *inventory.MovementLedger
	agg      *balance.Aggregator
	workflow *transfer.Workflow
}

type failingScheduler struct{ calls int }

func (s *failingScheduler) ScheduleRecompute(context.Context, string, int64, time.Time, time.Time) error {
	s.calls++
	return errors.New("cola no disponible")
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	value := decimal.NewFromInt(2_500_000)
	tag := "RFID-5"
	require.NoError(t, repos.Products.Create(context.Background(), &entity.Product{
		ID: 5, TenantID: tenant, SKU: "CAD-005", TagLabel: &tag, Active: true, UnitValue: &value, Location: b1c1,
	}))
	require.NoError(t, repos.Products.Create(context.Background(), &entity.Product{
		ID: 6, TenantID: tenant, SKU: "CAD-006", Active: false, Location: b1c1,
	}))

	ledger := inventory.NewMovementLedger(repos.Products, repos.Movements, store, time.UTC, nil, zerolog.Nop())
	agg := balance.NewAggregator(store, repos.Balances, repos.Movements, repos.Products,
		lock.NewLocalLocker(time.Second), balance.Options{}, nil, zerolog.Nop())
	wf := transfer.NewWorkflow(store, repos.Transfers, ledger, balance.NewSyncScheduler(agg), nil, zerolog.Nop())
	wf.SetClock(func() time.Time { return clock })
	return &fixture{store: store, ledger: ledger, agg: agg, workflow: wf}
}

func (f *fixture) create(t *testing.T) *entity.TransferRequest {
	t.Helper()
	tr, err := f.workflow.Create(context.Background(), tenant, transfer.CreateInput{
		ProductID: 5, Source: b1c1, Destination: b2c2, Reason: "reposición de vitrina", Actor: "ana",
	})
	require.NoError(t, err)
	return tr
}

func (f *fixture) events(t *testing.T) []*entity.MovementEvent {
	t.Helper()
	all, err := f.ledger.List(context.Background(), tenant, entity.MovementFilter{})
	require.NoError(t, err)
	return all
}

var actor = transfer.ActionInput{Actor: "supervisor"}

// ──────────────────────────────────────────────────────────────────────────────
// Create
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_Pending(t *testing.T) {
	f := newFixture(t)

	tr := f.create(t)

	assert.Equal(t, entity.TransferPending, tr.Status)
	assert.Equal(t, entity.TransferBranch, tr.Type, "tipo inferido por cambio de sucursal")
	assert.Regexp(t, regexp.MustCompile(`^TRF-20240305-[0-9A-F]{8}$`), tr.Number)
	assert.Equal(t, 1, tr.Version)
	require.NotNil(t, tr.TagLabel)
	assert.Equal(t, "RFID-5", *tr.TagLabel)
	assert.Empty(t, f.events(t), "crear no escribe en el libro")
}

func TestCreate_UnSoloTrasladoAbierto(t *testing.T) {
	f := newFixture(t)
	f.create(t)

	_, err := f.workflow.Create(context.Background(), tenant, transfer.CreateInput{
		ProductID: 5, Source: b1c1, Destination: entity.Location{BranchID: 3, CounterID: 1}, Actor: "ana",
	})

	require.ErrorIs(t, err, domain.ErrConflictingTransfer)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestCreate_CrearConcurrenteSoloUnoGana(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, conflicts int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.workflow.Create(context.Background(), tenant, transfer.CreateInput{
				ProductID: 5, Source: b1c1, Destination: b2c2, Actor: "ana",
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, domain.ErrConflictingTransfer) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, conflicts)
}

func TestCreate_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   transfer.CreateInput
		want error
	}{
		{"origen distinto al conocido", transfer.CreateInput{ProductID: 5, Source: b2c2, Destination: b1c1, Actor: "ana"}, domain.ErrLocationMismatch},
		{"misma ubicación", transfer.CreateInput{ProductID: 5, Source: b1c1, Destination: b1c1, Actor: "ana"}, domain.ErrSameLocation},
		{"producto desconocido", transfer.CreateInput{ProductID: 77, Source: b1c1, Destination: b2c2, Actor: "ana"}, domain.ErrUnknownProduct},
		{"producto inactivo", transfer.CreateInput{ProductID: 6, Source: b1c1, Destination: b2c2, Actor: "ana"}, domain.ErrInactiveProduct},
		{"ubicación mal formada", transfer.CreateInput{ProductID: 5, Source: b1c1, Destination: entity.Location{BranchID: 2}, Actor: "ana"}, domain.ErrInvalidLocation},
		{"tipo declarado incoherente", transfer.CreateInput{ProductID: 5, Type: entity.TransferBox, Source: b1c1, Destination: b2c2, Actor: "ana"}, domain.ErrInvalidInput},
		{"sin actor", transfer.CreateInput{ProductID: 5, Source: b1c1, Destination: b2c2}, domain.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.workflow.Create(ctx, tenant, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreate_TipoMixtoDeclarado(t *testing.T) {
	f := newFixture(t)

	tr, err := f.workflow.Create(context.Background(), tenant, transfer.CreateInput{
		ProductID: 5, Type: entity.TransferMixed, Source: b1c1, Destination: b2c2, Actor: "ana",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.TransferMixed, tr.Type)
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios D y E
// ──────────────────────────────────────────────────────────────────────────────

func TestEscenarioD_CompletarEmiteDosMovimientos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.create(t)

	approved, err := f.workflow.Approve(ctx, tenant, tr.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferInTransit, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	assert.Empty(t, f.events(t), "aprobar no escribe en el libro")

	done, err := f.workflow.Complete(ctx, tenant, tr.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCompleted, done.Status)
	assert.Equal(t, 3, done.Version)

	events := f.events(t)
	require.Len(t, events, 2)
	out, in := events[0], events[1]
	assert.Equal(t, entity.MovementTransferOut, out.Kind)
	assert.Equal(t, entity.MovementTransferIn, in.Kind)
	assert.True(t, out.Location.Equal(b1c1))
	assert.True(t, in.Location.Equal(b2c2))
	for _, e := range events {
		assert.Equal(t, tr.Number, e.ReferenceNumber)
		assert.Equal(t, entity.ReferenceTransfer, e.ReferenceKind)
		assert.True(t, e.Quantity.Equal(decimal.NewFromInt(1)))
	}

	// El recálculo programado refleja ambos lados.
	day := entity.NormalizeDate(clock)
	b, err := f.agg.Get(ctx, tenant, 5, day)
	require.NoError(t, err)
	assert.True(t, b.TransferOutQty.Equal(decimal.NewFromInt(1)))
	assert.True(t, b.TransferInQty.Equal(decimal.NewFromInt(1)))
	assert.True(t, b.Reconciles())

	flows, err := f.agg.LocationBreakdown(ctx, tenant, 5, day)
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.True(t, flows[0].OutQty.Equal(decimal.NewFromInt(1)))
	assert.True(t, flows[1].InQty.Equal(decimal.NewFromInt(1)))

	// La ubicación conocida pasa a ser el destino.
	p, err := f.store.Repositories().Products.GetByID(ctx, tenant, 5)
	require.NoError(t, err)
	assert.True(t, p.Location.Equal(b2c2))

	// Y un traslado de vuelta parte desde allí.
	_, err = f.workflow.Create(ctx, tenant, transfer.CreateInput{ProductID: 5, Source: b2c2, Destination: b1c1, Actor: "ana"})
	assert.NoError(t, err)
}

func TestEscenarioE_RechazoSinEfectoYLiberaProducto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.create(t)

	_, err := f.workflow.Reject(ctx, tenant, tr.ID, transfer.ActionInput{Actor: "supervisor"})
	require.ErrorIs(t, err, domain.ErrMissingReason)

	rejected, err := f.workflow.Reject(ctx, tenant, tr.ID, transfer.ActionInput{Actor: "supervisor", Reason: "pieza reservada"})
	require.NoError(t, err)
	assert.Equal(t, entity.TransferRejected, rejected.Status)
	assert.Equal(t, "pieza reservada", rejected.RejectionReason)
	assert.Empty(t, f.events(t))

	again := f.create(t)
	assert.Equal(t, entity.TransferPending, again.Status)
}

func TestCancel_DesdePendingEInTransit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tr := f.create(t)
	cancelled, err := f.workflow.Cancel(ctx, tenant, tr.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCancelled, cancelled.Status)

	tr = f.create(t)
	_, err = f.workflow.Approve(ctx, tenant, tr.ID, actor)
	require.NoError(t, err)
	cancelled, err = f.workflow.Cancel(ctx, tenant, tr.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCancelled, cancelled.Status)

	assert.Empty(t, f.events(t))
}

// ──────────────────────────────────────────────────────────────────────────────
// Máquina de estados y concurrencia
// ──────────────────────────────────────────────────────────────────────────────

func TestTransiciones_DesdeEstadoIncorrecto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.create(t)

	_, err := f.workflow.Complete(ctx, tenant, tr.ID, actor)
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition, "solo se completa desde InTransit")

	_, err = f.workflow.Approve(ctx, tenant, tr.ID, actor)
	require.NoError(t, err)
	_, err = f.workflow.Approve(ctx, tenant, tr.ID, actor)
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	_, err = f.workflow.Complete(ctx, tenant, tr.ID, actor)
	require.NoError(t, err)
	_, err = f.workflow.Complete(ctx, tenant, tr.ID, actor)
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	_, err = f.workflow.Cancel(ctx, tenant, tr.ID, actor)
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	assert.Len(t, f.events(t), 2, "completar dos veces no duplica movimientos")
}

func TestComplete_ConcurrenteSoloUnoGana(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.create(t)
	_, err := f.workflow.Approve(ctx, tenant, tr.ID, actor)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var wins, losers int
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.workflow.Complete(ctx, tenant, tr.ID, actor)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrInvalidStateTransition):
				losers++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 9, losers)
	assert.Len(t, f.events(t), 2)
}

// serializationRunner reproduce al perdedor de una carrera en PostgreSQL: antes de su intento otro
// actor confirma la transición y el UPDATE falla por serialización. Con conflicts < 0 falla siempre.
type serializationRunner struct {
	ports.TxRunner
	conflicts int
	rival     func()
	runs      int
}

func (r *serializationRunner) Run(ctx context.Context, fn func(repository.Repositories) error) error {
	r.runs++
	if r.conflicts < 0 || r.runs <= r.conflicts {
		if r.rival != nil && r.runs == 1 {
			r.rival()
		}
		return fmt.Errorf("actualizar traslado: %w", domain.ErrConcurrentModification)
	}
	return r.TxRunner.Run(ctx, fn)
}

func TestComplete_PerdedorPorSerializacionRecibeTransicionInvalida(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.create(t)
	_, err := f.workflow.Approve(ctx, tenant, tr.ID, actor)
	require.NoError(t, err)

	runner := &serializationRunner{TxRunner: f.store, conflicts: 1, rival: func() {
		_, err := f.workflow.Complete(ctx, tenant, tr.ID, actor)
		require.NoError(t, err)
	}}
	loser := transfer.NewWorkflow(runner, f.store.Repositories().Transfers, f.ledger, nil, nil, zerolog.Nop())

	_, err = loser.Complete(ctx, tenant, tr.ID, actor)

	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	assert.False(t, errors.Is(err, domain.ErrConcurrentModification))
	assert.Equal(t, 2, runner.runs, "un reintento relee el estado confirmado")
	assert.Len(t, f.events(t), 2, "solo el ganador escribe en el libro")
}

func TestTransicion_ConflictoPersistenteSeReintentaAcotado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.create(t)

	runner := &serializationRunner{TxRunner: f.store, conflicts: -1}
	wf := transfer.NewWorkflow(runner, f.store.Repositories().Transfers, f.ledger, nil, nil, zerolog.Nop())

	_, err := wf.Approve(ctx, tenant, tr.ID, actor)

	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.Equal(t, 4, runner.runs, "un intento más tres reintentos")
	got, err := f.workflow.Get(ctx, tenant, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferPending, got.Status)
}

func TestComplete_FallaDelRecalculoNoDeshaceLaCompletacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sched := &failingScheduler{}
	repos := f.store.Repositories()
	wf := transfer.NewWorkflow(f.store, repos.Transfers, f.ledger, sched, nil, zerolog.Nop())

	tr := f.create(t)
	_, err := wf.Approve(ctx, tenant, tr.ID, actor)
	require.NoError(t, err)
	done, err := wf.Complete(ctx, tenant, tr.ID, actor)

	require.NoError(t, err)
	assert.Equal(t, entity.TransferCompleted, done.Status)
	assert.Equal(t, 1, sched.calls)
	assert.Len(t, f.events(t), 2)
}

func TestGetYList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.create(t)

	got, err := f.workflow.Get(ctx, tenant, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.Number, got.Number)

	_, err = f.workflow.Get(ctx, tenant, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.workflow.Get(ctx, "otro-tenant", tr.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pending := entity.TransferPending
	list, err := f.workflow.List(ctx, tenant, entity.TransferFilter{Status: &pending})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
