package verification_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
	"github.com/jhoicas/joyeria-ledger/internal/application/verification"
	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
	"github.com/jhoicas/joyeria-ledger/internal/infrastructure/memory"
)

const tenant = "joyeria-plaza"

func strPtr(s string) *string { return &s }

func newUseCase(t *testing.T) (*verification.UseCase, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	ring := int64(10)
	products := []*entity.Product{
		{ID: 1, TenantID: tenant, SKU: "A1", TagLabel: strPtr("T-1"), CategoryID: &ring, Active: true, Location: entity.Location{BranchID: 1, CounterID: 1}},
		{ID: 2, TenantID: tenant, SKU: "A2", TagLabel: strPtr("T-2"), CategoryID: &ring, Active: true, Location: entity.Location{BranchID: 1, CounterID: 1}},
		{ID: 3, TenantID: tenant, SKU: "A3", Active: true, Location: entity.Location{BranchID: 1, CounterID: 2}},
		{ID: 4, TenantID: tenant, SKU: "A4", TagLabel: strPtr("T-4"), Active: false, Location: entity.Location{BranchID: 1, CounterID: 1}},
		{ID: 5, TenantID: tenant, SKU: "A5", TagLabel: strPtr("T-5"), Active: true, Location: entity.Location{BranchID: 2, CounterID: 1}},
	}
	for _, p := range products {
		require.NoError(t, repos.Products.Create(ctx, p))
	}
	return verification.NewUseCase(store, repos.Verifications, zerolog.Nop()), store
}

func TestSesion_CicloCompleto(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	s, err := uc.Start(ctx, tenant, entity.ProductScope{BranchID: 1}, "auditor")
	require.NoError(t, err)
	assert.Equal(t, entity.VerificationOpen, s.Status)

	fresh, err := uc.Scan(ctx, tenant, s.ID, "T-1")
	require.NoError(t, err)
	assert.True(t, fresh)
	fresh, err = uc.Scan(ctx, tenant, s.ID, "T-1")
	require.NoError(t, err)
	assert.False(t, fresh, "la segunda lectura de la misma etiqueta no cuenta")
	_, err = uc.Scan(ctx, tenant, s.ID, "T-5")
	require.NoError(t, err)

	closed, err := uc.Close(ctx, tenant, s.ID, "auditor")
	require.NoError(t, err)
	require.NotNil(t, closed.Result)

	r := closed.Result
	assert.Equal(t, 3, r.Expected, "activos en la sucursal 1")
	assert.Equal(t, 2, r.Scanned)
	assert.Equal(t, []string{"T-1"}, r.Matched)
	assert.Equal(t, []string{"T-2"}, r.Missing)
	assert.Equal(t, []string{"T-5"}, r.Unexpected)
	assert.Equal(t, 1, r.Untagged)

	_, err = uc.Scan(ctx, tenant, s.ID, "T-2")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	_, err = uc.Close(ctx, tenant, s.ID, "auditor")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

// closingRunner cierra la sesión justo antes de la primera transacción que recibe y la hace fallar
// por serialización, como le ocurre en PostgreSQL a la lectura que compite con el cierre.
type closingRunner struct {
	ports.TxRunner
	closeFirst func()
	runs       int
}

func (r *closingRunner) Run(ctx context.Context, fn func(repository.Repositories) error) error {
	r.runs++
	if r.runs == 1 {
		r.closeFirst()
		return fmt.Errorf("bloquear sesión: %w", domain.ErrConcurrentModification)
	}
	return r.TxRunner.Run(ctx, fn)
}

func TestScan_CierreConcurrenteRechazaLaLectura(t *testing.T) {
	uc, store := newUseCase(t)
	ctx := context.Background()
	s, err := uc.Start(ctx, tenant, entity.ProductScope{BranchID: 1}, "auditor")
	require.NoError(t, err)

	runner := &closingRunner{TxRunner: store, closeFirst: func() {
		_, err := uc.Close(ctx, tenant, s.ID, "auditor")
		require.NoError(t, err)
	}}
	scanner := verification.NewUseCase(runner, store.Repositories().Verifications, zerolog.Nop())

	added, err := scanner.Scan(ctx, tenant, s.ID, "T-1")

	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	assert.False(t, added)
	assert.Equal(t, 2, runner.runs)
	scans, err := store.Repositories().Verifications.ListScans(ctx, tenant, s.ID)
	require.NoError(t, err)
	assert.Empty(t, scans, "ninguna lectura entra después del cierre")
	closed, err := uc.Get(ctx, tenant, s.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"T-1", "T-2"}, closed.Result.Missing)
}

func TestSesion_AlcancePorVitrinaYCategoria(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()
	counter, ring := int64(1), int64(10)

	s, err := uc.Start(ctx, tenant, entity.ProductScope{BranchID: 1, CounterID: &counter, CategoryID: &ring}, "auditor")
	require.NoError(t, err)
	closed, err := uc.Close(ctx, tenant, s.ID, "auditor")
	require.NoError(t, err)

	assert.Equal(t, 2, closed.Result.Expected)
	assert.Equal(t, []string{"T-1", "T-2"}, closed.Result.Missing)
}

func TestSesion_Errores(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	_, err := uc.Start(ctx, tenant, entity.ProductScope{}, "auditor")
	assert.ErrorIs(t, err, domain.ErrInvalidLocation)

	_, err = uc.Scan(ctx, tenant, 42, "T-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	s, err := uc.Start(ctx, tenant, entity.ProductScope{BranchID: 1}, "auditor")
	require.NoError(t, err)
	_, err = uc.Scan(ctx, tenant, s.ID, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.Get(ctx, "otro", s.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
