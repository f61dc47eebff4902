package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

var _ ports.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL (REPEATABLE READ por defecto).
type TxRunner struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

// TxOption ajusta las transacciones que abre el runner.
type TxOption func(*TxRunner)

// WithIsolation fija el nivel de aislamiento. El agregador de saldos usa READ COMMITTED: su
// transacción empieza con un advisory lock y las lecturas posteriores deben ver lo que el dueño
// anterior del lock confirmó; en REPEATABLE READ la foto se toma antes de esperar el lock.
func WithIsolation(level pgx.TxIsoLevel) TxOption {
	return func(r *TxRunner) { r.opts.IsoLevel = level }
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, opts ...TxOption) *TxRunner {
	r := &TxRunner{pool: pool, opts: pgx.TxOptions{IsoLevel: pgx.RepeatableRead}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los errores de serialización salen como domain.ErrConcurrentModification.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	tx, err := r.pool.BeginTx(ctx, r.opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapError(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	return nil
}

// NewRepositories agrupa los adaptadores sobre un mismo Querier (pool o tx).
func NewRepositories(q Querier) repository.Repositories {
	return repository.Repositories{
		Movements:     NewMovementRepository(q),
		Balances:      NewDailyBalanceRepository(q),
		Products:      NewProductRepository(q),
		Transfers:     NewTransferRepository(q),
		Verifications: NewVerificationRepository(q),
	}
}
