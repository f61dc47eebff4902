package ports

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback; si no, Commit.
// La capa de aplicación solo conoce este contrato (PostgreSQL o memoria).
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.Repositories) error) error
}

const txRetryBaseBackoff = 20 * time.Millisecond

// RunWithRetry repite la transacción completa, hasta attempts veces más, cuando falla por un conflicto
// transitorio (domain.IsRetryable). Cada intento vuelve a leer el estado confirmado, así el perdedor
// de una carrera termina viendo el resultado del ganador. Agotados los reintentos devuelve el último error.
func RunWithRetry(ctx context.Context, runner TxRunner, attempts int, fn func(repos repository.Repositories) error) error {
	if attempts <= 0 {
		return runner.Run(ctx, fn)
	}
	backoff := retry.WithMaxRetries(uint64(attempts), retry.NewExponential(txRetryBaseBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := runner.Run(ctx, fn)
		if err != nil && domain.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
