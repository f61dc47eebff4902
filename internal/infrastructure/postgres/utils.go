package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/joyeria-ledger/internal/domain"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"

	openTransferIndex = "ux_transfer_requests_open_product"
)

// mapError traduce códigos de PostgreSQL a errores del dominio; el resto pasa sin cambios.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		if pgErr.ConstraintName == openTransferIndex {
			return fmt.Errorf("%w: %s", domain.ErrConflictingTransfer, pgErr.ConstraintName)
		}
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, pgErr.ConstraintName)
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %s", domain.ErrConcurrentModification, pgErr.Message)
	}
	return err
}
