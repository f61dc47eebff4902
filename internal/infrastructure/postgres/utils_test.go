package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/joyeria-ledger/internal/domain"
)

func TestMapError(t *testing.T) {
	plain := errors.New("sin conexión")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"índice de traslado abierto", &pgconn.PgError{Code: "23505", ConstraintName: openTransferIndex}, domain.ErrConflictingTransfer},
		{"otro único", &pgconn.PgError{Code: "23505", ConstraintName: "ux_products_sku"}, domain.ErrDuplicate},
		{"serialización", &pgconn.PgError{Code: "40001"}, domain.ErrConcurrentModification},
		{"deadlock envuelto", fmt.Errorf("upsert: %w", &pgconn.PgError{Code: "40P01"}), domain.ErrConcurrentModification},
		{"error ajeno", plain, plain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.in), tt.want)
		})
	}
}
