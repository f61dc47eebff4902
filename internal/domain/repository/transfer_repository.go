package repository

import (
	"context"

	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
)

// TransferRepository puerto de solicitudes de traslado.
type TransferRepository interface {
	// Create completa el ID. Si el producto ya tiene un traslado abierto devuelve domain.ErrConflictingTransfer.
	Create(ctx context.Context, transfer *entity.TransferRequest) error
	GetByID(ctx context.Context, tenantID string, id int64) (*entity.TransferRequest, error)
	FindOpenByProduct(ctx context.Context, tenantID string, productID int64) (*entity.TransferRequest, error)
	List(ctx context.Context, tenantID string, filter entity.TransferFilter) ([]*entity.TransferRequest, error)
	// Transition guarda transfer solo si la fila sigue en (from, fromVersion); si otro actor ganó la
	// carrera devuelve domain.ErrInvalidStateTransition.
	Transition(ctx context.Context, transfer *entity.TransferRequest, from entity.TransferStatus, fromVersion int) error
}
