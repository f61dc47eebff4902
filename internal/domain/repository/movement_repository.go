package repository

import (
	"context"
	"time"

	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
)

// MovementRepository puerto del libro de movimientos. Solo agrega: no hay Update ni Delete.
type MovementRepository interface {
	// Append persiste el evento y completa ID y RecordedAt.
	Append(ctx context.Context, event *entity.MovementEvent) error
	List(ctx context.Context, tenantID string, filter entity.MovementFilter) ([]*entity.MovementEvent, error)
	// ListByProductDate eventos de un producto en una fecha de negocio, ordenados por (occurredAt, id).
	ListByProductDate(ctx context.Context, tenantID string, productID int64, date time.Time) ([]*entity.MovementEvent, error)
	// FirstBusinessDate primera fecha con eventos del producto; nil si no tiene historia.
	FirstBusinessDate(ctx context.Context, tenantID string, productID int64) (*time.Time, error)
}
