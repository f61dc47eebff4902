package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
)

// RegisterMovementRequest body para POST /api/movements.
type RegisterMovementRequest struct {
	ProductID       int64            `json:"product_id" validate:"required,gt=0"`
	Kind            string           `json:"kind" validate:"required,oneof=Addition Sale Return TransferOut TransferIn Adjustment"`
	Direction       string           `json:"direction,omitempty" validate:"omitempty,oneof=In Out"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitValue       *decimal.Decimal `json:"unit_value,omitempty"`
	TotalValue      *decimal.Decimal `json:"total_value,omitempty"`
	Location        LocationRequest  `json:"location" validate:"required"`
	TagLabel        *string          `json:"tag_label,omitempty" validate:"omitempty,max=64"`
	ReferenceNumber string           `json:"reference_number,omitempty" validate:"max=64"`
	ReferenceKind   string           `json:"reference_kind,omitempty" validate:"max=32"`
	OccurredAt      *time.Time       `json:"occurred_at,omitempty"`
}

// BulkMovementRequest body para POST /api/movements/bulk. Se persiste todo o nada.
type BulkMovementRequest struct {
	Movements []RegisterMovementRequest `json:"movements" validate:"required,min=1,max=1000,dive"`
}

// MovementQuery filtros de GET /api/movements (fechas YYYY-MM-DD).
type MovementQuery struct {
	PageRequest
	ProductID       int64  `query:"product_id" validate:"omitempty,gt=0"`
	BranchID        int64  `query:"branch_id" validate:"omitempty,gt=0"`
	CounterID       int64  `query:"counter_id" validate:"omitempty,gt=0"`
	BoxID           int64  `query:"box_id" validate:"omitempty,gt=0"`
	Kind            string `query:"kind" validate:"omitempty,oneof=Addition Sale Return TransferOut TransferIn Adjustment"`
	ReferenceNumber string `query:"reference_number"`
	ReferenceKind   string `query:"reference_kind"`
	From            string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To              string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// MovementListResponse página de eventos del libro.
type MovementListResponse struct {
	Items []*entity.MovementEvent `json:"items"`
	Page  PageResponse            `json:"page"`
}

// BulkMovementResponse eventos creados por una carga masiva.
type BulkMovementResponse struct {
	Items       []*entity.MovementEvent `json:"items"`
	Recomputing bool                    `json:"recomputing"`
}

// BalanceHistoryResponse filas almacenadas de un producto.
type BalanceHistoryResponse struct {
	ProductID int64                  `json:"product_id"`
	Items     []*entity.DailyBalance `json:"items"`
}

// LocationBreakdownResponse movimiento por ubicación de un día.
type LocationBreakdownResponse struct {
	ProductID    int64                 `json:"product_id"`
	BusinessDate string                `json:"business_date"`
	Locations    []entity.LocationFlow `json:"locations"`
}
