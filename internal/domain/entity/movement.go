package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tipo de evento del libro de inventario.
type MovementKind string

const (
	MovementAddition    MovementKind = "Addition"
	MovementSale        MovementKind = "Sale"
	MovementReturn      MovementKind = "Return"
	MovementTransferOut MovementKind = "TransferOut"
	MovementTransferIn  MovementKind = "TransferIn"
	MovementAdjustment  MovementKind = "Adjustment"
)

// Valid indica si el tipo es conocido.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementAddition, MovementSale, MovementReturn, MovementTransferOut, MovementTransferIn, MovementAdjustment:
		return true
	}
	return false
}

// Direction sentido del efecto sobre la existencia.
type Direction string

const (
	DirectionIn  Direction = "In"
	DirectionOut Direction = "Out"
)

// ImpliedDirection sentido implícito del tipo. Adjustment no tiene uno y devuelve "".
func (k MovementKind) ImpliedDirection() Direction {
	switch k {
	case MovementAddition, MovementReturn, MovementTransferIn:
		return DirectionIn
	case MovementSale, MovementTransferOut:
		return DirectionOut
	}
	return ""
}

// Tipos de referencia conocidos; el campo es libre.
const (
	ReferenceInvoice  = "Invoice"
	ReferenceTransfer = "Transfer"
)

// MovementEvent registro inmutable del libro. Quantity es siempre una magnitud positiva;
// el signo sale de Kind y Direction. Las correcciones son eventos compensatorios nuevos.
type MovementEvent struct {
	ID              int64            `json:"id"`
	TenantID        string           `json:"tenant_id"`
	ProductID       int64            `json:"product_id"`
	TagLabel        *string          `json:"tag_label,omitempty"`
	Kind            MovementKind     `json:"kind"`
	Direction       Direction        `json:"direction"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitValue       *decimal.Decimal `json:"unit_value,omitempty"`
	TotalValue      *decimal.Decimal `json:"total_value,omitempty"`
	Location        Location         `json:"location"`
	ReferenceNumber string           `json:"reference_number,omitempty"`
	ReferenceKind   string           `json:"reference_kind,omitempty"`
	OccurredAt      time.Time        `json:"occurred_at"`
	BusinessDate    time.Time        `json:"business_date"`
	RecordedAt      time.Time        `json:"recorded_at"`
	CreatedBy       string           `json:"created_by,omitempty"`
}

// IsInbound indica si el evento suma a la existencia.
func (e *MovementEvent) IsInbound() bool {
	return e.Direction == DirectionIn
}

// MovementFilter criterios de consulta del libro; los campos vacíos no filtran.
type MovementFilter struct {
	ProductID       *int64
	BranchID        *int64
	CounterID       *int64
	BoxID           *int64
	Kinds           []MovementKind
	ReferenceNumber string
	ReferenceKind   string
	From            *time.Time
	To              *time.Time
	Limit           int
	Offset          int
}
