package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product vista de lectura de una pieza de joyería tal como la necesita el libro:
// existencia del producto, estado y última ubicación conocida.
// La ubicación se fija al registrar la pieza y solo la cambia un traslado completado.
type Product struct {
	ID         int64
	TenantID   string
	SKU        string // código único por tenant
	TagLabel   *string
	CategoryID *int64
	Active     bool
	UnitValue  *decimal.Decimal // valor de referencia de la pieza (opcional)
	Location   Location
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProductScope filtro de productos por ubicación y categoría (sesiones de verificación).
type ProductScope struct {
	BranchID   int64  `json:"branch_id"`
	CounterID  *int64 `json:"counter_id,omitempty"`
	CategoryID *int64 `json:"category_id,omitempty"`
}
