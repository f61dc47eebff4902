package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
)

// RegisterProductRequest alta o actualización de una pieza en el modelo de lectura del libro.
// Location solo se toma en el primer registro.
type RegisterProductRequest struct {
	ID         int64            `json:"id" validate:"required,gt=0"`
	SKU        string           `json:"sku" validate:"required,min=1,max=100"`
	TagLabel   *string          `json:"tag_label,omitempty" validate:"omitempty,min=1,max=64"`
	CategoryID *int64           `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	Active     *bool            `json:"active,omitempty"`
	UnitValue  *decimal.Decimal `json:"unit_value,omitempty"`
	Location   LocationRequest  `json:"location" validate:"required"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID         int64            `json:"id"`
	TenantID   string           `json:"tenant_id"`
	SKU        string           `json:"sku"`
	TagLabel   *string          `json:"tag_label,omitempty"`
	CategoryID *int64           `json:"category_id,omitempty"`
	Active     bool             `json:"active"`
	UnitValue  *decimal.Decimal `json:"unit_value,omitempty"`
	Location   entity.Location  `json:"location"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// ToProductResponse mapea la entidad a su salida.
func ToProductResponse(p *entity.Product) *ProductResponse {
	return &ProductResponse{
		ID:         p.ID,
		TenantID:   p.TenantID,
		SKU:        p.SKU,
		TagLabel:   p.TagLabel,
		CategoryID: p.CategoryID,
		Active:     p.Active,
		UnitValue:  p.UnitValue,
		Location:   p.Location,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
