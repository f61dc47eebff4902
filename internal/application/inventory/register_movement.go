package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/inventory"
)

// MovementDraft entrada para registrar un movimiento en el libro.
// Quantity es una magnitud positiva; el sentido lo da Kind (o Direction en los ajustes).
type MovementDraft struct {
	ProductID       int64
	Kind            entity.MovementKind
	Direction       entity.Direction // obligatorio solo en Adjustment
	Quantity        decimal.Decimal
	UnitValue       *decimal.Decimal
	TotalValue      *decimal.Decimal
	Location        entity.Location
	TagLabel        *string // si falta se usa la etiqueta del producto
	ReferenceNumber string
	ReferenceKind   string
	OccurredAt      *time.Time // si falta, ahora
	CreatedBy       string
}

// validate revisa solo la forma del borrador; la existencia del producto se resuelve después.
func (d MovementDraft) validate() error {
	if d.ProductID <= 0 {
		return domain.Invalid(domain.ErrUnknownProduct, "product_id %d", d.ProductID)
	}
	if !d.Kind.Valid() {
		return domain.Invalid(domain.ErrInvalidKind, "tipo %q", d.Kind)
	}
	if !d.Quantity.GreaterThan(decimal.Zero) {
		return domain.Invalid(domain.ErrInvalidKind, "cantidad %s debe ser positiva", d.Quantity)
	}
	if d.Kind == entity.MovementAdjustment {
		if d.Direction != entity.DirectionIn && d.Direction != entity.DirectionOut {
			return domain.Invalid(domain.ErrInvalidKind, "ajuste sin sentido (In/Out)")
		}
	} else if d.Direction != "" && d.Direction != d.Kind.ImpliedDirection() {
		return domain.Invalid(domain.ErrInvalidKind, "sentido %s incompatible con %s", d.Direction, d.Kind)
	}
	if !d.Location.Valid() {
		return domain.Invalid(domain.ErrInvalidLocation, "%s", d.Location)
	}
	if d.UnitValue != nil && d.UnitValue.IsNegative() {
		return domain.Invalid(domain.ErrInvalidInput, "valor unitario negativo")
	}
	if d.TotalValue != nil && d.TotalValue.IsNegative() {
		return domain.Invalid(domain.ErrInvalidInput, "valor total negativo")
	}
	return nil
}

// checkProduct aplica las reglas del libro sobre el producto resuelto.
func checkProduct(p *entity.Product, id int64) error {
	if p == nil {
		return domain.Invalid(domain.ErrUnknownProduct, "product_id %d", id)
	}
	if !p.Active {
		return domain.Invalid(domain.ErrInactiveProduct, "product_id %d", id)
	}
	return nil
}

// buildEvent arma el evento inmutable: resuelve sentido, fecha de negocio y valores normalizados.
func buildEvent(tenantID string, d MovementDraft, p *entity.Product, occurredAt time.Time, loc *time.Location) *entity.MovementEvent {
	direction := d.Kind.ImpliedDirection()
	if d.Kind == entity.MovementAdjustment {
		direction = d.Direction
	}
	unit, total := inventory.NormalizeValues(d.Quantity, d.UnitValue, d.TotalValue)
	tag := d.TagLabel
	if tag == nil {
		tag = p.TagLabel
	}
	return &entity.MovementEvent{
		TenantID:        tenantID,
		ProductID:       d.ProductID,
		TagLabel:        tag,
		Kind:            d.Kind,
		Direction:       direction,
		Quantity:        d.Quantity,
		UnitValue:       unit,
		TotalValue:      total,
		Location:        d.Location,
		ReferenceNumber: d.ReferenceNumber,
		ReferenceKind:   d.ReferenceKind,
		OccurredAt:      occurredAt.UTC(),
		BusinessDate:    entity.DateOf(occurredAt, loc),
		CreatedBy:       d.CreatedBy,
	}
}
