package repository

import (
	"context"
	"time"

	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
)

// ProductRepository define el puerto de lectura/escritura del modelo de productos que usa el libro (DIP).
// Todas las operaciones van acotadas al tenant; GetByID devuelve (nil, nil) si no existe.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	// Update cambia atributos (SKU, etiqueta, categoría, estado, valor) pero nunca la ubicación.
	Update(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, tenantID string, id int64) (*entity.Product, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, tenantID string, id int64) (*entity.Product, error)
	UpdateLocation(ctx context.Context, tenantID string, id int64, loc entity.Location, at time.Time) error
	ListByScope(ctx context.Context, tenantID string, scope entity.ProductScope) ([]*entity.Product, error)
	ListIDs(ctx context.Context, tenantID string) ([]int64, error)
}
