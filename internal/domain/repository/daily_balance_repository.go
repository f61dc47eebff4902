package repository

import (
	"context"
	"time"

	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
)

// DailyBalanceRepository puerto de la tabla de saldos diarios, el único recurso mutable compartido.
type DailyBalanceRepository interface {
	// Get devuelve (nil, nil) si la fila no se ha calculado.
	Get(ctx context.Context, tenantID string, productID int64, date time.Time) (*entity.DailyBalance, error)
	// LatestBefore última fila almacenada estrictamente anterior a date.
	LatestBefore(ctx context.Context, tenantID string, productID int64, date time.Time) (*entity.DailyBalance, error)
	// LastDate fecha de la última fila almacenada del producto, o nil si no hay ninguna.
	LastDate(ctx context.Context, tenantID string, productID int64) (*time.Time, error)
	Upsert(ctx context.Context, balance *entity.DailyBalance) error
	// LockProduct serializa el ciclo leer-plegar-upsert del producto hasta el fin de la transacción.
	LockProduct(ctx context.Context, tenantID string, productID int64) error
	ListRange(ctx context.Context, tenantID string, productID int64, from, to time.Time) ([]*entity.DailyBalance, error)
}
