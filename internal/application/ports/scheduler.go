package ports

import (
	"context"
	"time"
)

// RecomputeScheduler programa el recálculo de saldos de un producto para un rango de fechas.
// Puede ejecutarlo en línea o diferirlo a un worker; el recálculo es idempotente en ambos casos.
type RecomputeScheduler interface {
	ScheduleRecompute(ctx context.Context, tenantID string, productID int64, from, to time.Time) error
}
