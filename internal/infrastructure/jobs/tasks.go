// Package jobs recálculo diferido de saldos sobre Asynq (Redis).
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
)

const (
	// QueueLedger cola de los trabajos del libro.
	QueueLedger = "ledger"
	// TaskBalanceRecompute recalcula un rango de días de un producto.
	TaskBalanceRecompute = "balance:recompute"
	// TaskBalanceRecomputeAll recalcula un rango para todos los productos de un tenant.
	TaskBalanceRecomputeAll = "balance:recompute-all"

	defaultMaxRetry = 5
)

// RecomputePayload rango a recalcular. Fechas YYYY-MM-DD; ProductID 0 en recompute-all.
type RecomputePayload struct {
	TenantID  string `json:"tenant_id"`
	ProductID int64  `json:"product_id,omitempty"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// Dates convierte From/To a fechas de negocio.
func (p RecomputePayload) Dates() (from, to time.Time, err error) {
	if from, err = entity.ParseDate(p.From); err != nil {
		return from, to, fmt.Errorf("from: %w", err)
	}
	if to, err = entity.ParseDate(p.To); err != nil {
		return from, to, fmt.Errorf("to: %w", err)
	}
	return from, to, nil
}

// NewRecomputeTask construye la tarea de un producto.
func NewRecomputeTask(tenantID string, productID int64, from, to time.Time) (*asynq.Task, error) {
	return newTask(TaskBalanceRecompute, RecomputePayload{
		TenantID:  tenantID,
		ProductID: productID,
		From:      from.Format(entity.DateLayout),
		To:        to.Format(entity.DateLayout),
	})
}

// NewRecomputeAllTask construye la tarea de recálculo global de un tenant.
func NewRecomputeAllTask(tenantID string, from, to time.Time) (*asynq.Task, error) {
	return newTask(TaskBalanceRecomputeAll, RecomputePayload{
		TenantID: tenantID,
		From:     from.Format(entity.DateLayout),
		To:       to.Format(entity.DateLayout),
	})
}

func newTask(typ string, payload RecomputePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, asynq.Queue(QueueLedger), asynq.MaxRetry(defaultMaxRetry)), nil
}

// uniqueKey identifica trabajos equivalentes mientras esperan en la cola.
func uniqueKey(typ string, p RecomputePayload) string {
	return fmt.Sprintf("%s:%s:%d:%s:%s", typ, p.TenantID, p.ProductID, p.From, p.To)
}
