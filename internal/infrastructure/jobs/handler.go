package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/jhoicas/joyeria-ledger/internal/application/balance"
	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
)

// Recomputer lo que el worker necesita del agregador.
type Recomputer interface {
	RecomputeRange(ctx context.Context, tenantID string, productID int64, from, to time.Time) ([]entity.DailyBalance, error)
	RecomputeAll(ctx context.Context, tenantID string, productIDs []int64, from, to time.Time) (balance.RecomputeSummary, error)
}

// RecomputeHandler ejecuta las tareas de recálculo. Los errores de validación no se reintentan;
// los de integridad y concurrencia sí, con el backoff de Asynq.
type RecomputeHandler struct {
	agg     Recomputer
	metrics ports.Metrics
	log     zerolog.Logger
}

// NewRecomputeHandler construye el handler.
func NewRecomputeHandler(agg Recomputer, metrics ports.Metrics, log zerolog.Logger) *RecomputeHandler {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &RecomputeHandler{agg: agg, metrics: metrics, log: log.With().Str("component", "jobs").Logger()}
}

// HandleRecompute procesa balance:recompute.
func (h *RecomputeHandler) HandleRecompute(ctx context.Context, t *asynq.Task) error {
	return h.run(ctx, t, func(p RecomputePayload, from, to time.Time) error {
		if p.ProductID <= 0 {
			return domain.Invalid(domain.ErrInvalidInput, "product_id %d", p.ProductID)
		}
		days, err := h.agg.RecomputeRange(ctx, p.TenantID, p.ProductID, from, to)
		if err != nil {
			return err
		}
		h.log.Info().Str("tenant", p.TenantID).Int64("product_id", p.ProductID).
			Str("from", p.From).Str("to", p.To).Int("days", len(days)).Msg("saldos recalculados")
		return nil
	})
}

// HandleRecomputeAll procesa balance:recompute-all.
func (h *RecomputeHandler) HandleRecomputeAll(ctx context.Context, t *asynq.Task) error {
	return h.run(ctx, t, func(p RecomputePayload, from, to time.Time) error {
		summary, err := h.agg.RecomputeAll(ctx, p.TenantID, nil, from, to)
		h.log.Info().Str("tenant", p.TenantID).Int("products", summary.Products).
			Int("succeeded", summary.Succeeded).Ints64("failed", summary.Failed).Msg("recálculo global terminado")
		return err
	})
}

func (h *RecomputeHandler) run(ctx context.Context, t *asynq.Task, fn func(RecomputePayload, time.Time, time.Time) error) error {
	start := time.Now()
	var p RecomputePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.metrics.JobProcessed(t.Type(), string(domain.KindValidation), time.Since(start))
		h.log.Error().Err(err).Str("type", t.Type()).Msg("payload ilegible, tarea descartada")
		return fmt.Errorf("payload: %v: %w", err, asynq.SkipRetry)
	}
	from, to, err := p.Dates()
	if err != nil {
		err = domain.Invalid(domain.ErrInvalidDateRange, "%v", err)
	} else {
		err = fn(p, from, to)
	}
	h.metrics.JobProcessed(t.Type(), outcome(err), time.Since(start))
	if err == nil {
		return nil
	}

	ev := h.log.Error().Err(err).Str("type", t.Type()).Str("tenant", p.TenantID).Int64("product_id", p.ProductID)
	if k := domain.KindOf(err); k == domain.KindValidation || k == domain.KindNotFound || errors.Is(err, domain.ErrUnauthorized) {
		ev.Msg("tarea descartada")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	ev.Msg("tarea fallida, se reintentará")
	return err
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return string(domain.KindOf(err))
}
