package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
)

var _ ports.RecomputeScheduler = (*Client)(nil)

// Client encola recálculos. Implementa ports.RecomputeScheduler para el modo diferido.
type Client struct {
	client    *asynq.Client
	uniqueTTL time.Duration
	log       zerolog.Logger
}

// NewClient construye el cliente. Un trabajo idéntico ya pendiente no se vuelve a encolar durante uniqueTTL.
func NewClient(redisOpts asynq.RedisConnOpt, uniqueTTL time.Duration, log zerolog.Logger) *Client {
	if uniqueTTL <= 0 {
		uniqueTTL = time.Minute
	}
	return &Client{
		client:    asynq.NewClient(redisOpts),
		uniqueTTL: uniqueTTL,
		log:       log.With().Str("component", "jobs").Logger(),
	}
}

// ScheduleRecompute encola balance:recompute para el producto y el rango.
func (c *Client) ScheduleRecompute(ctx context.Context, tenantID string, productID int64, from, to time.Time) error {
	task, err := NewRecomputeTask(tenantID, productID, from, to)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

// EnqueueRecomputeAll encola balance:recompute-all para el tenant.
func (c *Client) EnqueueRecomputeAll(ctx context.Context, tenantID string, from, to time.Time) error {
	task, err := NewRecomputeAllTask(tenantID, from, to)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task) error {
	var p RecomputePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return err
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.Unique(c.uniqueTTL))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		c.log.Debug().Str("key", uniqueKey(task.Type(), p)).Msg("recálculo ya encolado")
		return nil
	}
	if err != nil {
		return fmt.Errorf("encolar %s: %w", task.Type(), err)
	}
	c.log.Debug().Str("task_id", info.ID).Str("type", info.Type).Str("tenant", p.TenantID).
		Int64("product_id", p.ProductID).Str("from", p.From).Str("to", p.To).Msg("recálculo encolado")
	return nil
}

// Close libera la conexión.
func (c *Client) Close() error {
	return c.client.Close()
}
