package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// MovementLedger caso de uso del libro de movimientos: solo agrega y consulta.
// No dispara recálculos; eso lo decide quien llama a través de ports.RecomputeScheduler.
type MovementLedger struct {
	products  repository.ProductRepository
	movements repository.MovementRepository
	txRunner  ports.TxRunner
	location  *time.Location
	metrics   ports.Metrics
	log       zerolog.Logger
	now       func() time.Time
}

// NewMovementLedger construye el caso de uso. loc es la zona de la fecha de negocio.
func NewMovementLedger(
	products repository.ProductRepository,
	movements repository.MovementRepository,
	txRunner ports.TxRunner,
	loc *time.Location,
	metrics ports.Metrics,
	log zerolog.Logger,
) *MovementLedger {
	if loc == nil {
		loc = time.UTC
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &MovementLedger{
		products:  products,
		movements: movements,
		txRunner:  txRunner,
		location:  loc,
		metrics:   metrics,
		log:       log.With().Str("component", "movement_ledger").Logger(),
		now:       time.Now,
	}
}

// SetClock reemplaza el reloj usado cuando el borrador no trae OccurredAt.
func (uc *MovementLedger) SetClock(now func() time.Time) { uc.now = now }

// Append valida y persiste un evento. Al volver, el evento ya es durable y tiene ID.
func (uc *MovementLedger) Append(ctx context.Context, tenantID string, draft MovementDraft) (*entity.MovementEvent, error) {
	if tenantID == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := draft.validate(); err != nil {
		return nil, err
	}
	product, err := uc.products.GetByID(ctx, tenantID, draft.ProductID)
	if err != nil {
		return nil, fmt.Errorf("resolver producto: %w", err)
	}
	if err := checkProduct(product, draft.ProductID); err != nil {
		return nil, err
	}

	event := buildEvent(tenantID, draft, product, uc.occurredAt(draft), uc.location)
	if err := uc.movements.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("registrar movimiento: %w", err)
	}
	uc.metrics.MovementsAppended(string(event.Kind), 1)
	return event, nil
}

// AppendBatch valida todos los borradores y los persiste en una sola transacción, ordenados por
// (fecha de negocio, ocurrencia). Si uno falla no se persiste ninguno.
func (uc *MovementLedger) AppendBatch(ctx context.Context, tenantID string, drafts []MovementDraft) ([]*entity.MovementEvent, error) {
	if tenantID == "" {
		return nil, domain.ErrUnauthorized
	}
	if len(drafts) == 0 {
		return nil, domain.Invalid(domain.ErrInvalidInput, "lote vacío")
	}
	for i, d := range drafts {
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("movimiento %d: %w", i, err)
		}
	}

	type pending struct {
		draft      MovementDraft
		occurredAt time.Time
		date       time.Time
	}
	items := make([]pending, len(drafts))
	for i, d := range drafts {
		at := uc.occurredAt(d)
		items[i] = pending{draft: d, occurredAt: at, date: entity.DateOf(at, uc.location)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].date.Equal(items[j].date) {
			return items[i].date.Before(items[j].date)
		}
		return items[i].occurredAt.Before(items[j].occurredAt)
	})

	events := make([]*entity.MovementEvent, 0, len(items))
	err := uc.txRunner.Run(ctx, func(repos repository.Repositories) error {
		resolved := make(map[int64]*entity.Product)
		for _, it := range items {
			p, ok := resolved[it.draft.ProductID]
			if !ok {
				var err error
				if p, err = repos.Products.GetByID(ctx, tenantID, it.draft.ProductID); err != nil {
					return fmt.Errorf("resolver producto: %w", err)
				}
				resolved[it.draft.ProductID] = p
			}
			if err := checkProduct(p, it.draft.ProductID); err != nil {
				return err
			}
			e := buildEvent(tenantID, it.draft, p, it.occurredAt, uc.location)
			if err := repos.Movements.Append(ctx, e); err != nil {
				return fmt.Errorf("registrar movimiento: %w", err)
			}
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	byKind := make(map[entity.MovementKind]int)
	for _, e := range events {
		byKind[e.Kind]++
	}
	for k, n := range byKind {
		uc.metrics.MovementsAppended(string(k), n)
	}
	uc.log.Info().Str("tenant", tenantID).Int("events", len(events)).Msg("lote de movimientos registrado")
	return events, nil
}

// AppendInTx registra un movimiento con los repositorios de una transacción ya abierta por el llamador
// (por ejemplo, la completación de un traslado). Aplica las mismas reglas que Append.
func (uc *MovementLedger) AppendInTx(ctx context.Context, repos repository.Repositories, tenantID string, draft MovementDraft) (*entity.MovementEvent, error) {
	if err := draft.validate(); err != nil {
		return nil, err
	}
	product, err := repos.Products.GetByID(ctx, tenantID, draft.ProductID)
	if err != nil {
		return nil, fmt.Errorf("resolver producto: %w", err)
	}
	if err := checkProduct(product, draft.ProductID); err != nil {
		return nil, err
	}
	event := buildEvent(tenantID, draft, product, uc.occurredAt(draft), uc.location)
	if err := repos.Movements.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("registrar movimiento: %w", err)
	}
	return event, nil
}

// BusinessDate fecha de negocio de t en la zona del libro.
func (uc *MovementLedger) BusinessDate(t time.Time) time.Time {
	return entity.DateOf(t, uc.location)
}

// List consulta el libro ordenado por (fecha de negocio, registro, id).
func (uc *MovementLedger) List(ctx context.Context, tenantID string, filter entity.MovementFilter) ([]*entity.MovementEvent, error) {
	if tenantID == "" {
		return nil, domain.ErrUnauthorized
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, domain.ErrInvalidDateRange
	}
	for _, k := range filter.Kinds {
		if !k.Valid() {
			return nil, domain.Invalid(domain.ErrInvalidKind, "tipo %q", k)
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.movements.List(ctx, tenantID, filter)
}

func (uc *MovementLedger) occurredAt(d MovementDraft) time.Time {
	if d.OccurredAt != nil {
		return *d.OccurredAt
	}
	return uc.now()
}
