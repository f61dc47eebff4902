// Package transfer implementa el flujo de traslados de piezas entre ubicaciones.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/joyeria-ledger/internal/application/inventory"
	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/joyeria-ledger/internal/domain/inventory"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

const (
	numberAttempts    = 3
	transitionRetries = 3
)

// LedgerWriter parte del libro que usa el flujo: registrar dentro de la transacción del traslado.
type LedgerWriter interface {
	AppendInTx(ctx context.Context, repos repository.Repositories, tenantID string, draft inventory.MovementDraft) (*entity.MovementEvent, error)
	BusinessDate(t time.Time) time.Time
}

// Workflow caso de uso de la máquina de estados de traslados.
// Solo Complete escribe en el libro; el resto de transiciones no tiene efecto sobre existencias.
type Workflow struct {
	txRunner  ports.TxRunner
	transfers repository.TransferRepository
	ledger    LedgerWriter
	scheduler ports.RecomputeScheduler
	metrics   ports.Metrics
	log       zerolog.Logger
	now       func() time.Time
}

// NewWorkflow construye el caso de uso.
func NewWorkflow(
	txRunner ports.TxRunner,
	transfers repository.TransferRepository,
	ledger LedgerWriter,
	scheduler ports.RecomputeScheduler,
	metrics ports.Metrics,
	log zerolog.Logger,
) *Workflow {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Workflow{
		txRunner:  txRunner,
		transfers: transfers,
		ledger:    ledger,
		scheduler: scheduler,
		metrics:   metrics,
		log:       log.With().Str("component", "transfer_workflow").Logger(),
		now:       time.Now,
	}
}

// SetClock reemplaza el reloj (marcas de tiempo y fecha de los eventos de completación).
func (w *Workflow) SetClock(now func() time.Time) { w.now = now }

// CreateInput entrada para crear un traslado. Type es opcional y se infiere de las ubicaciones.
type CreateInput struct {
	ProductID   int64
	Type        entity.TransferType
	Source      entity.Location
	Destination entity.Location
	Reason      string
	Remarks     string
	Actor       string
}

// Create abre un traslado en Pending. El origen declarado debe coincidir con la última ubicación
// conocida del producto y el producto no puede tener otro traslado abierto.
func (w *Workflow) Create(ctx context.Context, tenantID string, in CreateInput) (*entity.TransferRequest, error) {
	if tenantID == "" || in.Actor == "" {
		return nil, domain.ErrUnauthorized
	}
	typ, err := resolveType(in)
	if err != nil {
		return nil, err
	}

	var created *entity.TransferRequest
	for attempt := 1; ; attempt++ {
		created, err = w.create(ctx, tenantID, in, typ)
		if !errors.Is(err, domain.ErrDuplicate) || attempt == numberAttempts {
			break
		}
	}
	w.metrics.TransferTransition("create", outcome(err))
	if err != nil {
		return nil, err
	}
	w.log.Info().Str("tenant", tenantID).Int64("product_id", in.ProductID).Str("number", created.Number).
		Str("source", in.Source.String()).Str("destination", in.Destination.String()).Msg("traslado creado")
	return created, nil
}

func (w *Workflow) create(ctx context.Context, tenantID string, in CreateInput, typ entity.TransferType) (*entity.TransferRequest, error) {
	now := w.now().UTC()
	var out *entity.TransferRequest
	err := w.txRunner.Run(ctx, func(repos repository.Repositories) error {
		product, err := repos.Products.GetForUpdate(ctx, tenantID, in.ProductID)
		if err != nil {
			return fmt.Errorf("resolver producto: %w", err)
		}
		if product == nil {
			return domain.Invalid(domain.ErrUnknownProduct, "product_id %d", in.ProductID)
		}
		if !product.Active {
			return domain.Invalid(domain.ErrInactiveProduct, "product_id %d", in.ProductID)
		}
		open, err := repos.Transfers.FindOpenByProduct(ctx, tenantID, in.ProductID)
		if err != nil {
			return fmt.Errorf("buscar traslado abierto: %w", err)
		}
		if open != nil {
			return fmt.Errorf("%w: %s", domain.ErrConflictingTransfer, open.Number)
		}
		if !product.Location.Equal(in.Source) {
			return fmt.Errorf("%w: declarado %s, conocido %s", domain.ErrLocationMismatch, in.Source, product.Location)
		}

		t := &entity.TransferRequest{
			TenantID:    tenantID,
			Number:      newNumber(w.ledger.BusinessDate(now)),
			ProductID:   in.ProductID,
			TagLabel:    product.TagLabel,
			Type:        typ,
			Source:      in.Source,
			Destination: in.Destination,
			Status:      entity.TransferPending,
			Version:     1,
			Reason:      strings.TrimSpace(in.Reason),
			Remarks:     strings.TrimSpace(in.Remarks),
			CreatedAt:   now,
			CreatedBy:   in.Actor,
			UpdatedAt:   now,
		}
		if err := repos.Transfers.Create(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

// ActionInput actor y observaciones de una transición.
type ActionInput struct {
	Actor   string
	Remarks string
	Reason  string // obligatorio en Reject
}

// Approve Pending -> InTransit. Reserva el movimiento; no escribe en el libro.
func (w *Workflow) Approve(ctx context.Context, tenantID string, id int64, in ActionInput) (*entity.TransferRequest, error) {
	return w.transition(ctx, tenantID, id, domaininv.ActionApprove, in, func(t *entity.TransferRequest, now time.Time) {
		t.ApprovedAt = &now
		t.ApprovedBy = in.Actor
	}, nil)
}

// Reject Pending|InTransit -> Rejected. Exige motivo; sin efecto en el libro.
func (w *Workflow) Reject(ctx context.Context, tenantID string, id int64, in ActionInput) (*entity.TransferRequest, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, domain.ErrMissingReason
	}
	return w.transition(ctx, tenantID, id, domaininv.ActionReject, in, func(t *entity.TransferRequest, now time.Time) {
		t.RejectedAt = &now
		t.RejectedBy = in.Actor
		t.RejectionReason = reason
	}, nil)
}

// Cancel Pending|InTransit -> Cancelled. Libera el producto para un nuevo traslado.
func (w *Workflow) Cancel(ctx context.Context, tenantID string, id int64, in ActionInput) (*entity.TransferRequest, error) {
	return w.transition(ctx, tenantID, id, domaininv.ActionCancel, in, func(t *entity.TransferRequest, now time.Time) {
		t.CancelledAt = &now
		t.CancelledBy = in.Actor
	}, nil)
}

// Complete InTransit -> Completed. En una sola transacción: cambia el estado, registra TransferOut en
// el origen y TransferIn en el destino (cantidad 1, mismo número de referencia) y mueve el producto.
// Después del commit programa el recálculo del día; si eso falla solo se registra en el log.
func (w *Workflow) Complete(ctx context.Context, tenantID string, id int64, in ActionInput) (*entity.TransferRequest, error) {
	var businessDate time.Time
	t, err := w.transition(ctx, tenantID, id, domaininv.ActionComplete, in, func(t *entity.TransferRequest, now time.Time) {
		t.CompletedAt = &now
		t.CompletedBy = in.Actor
	}, func(repos repository.Repositories, t *entity.TransferRequest, now time.Time) error {
		product, err := repos.Products.GetForUpdate(ctx, tenantID, t.ProductID)
		if err != nil {
			return fmt.Errorf("resolver producto: %w", err)
		}
		if product == nil {
			return domain.Invalid(domain.ErrUnknownProduct, "product_id %d", t.ProductID)
		}
		if !product.Location.Equal(t.Source) {
			return fmt.Errorf("%w: el producto está en %s", domain.ErrLocationMismatch, product.Location)
		}

		one := decimal.NewFromInt(1)
		for _, leg := range []struct {
			kind entity.MovementKind
			loc  entity.Location
		}{
			{entity.MovementTransferOut, t.Source},
			{entity.MovementTransferIn, t.Destination},
		} {
			_, err := w.ledger.AppendInTx(ctx, repos, tenantID, inventory.MovementDraft{
				ProductID:       t.ProductID,
				Kind:            leg.kind,
				Quantity:        one,
				UnitValue:       product.UnitValue,
				Location:        leg.loc,
				TagLabel:        t.TagLabel,
				ReferenceNumber: t.Number,
				ReferenceKind:   entity.ReferenceTransfer,
				OccurredAt:      &now,
				CreatedBy:       in.Actor,
			})
			if err != nil {
				return err
			}
		}
		if err := repos.Products.UpdateLocation(ctx, tenantID, t.ProductID, t.Destination, now); err != nil {
			return fmt.Errorf("actualizar ubicación: %w", err)
		}
		businessDate = w.ledger.BusinessDate(now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if w.scheduler != nil {
		if err := w.scheduler.ScheduleRecompute(ctx, tenantID, t.ProductID, businessDate, businessDate); err != nil {
			w.log.Error().Err(err).Str("tenant", tenantID).Int64("product_id", t.ProductID).
				Str("date", businessDate.Format(entity.DateLayout)).Str("number", t.Number).
				Msg("no se pudo programar el recálculo tras completar el traslado")
		}
	}
	return t, nil
}

// Get devuelve el traslado o domain.ErrNotFound.
func (w *Workflow) Get(ctx context.Context, tenantID string, id int64) (*entity.TransferRequest, error) {
	if tenantID == "" {
		return nil, domain.ErrUnauthorized
	}
	t, err := w.transfers.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("consultar traslado: %w", err)
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

// List traslados del tenant, los más recientes primero.
func (w *Workflow) List(ctx context.Context, tenantID string, filter entity.TransferFilter) ([]*entity.TransferRequest, error) {
	if tenantID == "" {
		return nil, domain.ErrUnauthorized
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return w.transfers.List(ctx, tenantID, filter)
}

// transition aplica action con concurrencia optimista: el UPDATE solo gana si la fila sigue en el
// estado y la versión leídos. Un conflicto de serialización repite la transacción, que relee el estado
// confirmado; así el perdedor de una carrera recibe domain.ErrInvalidStateTransition.
func (w *Workflow) transition(
	ctx context.Context,
	tenantID string,
	id int64,
	action domaininv.TransferAction,
	in ActionInput,
	stamp func(t *entity.TransferRequest, now time.Time),
	effects func(repos repository.Repositories, t *entity.TransferRequest, now time.Time) error,
) (*entity.TransferRequest, error) {
	if tenantID == "" || in.Actor == "" {
		return nil, domain.ErrUnauthorized
	}
	now := w.now().UTC()
	var out *entity.TransferRequest
	err := ports.RunWithRetry(ctx, w.txRunner, transitionRetries, func(repos repository.Repositories) error {
		t, err := repos.Transfers.GetByID(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("consultar traslado: %w", err)
		}
		if t == nil {
			return domain.ErrNotFound
		}
		next, err := domaininv.NextTransferStatus(t.Status, action)
		if err != nil {
			return err
		}

		from, version := t.Status, t.Version
		t.Status = next
		t.Version++
		t.UpdatedAt = now
		if r := strings.TrimSpace(in.Remarks); r != "" {
			t.Remarks = r
		}
		stamp(t, now)

		if err := repos.Transfers.Transition(ctx, t, from, version); err != nil {
			return err
		}
		if effects != nil {
			if err := effects(repos, t, now); err != nil {
				return err
			}
		}
		out = t
		return nil
	})
	w.metrics.TransferTransition(string(action), outcome(err))
	if err != nil {
		return nil, err
	}
	w.log.Info().Str("tenant", tenantID).Int64("transfer_id", id).Str("action", string(action)).
		Str("status", string(out.Status)).Str("actor", in.Actor).Msg("transición de traslado")
	return out, nil
}

func resolveType(in CreateInput) (entity.TransferType, error) {
	if !in.Source.Valid() {
		return "", domain.Invalid(domain.ErrInvalidLocation, "origen %s", in.Source)
	}
	if !in.Destination.Valid() {
		return "", domain.Invalid(domain.ErrInvalidLocation, "destino %s", in.Destination)
	}
	if in.ProductID <= 0 {
		return "", domain.Invalid(domain.ErrUnknownProduct, "product_id %d", in.ProductID)
	}
	inferred, err := domaininv.InferTransferType(in.Source, in.Destination)
	if err != nil {
		return "", err
	}
	switch {
	case in.Type == "":
		return inferred, nil
	case !in.Type.Valid():
		return "", domain.Invalid(domain.ErrInvalidInput, "tipo de traslado %q", in.Type)
	case in.Type == entity.TransferMixed || in.Type == inferred:
		return in.Type, nil
	default:
		return "", domain.Invalid(domain.ErrInvalidInput, "tipo %s no corresponde a las ubicaciones (%s)", in.Type, inferred)
	}
}

// newNumber TRF-YYYYMMDD-XXXXXXXX con sufijo tomado de un uuid.
func newNumber(date time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("TRF-%s-%s", date.Format("20060102"), suffix)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(domain.KindOf(err))
}
