package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/joyeria-ledger/internal/application/dto"
	"github.com/jhoicas/joyeria-ledger/internal/application/inventory"
	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
)

// InventoryHandler maneja las peticiones HTTP del libro de movimientos (protegido).
type InventoryHandler struct {
	ledger    *inventory.MovementLedger
	scheduler ports.RecomputeScheduler
	log       zerolog.Logger
}

// NewInventoryHandler construye el handler. scheduler se usa solo en cargas masivas con ?recompute=true.
func NewInventoryHandler(ledger *inventory.MovementLedger, scheduler ports.RecomputeScheduler, log zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, scheduler: scheduler, log: log}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento en el libro
// @Description  Agrega un evento inmutable. No recalcula saldos.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RegisterMovementRequest  true  "Movimiento"
// @Success      201   {object}  entity.MovementEvent
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	tenantID, userID, ok, err := identity(c)
	if !ok {
		return err
	}
	var in dto.RegisterMovementRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	event, err := h.ledger.Append(c.UserContext(), tenantID, toDraft(in, userID))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// RegisterBulk godoc
// @Summary      Carga masiva de movimientos
// @Description  Todo o nada. Con recompute=true programa el recálculo de cada producto afectado.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        recompute  query     bool                     false  "Programar recálculo"
// @Param        body       body      dto.BulkMovementRequest  true   "Movimientos"
// @Success      201        {object}  dto.BulkMovementResponse
// @Failure      400        {object}  dto.ErrorResponse
// @Router       /api/movements/bulk [post]
func (h *InventoryHandler) RegisterBulk(c *fiber.Ctx) error {
	tenantID, userID, ok, err := identity(c)
	if !ok {
		return err
	}
	var in dto.BulkMovementRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	drafts := make([]inventory.MovementDraft, len(in.Movements))
	for i, m := range in.Movements {
		drafts[i] = toDraft(m, userID)
	}
	events, err := h.ledger.AppendBatch(c.UserContext(), tenantID, drafts)
	if err != nil {
		return respondError(c, h.log, err)
	}

	recompute := c.QueryBool("recompute") && h.scheduler != nil
	if recompute {
		h.scheduleSpans(c, tenantID, events)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.BulkMovementResponse{Items: events, Recomputing: recompute})
}

// scheduleSpans un recálculo por producto sobre el rango de fechas de la carga. Los eventos ya
// quedaron persistidos, así que un fallo aquí solo se registra.
func (h *InventoryHandler) scheduleSpans(c *fiber.Ctx, tenantID string, events []*entity.MovementEvent) {
	type span struct{ from, to time.Time }
	spans := map[int64]*span{}
	var order []int64
	for _, e := range events {
		s, ok := spans[e.ProductID]
		if !ok {
			spans[e.ProductID] = &span{e.BusinessDate, e.BusinessDate}
			order = append(order, e.ProductID)
			continue
		}
		if e.BusinessDate.Before(s.from) {
			s.from = e.BusinessDate
		}
		if e.BusinessDate.After(s.to) {
			s.to = e.BusinessDate
		}
	}
	for _, pid := range order {
		s := spans[pid]
		if err := h.scheduler.ScheduleRecompute(c.UserContext(), tenantID, pid, s.from, s.to); err != nil {
			h.log.Warn().Err(err).Str("tenant", tenantID).Int64("product_id", pid).
				Str("from", s.from.Format(entity.DateLayout)).Str("to", s.to.Format(entity.DateLayout)).
				Msg("no se pudo programar el recálculo de la carga")
		}
	}
}

// ListMovements godoc
// @Summary      Consultar el libro
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        product_id        query     int     false  "Producto"
// @Param        branch_id         query     int     false  "Sucursal"
// @Param        counter_id        query     int     false  "Vitrina"
// @Param        box_id            query     int     false  "Caja"
// @Param        kind              query     string  false  "Tipo"
// @Param        reference_number  query     string  false  "Número de referencia"
// @Param        reference_kind    query     string  false  "Tipo de referencia"
// @Param        from              query     string  false  "YYYY-MM-DD"
// @Param        to                query     string  false  "YYYY-MM-DD"
// @Param        limit             query     int     false  "Máximo 1000"
// @Param        offset            query     int     false  "Desplazamiento"
// @Success      200               {object}  dto.MovementListResponse
// @Failure      400               {object}  dto.ErrorResponse
// @Router       /api/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	tenantID, _, ok, err := identity(c)
	if !ok {
		return err
	}
	var q dto.MovementQuery
	if ok, err := parseQuery(c, &q); !ok {
		return err
	}
	q.DefaultPage()
	filter := entity.MovementFilter{
		ReferenceNumber: q.ReferenceNumber,
		ReferenceKind:   q.ReferenceKind,
		Limit:           q.Limit,
		Offset:          q.Offset,
	}
	filter.ProductID = optionalID(q.ProductID)
	filter.BranchID = optionalID(q.BranchID)
	filter.CounterID = optionalID(q.CounterID)
	filter.BoxID = optionalID(q.BoxID)
	if q.Kind != "" {
		filter.Kinds = []entity.MovementKind{entity.MovementKind(q.Kind)}
	}
	if q.From != "" {
		d, _ := entity.ParseDate(q.From)
		filter.From = &d
	}
	if q.To != "" {
		d, _ := entity.ParseDate(q.To)
		filter.To = &d
	}
	list, err := h.ledger.List(c.UserContext(), tenantID, filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if list == nil {
		list = []*entity.MovementEvent{}
	}
	return c.JSON(dto.MovementListResponse{Items: list, Page: dto.PageResponse{Limit: filter.Limit, Offset: filter.Offset}})
}

func toDraft(in dto.RegisterMovementRequest, userID string) inventory.MovementDraft {
	return inventory.MovementDraft{
		ProductID:       in.ProductID,
		Kind:            entity.MovementKind(in.Kind),
		Direction:       entity.Direction(in.Direction),
		Quantity:        in.Quantity,
		UnitValue:       in.UnitValue,
		TotalValue:      in.TotalValue,
		Location:        in.Location.ToEntity(),
		TagLabel:        in.TagLabel,
		ReferenceNumber: in.ReferenceNumber,
		ReferenceKind:   in.ReferenceKind,
		OccurredAt:      in.OccurredAt,
		CreatedBy:       userID,
	}
}

func optionalID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}
