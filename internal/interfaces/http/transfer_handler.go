package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/joyeria-ledger/internal/application/dto"
	"github.com/jhoicas/joyeria-ledger/internal/application/transfer"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
)

// TransferHandler flujo de traslados entre sucursales, vitrinas y cajas.
type TransferHandler struct {
	wf  *transfer.Workflow
	log zerolog.Logger
}

// NewTransferHandler construye el handler.
func NewTransferHandler(wf *transfer.Workflow, log zerolog.Logger) *TransferHandler {
	return &TransferHandler{wf: wf, log: log}
}

// Create godoc
// @Summary      Solicitar traslado
// @Description  El origen debe ser la última ubicación conocida y el producto no puede tener otro traslado abierto.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateTransferRequest  true  "Traslado"
// @Success      201   {object}  entity.TransferRequest
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	tenantID, userID, ok, err := identity(c)
	if !ok {
		return err
	}
	var in dto.CreateTransferRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	t, err := h.wf.Create(c.UserContext(), tenantID, transfer.CreateInput{
		ProductID:   in.ProductID,
		Type:        entity.TransferType(in.Type),
		Source:      in.Source.ToEntity(),
		Destination: in.Destination.ToEntity(),
		Reason:      in.Reason,
		Remarks:     in.Remarks,
		Actor:       userID,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

// GetByID godoc
// @Summary      Obtener traslado
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "ID"
// @Success      200  {object}  entity.TransferRequest
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id} [get]
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	tenantID, _, ok, err := identity(c)
	if !ok {
		return err
	}
	id, ok, err := idParam(c)
	if !ok {
		return err
	}
	t, err := h.wf.Get(c.UserContext(), tenantID, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(t)
}

// List godoc
// @Summary      Listar traslados
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        product_id  query     int     false  "Producto"
// @Param        status      query     string  false  "Estado"
// @Param        limit       query     int     false  "Límite"
// @Param        offset      query     int     false  "Desplazamiento"
// @Success      200         {object}  dto.TransferListResponse
// @Router       /api/transfers [get]
func (h *TransferHandler) List(c *fiber.Ctx) error {
	tenantID, _, ok, err := identity(c)
	if !ok {
		return err
	}
	var q dto.TransferQuery
	if ok, err := parseQuery(c, &q); !ok {
		return err
	}
	q.DefaultPage()
	filter := entity.TransferFilter{ProductID: optionalID(q.ProductID), Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		st := entity.TransferStatus(q.Status)
		filter.Status = &st
	}
	list, err := h.wf.List(c.UserContext(), tenantID, filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if list == nil {
		list = []*entity.TransferRequest{}
	}
	return c.JSON(dto.TransferListResponse{Items: list, Page: dto.PageResponse{Limit: q.Limit, Offset: q.Offset}})
}

// Approve godoc
// @Summary      Aprobar traslado (Pending -> InTransit)
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      int                        true   "ID"
// @Param        body  body      dto.TransferActionRequest  false  "Observaciones"
// @Success      200   {object}  entity.TransferRequest
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/approve [post]
func (h *TransferHandler) Approve(c *fiber.Ctx) error {
	return h.action(c, h.wf.Approve)
}

// Reject godoc
// @Summary      Rechazar traslado
// @Description  reason es obligatorio.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      int                        true  "ID"
// @Param        body  body      dto.TransferActionRequest  true  "Motivo"
// @Success      200   {object}  entity.TransferRequest
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/reject [post]
func (h *TransferHandler) Reject(c *fiber.Ctx) error {
	return h.action(c, h.wf.Reject)
}

// Complete godoc
// @Summary      Completar traslado (InTransit -> Completed)
// @Description  Escribe TransferOut y TransferIn en el libro y mueve la pieza a destino.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      int                        true   "ID"
// @Param        body  body      dto.TransferActionRequest  false  "Observaciones"
// @Success      200   {object}  entity.TransferRequest
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/complete [post]
func (h *TransferHandler) Complete(c *fiber.Ctx) error {
	return h.action(c, h.wf.Complete)
}

// Cancel godoc
// @Summary      Cancelar traslado
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      int                        true   "ID"
// @Param        body  body      dto.TransferActionRequest  false  "Observaciones"
// @Success      200   {object}  entity.TransferRequest
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	return h.action(c, h.wf.Cancel)
}

type transferAction func(ctx context.Context, tenantID string, id int64, in transfer.ActionInput) (*entity.TransferRequest, error)

func (h *TransferHandler) action(c *fiber.Ctx, fn transferAction) error {
	tenantID, userID, ok, err := identity(c)
	if !ok {
		return err
	}
	id, ok, err := idParam(c)
	if !ok {
		return err
	}
	var in dto.TransferActionRequest
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
	}
	t, err := fn(c.UserContext(), tenantID, id, transfer.ActionInput{Actor: userID, Remarks: in.Remarks, Reason: in.Reason})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(t)
}

func idParam(c *fiber.Ctx) (int64, bool, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "id inválido"})
	}
	return int64(id), true, nil
}
