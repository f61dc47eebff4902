package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/joyeria-ledger/internal/application/dto"
	"github.com/jhoicas/joyeria-ledger/internal/application/verification"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
)

// VerificationHandler sesiones de conteo físico por etiqueta.
type VerificationHandler struct {
	uc  *verification.UseCase
	log zerolog.Logger
}

// NewVerificationHandler construye el handler.
func NewVerificationHandler(uc *verification.UseCase, log zerolog.Logger) *VerificationHandler {
	return &VerificationHandler{uc: uc, log: log}
}

// Start godoc
// @Summary      Abrir sesión de verificación
// @Tags         verifications
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.StartVerificationRequest  true  "Alcance"
// @Success      201   {object}  entity.VerificationSession
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/verifications [post]
func (h *VerificationHandler) Start(c *fiber.Ctx) error {
	tenantID, userID, ok, err := identity(c)
	if !ok {
		return err
	}
	var in dto.StartVerificationRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	s, err := h.uc.Start(c.UserContext(), tenantID, entity.ProductScope{
		BranchID:   in.BranchID,
		CounterID:  in.CounterID,
		CategoryID: in.CategoryID,
	}, userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(s)
}

// Scan godoc
// @Summary      Registrar lectura de etiqueta
// @Description  Idempotente: repetir una etiqueta no cambia el resultado.
// @Tags         verifications
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      int              true  "Sesión"
// @Param        body  body      dto.ScanRequest  true  "Etiqueta"
// @Success      200   {object}  dto.ScanResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/verifications/{id}/scans [post]
func (h *VerificationHandler) Scan(c *fiber.Ctx) error {
	tenantID, _, ok, err := identity(c)
	if !ok {
		return err
	}
	id, ok, err := idParam(c)
	if !ok {
		return err
	}
	var in dto.ScanRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	fresh, err := h.uc.Scan(c.UserContext(), tenantID, id, in.TagLabel)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ScanResponse{SessionID: id, TagLabel: in.TagLabel, New: fresh})
}

// Close godoc
// @Summary      Cerrar sesión y obtener el resultado
// @Tags         verifications
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "Sesión"
// @Success      200  {object}  entity.VerificationSession
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/verifications/{id}/close [post]
func (h *VerificationHandler) Close(c *fiber.Ctx) error {
	tenantID, userID, ok, err := identity(c)
	if !ok {
		return err
	}
	id, ok, err := idParam(c)
	if !ok {
		return err
	}
	s, err := h.uc.Close(c.UserContext(), tenantID, id, userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(s)
}

// GetByID godoc
// @Summary      Obtener sesión
// @Tags         verifications
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "Sesión"
// @Success      200  {object}  entity.VerificationSession
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/verifications/{id} [get]
func (h *VerificationHandler) GetByID(c *fiber.Ctx) error {
	tenantID, _, ok, err := identity(c)
	if !ok {
		return err
	}
	id, ok, err := idParam(c)
	if !ok {
		return err
	}
	s, err := h.uc.Get(c.UserContext(), tenantID, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(s)
}
