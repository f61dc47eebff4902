package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/joyeria-ledger/internal/application/dto"
	"github.com/jhoicas/joyeria-ledger/internal/application/usecase"
)

// ProductHandler registro de piezas en el modelo de lectura del libro.
type ProductHandler struct {
	uc  *usecase.ProductUseCase
	log zerolog.Logger
}

// NewProductHandler construye el handler.
func NewProductHandler(uc *usecase.ProductUseCase, log zerolog.Logger) *ProductHandler {
	return &ProductHandler{uc: uc, log: log}
}

// Register godoc
// @Summary      Registrar o actualizar una pieza
// @Description  La ubicación solo se toma en el primer registro; después la mueven los traslados.
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RegisterProductRequest  true  "Pieza"
// @Success      201   {object}  dto.ProductResponse
// @Success      200   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Register(c *fiber.Ctx) error {
	tenantID, _, ok, err := identity(c)
	if !ok {
		return err
	}
	var in dto.RegisterProductRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, created, err := h.uc.RegisterPlacement(c.UserContext(), tenantID, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(out)
}

// GetByID godoc
// @Summary      Obtener pieza
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
	tenantID, _, ok, err := identity(c)
	if !ok {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "id inválido"})
	}
	out, err := h.uc.Get(c.UserContext(), tenantID, int64(id))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}
