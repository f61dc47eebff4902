package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/joyeria-ledger/internal/application/balance"
	"github.com/jhoicas/joyeria-ledger/internal/application/dto"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
)

// BalanceHandler consulta y recálculo de saldos diarios.
type BalanceHandler struct {
	agg *balance.Aggregator
	log zerolog.Logger
}

// NewBalanceHandler construye el handler.
func NewBalanceHandler(agg *balance.Aggregator, log zerolog.Logger) *BalanceHandler {
	return &BalanceHandler{agg: agg, log: log}
}

// Get godoc
// @Summary      Saldo de un día
// @Description  Fila almacenada o fila en cero si nunca se calculó. No recalcula.
// @Tags         balances
// @Security     Bearer
// @Produce      json
// @Param        productId  path      int     true  "Producto"
// @Param        date       path      string  true  "YYYY-MM-DD"
// @Success      200        {object}  entity.DailyBalance
// @Failure      400        {object}  dto.ErrorResponse
// @Router       /api/balances/{productId}/{date} [get]
func (h *BalanceHandler) Get(c *fiber.Ctx) error {
	tenantID, productID, day, ok, err := h.keyParams(c)
	if !ok {
		return err
	}
	b, err := h.agg.Get(c.UserContext(), tenantID, productID, day)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(b)
}

// History godoc
// @Summary      Historia de saldos almacenados
// @Tags         balances
// @Security     Bearer
// @Produce      json
// @Param        productId  path      int     true  "Producto"
// @Param        from       query     string  true  "YYYY-MM-DD"
// @Param        to         query     string  true  "YYYY-MM-DD"
// @Success      200        {object}  dto.BalanceHistoryResponse
// @Failure      400        {object}  dto.ErrorResponse
// @Router       /api/balances/{productId} [get]
func (h *BalanceHandler) History(c *fiber.Ctx) error {
	tenantID, _, ok, err := identity(c)
	if !ok {
		return err
	}
	productID, ok, err := productParam(c)
	if !ok {
		return err
	}
	from, to, ok, err := rangeQuery(c)
	if !ok {
		return err
	}
	rows, err := h.agg.History(c.UserContext(), tenantID, productID, from, to)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if rows == nil {
		rows = []*entity.DailyBalance{}
	}
	return c.JSON(dto.BalanceHistoryResponse{ProductID: productID, Items: rows})
}

// Locations godoc
// @Summary      Entradas y salidas por ubicación en un día
// @Tags         balances
// @Security     Bearer
// @Produce      json
// @Param        productId  path      int     true  "Producto"
// @Param        date       path      string  true  "YYYY-MM-DD"
// @Success      200        {object}  dto.LocationBreakdownResponse
// @Router       /api/balances/{productId}/{date}/locations [get]
func (h *BalanceHandler) Locations(c *fiber.Ctx) error {
	tenantID, productID, day, ok, err := h.keyParams(c)
	if !ok {
		return err
	}
	flows, err := h.agg.LocationBreakdown(c.UserContext(), tenantID, productID, day)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if flows == nil {
		flows = []entity.LocationFlow{}
	}
	return c.JSON(dto.LocationBreakdownResponse{ProductID: productID, BusinessDate: day.Format(entity.DateLayout), Locations: flows})
}

// Recompute godoc
// @Summary      Recalcular el saldo de un día
// @Description  Rellena los días faltantes anteriores y hace upsert del día pedido.
// @Tags         balances
// @Security     Bearer
// @Produce      json
// @Param        productId  path      int     true  "Producto"
// @Param        date       path      string  true  "YYYY-MM-DD"
// @Success      200        {object}  entity.DailyBalance
// @Failure      409        {object}  dto.ErrorResponse
// @Failure      500        {object}  dto.ErrorResponse
// @Router       /api/balances/recompute/{productId}/{date} [post]
func (h *BalanceHandler) Recompute(c *fiber.Ctx) error {
	tenantID, productID, day, ok, err := h.keyParams(c)
	if !ok {
		return err
	}
	b, err := h.agg.Recompute(c.UserContext(), tenantID, productID, day)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(b)
}

// RecomputeRange godoc
// @Summary      Recalcular un rango de días
// @Tags         balances
// @Security     Bearer
// @Produce      json
// @Param        productId  path      int     true  "Producto"
// @Param        from       query     string  true  "YYYY-MM-DD"
// @Param        to         query     string  true  "YYYY-MM-DD"
// @Success      200        {array}   entity.DailyBalance
// @Failure      400        {object}  dto.ErrorResponse
// @Router       /api/balances/recompute-range/{productId} [post]
func (h *BalanceHandler) RecomputeRange(c *fiber.Ctx) error {
	tenantID, _, ok, err := identity(c)
	if !ok {
		return err
	}
	productID, ok, err := productParam(c)
	if !ok {
		return err
	}
	from, to, ok, err := rangeQuery(c)
	if !ok {
		return err
	}
	days, err := h.agg.RecomputeRange(c.UserContext(), tenantID, productID, from, to)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(days)
}

// RecomputeAll godoc
// @Summary      Recalcular un rango para todos los productos del tenant
// @Tags         balances
// @Security     Bearer
// @Produce      json
// @Param        from  query     string  true  "YYYY-MM-DD"
// @Param        to    query     string  true  "YYYY-MM-DD"
// @Success      200   {object}  balance.RecomputeSummary
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/balances/recompute-all [post]
func (h *BalanceHandler) RecomputeAll(c *fiber.Ctx) error {
	tenantID, _, ok, err := identity(c)
	if !ok {
		return err
	}
	from, to, ok, err := rangeQuery(c)
	if !ok {
		return err
	}
	summary, err := h.agg.RecomputeAll(c.UserContext(), tenantID, nil, from, to)
	if err != nil {
		h.log.Error().Err(err).Str("tenant", tenantID).Ints64("failed", summary.Failed).Msg("recálculo global con fallos")
		return c.Status(fiber.StatusInternalServerError).JSON(summary)
	}
	return c.JSON(summary)
}

func (h *BalanceHandler) keyParams(c *fiber.Ctx) (tenantID string, productID int64, day time.Time, ok bool, err error) {
	if tenantID, _, ok, err = identity(c); !ok {
		return
	}
	if productID, ok, err = productParam(c); !ok {
		return
	}
	day, perr := entity.ParseDate(c.Params("date"))
	if perr != nil {
		return "", 0, day, false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_DATE", Message: "fecha YYYY-MM-DD"})
	}
	return tenantID, productID, day, true, nil
}

func productParam(c *fiber.Ctx) (int64, bool, error) {
	id, err := c.ParamsInt("productId")
	if err != nil || id <= 0 {
		return 0, false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "productId inválido"})
	}
	return int64(id), true, nil
}

func rangeQuery(c *fiber.Ctx) (from, to time.Time, ok bool, err error) {
	from, ferr := entity.ParseDate(c.Query("from"))
	to, terr := entity.ParseDate(c.Query("to"))
	if ferr != nil || terr != nil {
		return from, to, false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_DATE", Message: "from y to con formato YYYY-MM-DD"})
	}
	return from, to, true, nil
}
