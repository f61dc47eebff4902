package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/joyeria-ledger/internal/application/dto"
	"github.com/jhoicas/joyeria-ledger/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// errorCodes código estable por error del dominio; el mensaje lleva el detalle.
var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrUnknownProduct, "UNKNOWN_PRODUCT"},
	{domain.ErrInactiveProduct, "INACTIVE_PRODUCT"},
	{domain.ErrInvalidKind, "INVALID_KIND"},
	{domain.ErrInvalidLocation, "INVALID_LOCATION"},
	{domain.ErrMissingReason, "MISSING_REASON"},
	{domain.ErrInvalidDateRange, "INVALID_DATE_RANGE"},
	{domain.ErrSameLocation, "SAME_LOCATION"},
	{domain.ErrConflictingTransfer, "CONFLICTING_TRANSFER"},
	{domain.ErrInvalidStateTransition, "INVALID_STATE_TRANSITION"},
	{domain.ErrLocationMismatch, "LOCATION_MISMATCH"},
	{domain.ErrDuplicate, "DUPLICATE"},
	{domain.ErrConcurrentModification, "CONCURRENT_MODIFICATION"},
}

// respondError traduce errores del dominio a HTTP: validación 400, no encontrado 404,
// conflicto 409, integridad e internos 500.
func respondError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	if errors.Is(err, domain.ErrUnauthorized) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	code := "INTERNAL"
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			code = ec.code
			break
		}
	}
	switch domain.KindOf(err) {
	case domain.KindValidation:
		if code == "INTERNAL" {
			code = "VALIDATION"
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
	case domain.KindNotFound:
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case domain.KindConflict:
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
	case domain.KindIntegrity:
		log.Error().Err(err).Str("path", c.Path()).Msg("error de integridad del libro")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTEGRITY", Message: err.Error()})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func validationFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
}

// parseBody decodifica y valida el cuerpo. Devuelve false si ya respondió.
func parseBody(c *fiber.Ctx, out any) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, badBody(c)
	}
	if err := validate.Struct(out); err != nil {
		return false, validationFailed(c, err)
	}
	return true, nil
}

// parseQuery decodifica y valida los query params.
func parseQuery(c *fiber.Ctx, out any) (bool, error) {
	if err := c.QueryParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: err.Error()})
	}
	if err := validate.Struct(out); err != nil {
		return false, validationFailed(c, err)
	}
	return true, nil
}

// identity tenant y actor del token; ok=false si ya respondió 401.
func identity(c *fiber.Ctx) (tenantID, userID string, ok bool, err error) {
	tenantID, userID = GetTenantID(c), GetUserID(c)
	if tenantID == "" || userID == "" {
		return "", "", false, c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	return tenantID, userID, true, nil
}
