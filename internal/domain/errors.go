package domain

import (
	"errors"
	"fmt"
)

// Errores de validación: error del llamador, no se reintentan.
var (
	ErrInvalidInput     = errors.New("entrada inválida")
	ErrUnknownProduct   = errors.New("producto desconocido para el tenant")
	ErrInactiveProduct  = errors.New("producto inactivo")
	ErrInvalidKind      = errors.New("tipo o cantidad de movimiento inválido")
	ErrInvalidLocation  = errors.New("ubicación inválida")
	ErrMissingReason    = errors.New("motivo de rechazo requerido")
	ErrInvalidDateRange = errors.New("rango de fechas inválido")
	ErrSameLocation     = errors.New("origen y destino son la misma ubicación")
)

// ErrNotFound recurso inexistente dentro del tenant.
var ErrNotFound = errors.New("recurso no encontrado")

// ErrUnauthorized falta tenant o actor resueltos por el colaborador de autenticación.
var ErrUnauthorized = errors.New("no autorizado")

// Errores de conflicto: el estado actual no permite la operación; el llamador decide si reintenta.
var (
	ErrConflictingTransfer    = errors.New("el producto ya tiene un traslado abierto")
	ErrInvalidStateTransition = errors.New("transición de estado inválida")
	ErrLocationMismatch       = errors.New("el origen no coincide con la última ubicación conocida")
	ErrDuplicate              = errors.New("recurso duplicado")
)

// ErrConcurrentModification carrera perdida sobre un lock o una fila; se reintenta internamente
// y, agotados los intentos, llega al llamador como conflicto.
var ErrConcurrentModification = errors.New("modificación concurrente detectada")

// ErrIntegrity deriva entre libro mayor y saldos diarios. Nunca se silencia.
var ErrIntegrity = errors.New("error de integridad del libro de inventario")

// IntegrityError lleva el contexto de una falla de integridad (upsert agotado, relleno de huecos imposible).
type IntegrityError struct {
	Op  string
	Err error
}

func (e *IntegrityError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, ErrIntegrity)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrIntegrity, e.Err)
}

// Unwrap permite errors.Is(err, ErrIntegrity) y también llegar a la causa.
func (e *IntegrityError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrIntegrity}
	}
	return []error{ErrIntegrity, e.Err}
}

// NewIntegrityError envuelve cause como falla de integridad de la operación op.
func NewIntegrityError(op string, cause error) error {
	return &IntegrityError{Op: op, Err: cause}
}

// Kind clasifica un error para que los llamadores (HTTP, worker, CLI) decidan sin comparar mensajes.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindIntegrity  Kind = "integrity"
	KindInternal   Kind = "internal"
)

// KindOf devuelve la categoría del error. Integridad tiene prioridad porque puede envolver otras causas.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIntegrity):
		return KindIntegrity
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case IsValidation(err):
		return KindValidation
	case IsConflict(err):
		return KindConflict
	default:
		return KindInternal
	}
}

// IsValidation indica un error de entrada del llamador.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnknownProduct) ||
		errors.Is(err, ErrInactiveProduct) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrInvalidLocation) ||
		errors.Is(err, ErrMissingReason) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrSameLocation)
}

// IsConflict indica un error de estado.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflictingTransfer) ||
		errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrLocationMismatch) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsRetryable indica una carrera transitoria que puede tener éxito al reintentar.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// Invalid envuelve un error de validación con el detalle del campo.
func Invalid(base error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))
}
