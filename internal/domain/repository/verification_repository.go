package repository

import (
	"context"

	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
)

// VerificationRepository puerto de sesiones de verificación y sus lecturas.
type VerificationRepository interface {
	Create(ctx context.Context, session *entity.VerificationSession) error
	GetByID(ctx context.Context, tenantID string, id int64) (*entity.VerificationSession, error)
	// GetForUpdate como GetByID, bloqueando la sesión hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, tenantID string, id int64) (*entity.VerificationSession, error)
	// AddScan devuelve false si la etiqueta ya estaba leída en la sesión.
	AddScan(ctx context.Context, tenantID string, scan entity.VerificationScan) (bool, error)
	ListScans(ctx context.Context, tenantID string, sessionID int64) ([]entity.VerificationScan, error)
	// Close pasa la sesión de Open a Closed con su resultado; si ya estaba cerrada devuelve
	// domain.ErrInvalidStateTransition.
	Close(ctx context.Context, session *entity.VerificationSession) error
}
