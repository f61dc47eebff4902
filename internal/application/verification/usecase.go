// Package verification implementa las sesiones de conteo físico por etiqueta.
package verification

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

const txRetries = 3

// UseCase sesiones de verificación. Solo lee productos y ubicaciones; nunca escribe en el libro.
type UseCase struct {
	txRunner ports.TxRunner
	sessions repository.VerificationRepository
	log      zerolog.Logger
	now      func() time.Time
}

// NewUseCase construye el caso de uso.
func NewUseCase(txRunner ports.TxRunner, sessions repository.VerificationRepository, log zerolog.Logger) *UseCase {
	return &UseCase{
		txRunner: txRunner,
		sessions: sessions,
		log:      log.With().Str("component", "verification").Logger(),
		now:      time.Now,
	}
}

// Start abre una sesión sobre la sucursal (y opcionalmente vitrina y categoría) indicada.
func (uc *UseCase) Start(ctx context.Context, tenantID string, scope entity.ProductScope, actor string) (*entity.VerificationSession, error) {
	if tenantID == "" || actor == "" {
		return nil, domain.ErrUnauthorized
	}
	if scope.BranchID <= 0 || (scope.CounterID != nil && *scope.CounterID <= 0) {
		return nil, domain.Invalid(domain.ErrInvalidLocation, "alcance de verificación")
	}
	s := &entity.VerificationSession{
		TenantID:  tenantID,
		Scope:     scope,
		Status:    entity.VerificationOpen,
		StartedAt: uc.now().UTC(),
		StartedBy: actor,
	}
	if err := uc.sessions.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("crear sesión: %w", err)
	}
	return s, nil
}

// Scan registra la lectura de una etiqueta. Leer dos veces la misma etiqueta no tiene efecto.
// La sesión se bloquea mientras se registra, así ninguna lectura entra después de un Close.
// Devuelve true si la lectura era nueva.
func (uc *UseCase) Scan(ctx context.Context, tenantID string, sessionID int64, tagLabel string) (bool, error) {
	if tenantID == "" {
		return false, domain.ErrUnauthorized
	}
	tagLabel = strings.TrimSpace(tagLabel)
	if tagLabel == "" {
		return false, domain.Invalid(domain.ErrInvalidInput, "etiqueta vacía")
	}
	var added bool
	err := ports.RunWithRetry(ctx, uc.txRunner, txRetries, func(repos repository.Repositories) error {
		s, err := openSession(ctx, repos, tenantID, sessionID)
		if err != nil {
			return err
		}
		added, err = repos.Verifications.AddScan(ctx, tenantID, entity.VerificationScan{
			SessionID: s.ID,
			TagLabel:  tagLabel,
			ScannedAt: uc.now().UTC(),
		})
		return err
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// Close compara lo esperado (productos activos ubicados en el alcance) con lo leído y cierra la sesión.
func (uc *UseCase) Close(ctx context.Context, tenantID string, sessionID int64, actor string) (*entity.VerificationSession, error) {
	if actor == "" {
		return nil, domain.ErrUnauthorized
	}
	var out *entity.VerificationSession
	err := ports.RunWithRetry(ctx, uc.txRunner, txRetries, func(repos repository.Repositories) error {
		s, err := openSession(ctx, repos, tenantID, sessionID)
		if err != nil {
			return err
		}
		expected, err := repos.Products.ListByScope(ctx, tenantID, s.Scope)
		if err != nil {
			return fmt.Errorf("productos esperados: %w", err)
		}
		scans, err := repos.Verifications.ListScans(ctx, tenantID, sessionID)
		if err != nil {
			return fmt.Errorf("lecturas: %w", err)
		}

		now := uc.now().UTC()
		s.Status = entity.VerificationClosed
		s.ClosedAt = &now
		s.ClosedBy = actor
		s.Result = Reconcile(expected, scans)
		if err := repos.Verifications.Close(ctx, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("tenant", tenantID).Int64("session_id", sessionID).
		Int("expected", out.Result.Expected).Int("missing", len(out.Result.Missing)).
		Int("unexpected", len(out.Result.Unexpected)).Msg("sesión de verificación cerrada")
	return out, nil
}

// Get devuelve la sesión o domain.ErrNotFound.
func (uc *UseCase) Get(ctx context.Context, tenantID string, sessionID int64) (*entity.VerificationSession, error) {
	if tenantID == "" {
		return nil, domain.ErrUnauthorized
	}
	s, err := uc.sessions.GetByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("consultar sesión: %w", err)
	}
	if s == nil {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func openSession(ctx context.Context, repos repository.Repositories, tenantID string, sessionID int64) (*entity.VerificationSession, error) {
	s, err := repos.Verifications.GetForUpdate(ctx, tenantID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("consultar sesión: %w", err)
	}
	if s == nil {
		return nil, domain.ErrNotFound
	}
	if s.Status != entity.VerificationOpen {
		return nil, fmt.Errorf("%w: sesión %d cerrada", domain.ErrInvalidStateTransition, sessionID)
	}
	return s, nil
}

// Reconcile cruza productos esperados y lecturas. Las listas salen ordenadas.
func Reconcile(expected []*entity.Product, scans []entity.VerificationScan) *entity.VerificationResult {
	res := &entity.VerificationResult{
		Expected:   len(expected),
		Matched:    []string{},
		Missing:    []string{},
		Unexpected: []string{},
	}
	want := make(map[string]bool, len(expected))
	for _, p := range expected {
		if p.TagLabel == nil || *p.TagLabel == "" {
			res.Untagged++
			continue
		}
		want[*p.TagLabel] = true
	}
	seen := make(map[string]bool, len(scans))
	for _, s := range scans {
		if seen[s.TagLabel] {
			continue
		}
		seen[s.TagLabel] = true
		if want[s.TagLabel] {
			res.Matched = append(res.Matched, s.TagLabel)
		} else {
			res.Unexpected = append(res.Unexpected, s.TagLabel)
		}
	}
	for tag := range want {
		if !seen[tag] {
			res.Missing = append(res.Missing, tag)
		}
	}
	res.Scanned = len(seen)
	sort.Strings(res.Matched)
	sort.Strings(res.Missing)
	sort.Strings(res.Unexpected)
	return res
}
