package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

var _ repository.VerificationRepository = (*VerificationRepo)(nil)

// VerificationRepo sesiones de verificación; el resultado se guarda como JSONB.
type VerificationRepo struct {
	q Querier
}

// NewVerificationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewVerificationRepository(q Querier) *VerificationRepo {
	return &VerificationRepo{q: q}
}

func (r *VerificationRepo) Create(ctx context.Context, s *entity.VerificationSession) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO verification_sessions (tenant_id, branch_id, counter_id, category_id, status, started_at, started_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		s.TenantID, s.Scope.BranchID, s.Scope.CounterID, s.Scope.CategoryID, s.Status, s.StartedAt, s.StartedBy,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create verification session: %w", mapError(err))
	}
	return nil
}

const sessionColumns = `id, tenant_id, branch_id, counter_id, category_id, status, started_at, started_by, closed_at, closed_by, result`

func (r *VerificationRepo) GetByID(ctx context.Context, tenantID string, id int64) (*entity.VerificationSession, error) {
	return r.one(ctx, "SELECT "+sessionColumns+" FROM verification_sessions WHERE tenant_id = $1 AND id = $2", tenantID, id)
}

// GetForUpdate bloquea la fila de la sesión: Scan y Close se excluyen entre sí.
func (r *VerificationRepo) GetForUpdate(ctx context.Context, tenantID string, id int64) (*entity.VerificationSession, error) {
	return r.one(ctx, "SELECT "+sessionColumns+" FROM verification_sessions WHERE tenant_id = $1 AND id = $2 FOR UPDATE", tenantID, id)
}

func (r *VerificationRepo) one(ctx context.Context, query string, args ...any) (*entity.VerificationSession, error) {
	var (
		s      entity.VerificationSession
		result []byte
	)
	err := r.q.QueryRow(ctx, query, args...).Scan(&s.ID, &s.TenantID, &s.Scope.BranchID, &s.Scope.CounterID,
		&s.Scope.CategoryID, &s.Status, &s.StartedAt, &s.StartedBy, &s.ClosedAt, &s.ClosedBy, &result)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get verification session: %w", mapError(err))
	}
	if len(result) > 0 {
		s.Result = &entity.VerificationResult{}
		if err := json.Unmarshal(result, s.Result); err != nil {
			return nil, fmt.Errorf("decode verification result: %w", err)
		}
	}
	return &s, nil
}

// AddScan inserta la lectura; ON CONFLICT DO NOTHING la vuelve idempotente.
func (r *VerificationRepo) AddScan(ctx context.Context, tenantID string, scan entity.VerificationScan) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO verification_scans (session_id, tag_label, scanned_at)
		SELECT id, $3, $4 FROM verification_sessions WHERE tenant_id = $1 AND id = $2
		ON CONFLICT (session_id, tag_label) DO NOTHING`,
		tenantID, scan.SessionID, scan.TagLabel, scan.ScannedAt,
	)
	if err != nil {
		return false, fmt.Errorf("add verification scan: %w", mapError(err))
	}
	return tag.RowsAffected() == 1, nil
}

func (r *VerificationRepo) ListScans(ctx context.Context, tenantID string, sessionID int64) ([]entity.VerificationScan, error) {
	rows, err := r.q.Query(ctx, `
		SELECT sc.session_id, sc.tag_label, sc.scanned_at
		FROM verification_scans sc JOIN verification_sessions s ON s.id = sc.session_id
		WHERE s.tenant_id = $1 AND sc.session_id = $2
		ORDER BY sc.scanned_at, sc.tag_label`, tenantID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list verification scans: %w", mapError(err))
	}
	scans, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entity.VerificationScan])
	if err != nil {
		return nil, fmt.Errorf("scan verification scans: %w", err)
	}
	return scans, nil
}

func (r *VerificationRepo) Close(ctx context.Context, s *entity.VerificationSession) error {
	result, err := json.Marshal(s.Result)
	if err != nil {
		return fmt.Errorf("encode verification result: %w", err)
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE verification_sessions SET status = $3, closed_at = $4, closed_by = $5, result = $6
		WHERE tenant_id = $1 AND id = $2 AND status = 'Open'`,
		s.TenantID, s.ID, s.Status, s.ClosedAt, s.ClosedBy, result,
	)
	if err != nil {
		return fmt.Errorf("close verification session: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidStateTransition
	}
	return nil
}
