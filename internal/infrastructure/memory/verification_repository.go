package memory

import (
	"context"
	"slices"

	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

var _ repository.VerificationRepository = (*VerificationRepo)(nil)

// VerificationRepo sesiones de verificación en memoria.
type VerificationRepo struct{ base }

func (r *VerificationRepo) Create(_ context.Context, session *entity.VerificationSession) error {
	defer r.lock()()
	st := r.state()
	st.nextSessionID++
	session.ID = st.nextSessionID
	c := *session
	st.sessions[c.ID] = &c
	return nil
}

func (r *VerificationRepo) GetByID(_ context.Context, tenantID string, id int64) (*entity.VerificationSession, error) {
	defer r.lock()()
	s, ok := r.state().sessions[id]
	if !ok || s.TenantID != tenantID {
		return nil, nil
	}
	c := *s
	return &c, nil
}

// GetForUpdate equivale a GetByID: dentro de Run el store ya está bloqueado.
func (r *VerificationRepo) GetForUpdate(ctx context.Context, tenantID string, id int64) (*entity.VerificationSession, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *VerificationRepo) AddScan(_ context.Context, tenantID string, scan entity.VerificationScan) (bool, error) {
	defer r.lock()()
	st := r.state()
	s, ok := st.sessions[scan.SessionID]
	if !ok || s.TenantID != tenantID {
		return false, domain.ErrNotFound
	}
	k := scanKey{scan.SessionID, scan.TagLabel}
	if st.scanned[k] {
		return false, nil
	}
	st.scanned[k] = true
	st.scans[scan.SessionID] = append(st.scans[scan.SessionID], scan)
	return true, nil
}

func (r *VerificationRepo) ListScans(_ context.Context, tenantID string, sessionID int64) ([]entity.VerificationScan, error) {
	defer r.lock()()
	st := r.state()
	s, ok := st.sessions[sessionID]
	if !ok || s.TenantID != tenantID {
		return nil, nil
	}
	return slices.Clone(st.scans[sessionID]), nil
}

func (r *VerificationRepo) Close(_ context.Context, session *entity.VerificationSession) error {
	defer r.lock()()
	st := r.state()
	cur, ok := st.sessions[session.ID]
	if !ok || cur.TenantID != session.TenantID {
		return domain.ErrNotFound
	}
	if cur.Status != entity.VerificationOpen {
		return domain.ErrInvalidStateTransition
	}
	c := *session
	st.sessions[c.ID] = &c
	return nil
}
