package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

const transferColumns = `id, tenant_id, number, product_id, tag_label, type,
	src_branch_id, src_counter_id, src_box_id, dst_branch_id, dst_counter_id, dst_box_id,
	status, version, reason, remarks, rejection_reason,
	created_at, created_by, approved_at, approved_by, rejected_at, rejected_by,
	completed_at, completed_by, cancelled_at, cancelled_by, updated_at`

// TransferRepo solicitudes de traslado. El índice único parcial sobre traslados abiertos
// es la segunda barrera contra dos traslados simultáneos del mismo producto.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

func (r *TransferRepo) Create(ctx context.Context, t *entity.TransferRequest) error {
	query := `
		INSERT INTO transfer_requests (tenant_id, number, product_id, tag_label, type,
			src_branch_id, src_counter_id, src_box_id, dst_branch_id, dst_counter_id, dst_box_id,
			status, version, reason, remarks, created_at, created_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		t.TenantID, t.Number, t.ProductID, t.TagLabel, t.Type,
		t.Source.BranchID, t.Source.CounterID, t.Source.BoxID,
		t.Destination.BranchID, t.Destination.CounterID, t.Destination.BoxID,
		t.Status, t.Version, t.Reason, t.Remarks, t.CreatedAt, t.CreatedBy, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("create transfer: %w", mapError(err))
	}
	return nil
}

func (r *TransferRepo) GetByID(ctx context.Context, tenantID string, id int64) (*entity.TransferRequest, error) {
	return r.one(ctx, "SELECT "+transferColumns+" FROM transfer_requests WHERE tenant_id = $1 AND id = $2", tenantID, id)
}

func (r *TransferRepo) FindOpenByProduct(ctx context.Context, tenantID string, productID int64) (*entity.TransferRequest, error) {
	return r.one(ctx, "SELECT "+transferColumns+` FROM transfer_requests
		WHERE tenant_id = $1 AND product_id = $2 AND status IN ('Pending','InTransit')`, tenantID, productID)
}

// List traslados más recientes primero.
func (r *TransferRepo) List(ctx context.Context, tenantID string, f entity.TransferFilter) ([]*entity.TransferRequest, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if f.ProductID != nil {
		args = append(args, *f.ProductID)
		where = append(where, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	query := "SELECT " + transferColumns + " FROM transfer_requests WHERE " + strings.Join(where, " AND ") + " ORDER BY id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", mapError(err))
	}
	defer rows.Close()
	var list []*entity.TransferRequest
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Transition actualiza con concurrencia optimista: solo gana quien aún ve (from, fromVersion).
func (r *TransferRepo) Transition(ctx context.Context, t *entity.TransferRequest, from entity.TransferStatus, fromVersion int) error {
	query := `
		UPDATE transfer_requests SET
			status = $5, version = $6, rejection_reason = $7, remarks = $8,
			approved_at = $9, approved_by = $10, rejected_at = $11, rejected_by = $12,
			completed_at = $13, completed_by = $14, cancelled_at = $15, cancelled_by = $16, updated_at = $17
		WHERE tenant_id = $1 AND id = $2 AND status = $3 AND version = $4`
	tag, err := r.q.Exec(ctx, query,
		t.TenantID, t.ID, from, fromVersion,
		t.Status, t.Version, t.RejectionReason, t.Remarks,
		t.ApprovedAt, t.ApprovedBy, t.RejectedAt, t.RejectedBy,
		t.CompletedAt, t.CompletedBy, t.CancelledAt, t.CancelledBy, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("transition transfer: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: traslado %d ya no está en %s/v%d", domain.ErrInvalidStateTransition, t.ID, from, fromVersion)
	}
	return nil
}

func (r *TransferRepo) one(ctx context.Context, query string, args ...any) (*entity.TransferRequest, error) {
	t, err := scanTransfer(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", mapError(err))
	}
	return t, nil
}

func scanTransfer(row pgx.Row) (*entity.TransferRequest, error) {
	var t entity.TransferRequest
	err := row.Scan(&t.ID, &t.TenantID, &t.Number, &t.ProductID, &t.TagLabel, &t.Type,
		&t.Source.BranchID, &t.Source.CounterID, &t.Source.BoxID,
		&t.Destination.BranchID, &t.Destination.CounterID, &t.Destination.BoxID,
		&t.Status, &t.Version, &t.Reason, &t.Remarks, &t.RejectionReason,
		&t.CreatedAt, &t.CreatedBy, &t.ApprovedAt, &t.ApprovedBy, &t.RejectedAt, &t.RejectedBy,
		&t.CompletedAt, &t.CompletedBy, &t.CancelledAt, &t.CancelledBy, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
