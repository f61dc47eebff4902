package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, tenant_id, product_id, tag_label, kind, direction, quantity, unit_value, total_value,
	branch_id, counter_id, box_id, reference_number, reference_kind, occurred_at, business_date, recorded_at, created_by`

// MovementRepo libro de movimientos sobre PostgreSQL (usable con pool o tx). La tabla rechaza UPDATE y DELETE.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Append inserta el evento y completa ID y RecordedAt con lo que asigna la base.
func (r *MovementRepo) Append(ctx context.Context, e *entity.MovementEvent) error {
	query := `
		INSERT INTO movement_events (tenant_id, product_id, tag_label, kind, direction, quantity, unit_value, total_value,
			branch_id, counter_id, box_id, reference_number, reference_kind, occurred_at, business_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, recorded_at`
	err := r.q.QueryRow(ctx, query,
		e.TenantID, e.ProductID, e.TagLabel, e.Kind, e.Direction, e.Quantity, e.UnitValue, e.TotalValue,
		e.Location.BranchID, e.Location.CounterID, e.Location.BoxID, e.ReferenceNumber, e.ReferenceKind,
		e.OccurredAt, e.BusinessDate, nullableString(e.CreatedBy),
	).Scan(&e.ID, &e.RecordedAt)
	if err != nil {
		return fmt.Errorf("append movement: %w", mapError(err))
	}
	return nil
}

// List filtra el libro y ordena por (business_date, recorded_at, id).
func (r *MovementRepo) List(ctx context.Context, tenantID string, f entity.MovementFilter) ([]*entity.MovementEvent, error) {
	var (
		where = []string{"tenant_id = $1"}
		args  = []any{tenantID}
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ProductID != nil {
		add("product_id = $%d", *f.ProductID)
	}
	if f.BranchID != nil {
		add("branch_id = $%d", *f.BranchID)
	}
	if f.CounterID != nil {
		add("counter_id = $%d", *f.CounterID)
	}
	if f.BoxID != nil {
		add("box_id = $%d", *f.BoxID)
	}
	if len(f.Kinds) > 0 {
		kinds := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			kinds[i] = string(k)
		}
		add("kind = ANY($%d)", kinds)
	}
	if f.ReferenceNumber != "" {
		add("reference_number = $%d", f.ReferenceNumber)
	}
	if f.ReferenceKind != "" {
		add("reference_kind = $%d", f.ReferenceKind)
	}
	if f.From != nil {
		add("business_date >= $%d", entity.NormalizeDate(*f.From))
	}
	if f.To != nil {
		add("business_date <= $%d", entity.NormalizeDate(*f.To))
	}
	query := "SELECT " + movementColumns + " FROM movement_events WHERE " + strings.Join(where, " AND ") +
		" ORDER BY business_date, recorded_at, id"
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	return r.query(ctx, "list movements", query, args...)
}

// ListByProductDate eventos del día en orden de plegado.
func (r *MovementRepo) ListByProductDate(ctx context.Context, tenantID string, productID int64, date time.Time) ([]*entity.MovementEvent, error) {
	query := "SELECT " + movementColumns + ` FROM movement_events
		WHERE tenant_id = $1 AND product_id = $2 AND business_date = $3
		ORDER BY occurred_at, id`
	return r.query(ctx, "list movements by day", query, tenantID, productID, entity.NormalizeDate(date))
}

// FirstBusinessDate primera fecha con eventos del producto.
func (r *MovementRepo) FirstBusinessDate(ctx context.Context, tenantID string, productID int64) (*time.Time, error) {
	var first *time.Time
	err := r.q.QueryRow(ctx,
		`SELECT MIN(business_date) FROM movement_events WHERE tenant_id = $1 AND product_id = $2`,
		tenantID, productID,
	).Scan(&first)
	if err != nil {
		return nil, fmt.Errorf("first business date: %w", mapError(err))
	}
	if first != nil {
		d := entity.NormalizeDate(*first)
		first = &d
	}
	return first, nil
}

func (r *MovementRepo) query(ctx context.Context, op, query string, args ...any) ([]*entity.MovementEvent, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer rows.Close()
	var list []*entity.MovementEvent
	for rows.Next() {
		e, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.MovementEvent, error) {
	var (
		e         entity.MovementEvent
		createdBy *string
	)
	err := row.Scan(&e.ID, &e.TenantID, &e.ProductID, &e.TagLabel, &e.Kind, &e.Direction, &e.Quantity,
		&e.UnitValue, &e.TotalValue, &e.Location.BranchID, &e.Location.CounterID, &e.Location.BoxID,
		&e.ReferenceNumber, &e.ReferenceKind, &e.OccurredAt, &e.BusinessDate, &e.RecordedAt, &createdBy)
	if err != nil {
		return nil, err
	}
	e.BusinessDate = entity.NormalizeDate(e.BusinessDate)
	if createdBy != nil {
		e.CreatedBy = *createdBy
	}
	return &e, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
