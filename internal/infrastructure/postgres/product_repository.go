package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, tenant_id, sku, tag_label, category_id, active, unit_value,
	branch_id, counter_id, box_id, created_at, updated_at`

// ProductRepo implementación sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un producto con su ubicación inicial.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.TenantID, p.SKU, p.TagLabel, p.CategoryID, p.Active, p.UnitValue,
		p.Location.BranchID, p.Location.CounterID, p.Location.BoxID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create product: %w", mapError(err))
	}
	return nil
}

// Update actualiza atributos; la ubicación no se toca.
func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	query := `
		UPDATE products SET sku = $3, tag_label = $4, category_id = $5, active = $6, unit_value = $7, updated_at = $8
		WHERE tenant_id = $1 AND id = $2`
	tag, err := r.q.Exec(ctx, query, p.TenantID, p.ID, p.SKU, p.TagLabel, p.CategoryID, p.Active, p.UnitValue, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update product: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, tenantID string, id int64) (*entity.Product, error) {
	return r.one(ctx, "SELECT "+productColumns+" FROM products WHERE tenant_id = $1 AND id = $2", tenantID, id)
}

// GetForUpdate igual que GetByID pero bloquea la fila hasta el fin de la tx.
func (r *ProductRepo) GetForUpdate(ctx context.Context, tenantID string, id int64) (*entity.Product, error) {
	return r.one(ctx, "SELECT "+productColumns+" FROM products WHERE tenant_id = $1 AND id = $2 FOR UPDATE", tenantID, id)
}

func (r *ProductRepo) UpdateLocation(ctx context.Context, tenantID string, id int64, loc entity.Location, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE products SET branch_id = $3, counter_id = $4, box_id = $5, updated_at = $6
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, loc.BranchID, loc.CounterID, loc.BoxID, at,
	)
	if err != nil {
		return fmt.Errorf("update product location: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByScope productos activos ubicados en la sucursal (y vitrina/categoría si vienen).
func (r *ProductRepo) ListByScope(ctx context.Context, tenantID string, scope entity.ProductScope) ([]*entity.Product, error) {
	query := "SELECT " + productColumns + ` FROM products
		WHERE tenant_id = $1 AND active AND branch_id = $2
		  AND ($3::bigint IS NULL OR counter_id = $3)
		  AND ($4::bigint IS NULL OR category_id = $4)
		ORDER BY id`
	rows, err := r.q.Query(ctx, query, tenantID, scope.BranchID, scope.CounterID, scope.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("list products by scope: %w", mapError(err))
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *ProductRepo) ListIDs(ctx context.Context, tenantID string) ([]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM products WHERE tenant_id = $1 ORDER BY id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list product ids: %w", mapError(err))
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan product ids: %w", err)
	}
	return ids, nil
}

func (r *ProductRepo) one(ctx context.Context, query string, args ...any) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", mapError(err))
	}
	return p, nil
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.TenantID, &p.SKU, &p.TagLabel, &p.CategoryID, &p.Active, &p.UnitValue,
		&p.Location.BranchID, &p.Location.CounterID, &p.Location.BoxID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
