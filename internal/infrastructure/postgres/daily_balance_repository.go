package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

var _ repository.DailyBalanceRepository = (*DailyBalanceRepo)(nil)

const balanceColumns = `tenant_id, product_id, business_date,
	opening_qty, added_qty, sold_qty, returned_qty, transfer_in_qty, transfer_out_qty, adjusted_in_qty, adjusted_out_qty, closing_qty,
	opening_value, added_value, sold_value, returned_value, transfer_in_value, transfer_out_value, adjusted_in_value, adjusted_out_value, closing_value,
	event_count, last_event_id`

// DailyBalanceRepo saldos diarios sobre PostgreSQL.
type DailyBalanceRepo struct {
	q Querier
}

// NewDailyBalanceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDailyBalanceRepository(q Querier) *DailyBalanceRepo {
	return &DailyBalanceRepo{q: q}
}

func (r *DailyBalanceRepo) Get(ctx context.Context, tenantID string, productID int64, date time.Time) (*entity.DailyBalance, error) {
	query := "SELECT " + balanceColumns + ` FROM daily_balances
		WHERE tenant_id = $1 AND product_id = $2 AND business_date = $3`
	return r.one(ctx, "get daily balance", query, tenantID, productID, entity.NormalizeDate(date))
}

func (r *DailyBalanceRepo) LatestBefore(ctx context.Context, tenantID string, productID int64, date time.Time) (*entity.DailyBalance, error) {
	query := "SELECT " + balanceColumns + ` FROM daily_balances
		WHERE tenant_id = $1 AND product_id = $2 AND business_date < $3
		ORDER BY business_date DESC LIMIT 1`
	return r.one(ctx, "latest daily balance", query, tenantID, productID, entity.NormalizeDate(date))
}

func (r *DailyBalanceRepo) LastDate(ctx context.Context, tenantID string, productID int64) (*time.Time, error) {
	var last *time.Time
	err := r.q.QueryRow(ctx,
		`SELECT MAX(business_date) FROM daily_balances WHERE tenant_id = $1 AND product_id = $2`,
		tenantID, productID,
	).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("last daily balance date: %w", mapError(err))
	}
	if last != nil {
		d := entity.NormalizeDate(*last)
		last = &d
	}
	return last, nil
}

// Upsert escribe la fila completa del día; la clave es (tenant, producto, fecha).
func (r *DailyBalanceRepo) Upsert(ctx context.Context, b *entity.DailyBalance) error {
	query := `
		INSERT INTO daily_balances (` + balanceColumns + `, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, now())
		ON CONFLICT (tenant_id, product_id, business_date) DO UPDATE SET
			opening_qty = EXCLUDED.opening_qty, added_qty = EXCLUDED.added_qty, sold_qty = EXCLUDED.sold_qty,
			returned_qty = EXCLUDED.returned_qty, transfer_in_qty = EXCLUDED.transfer_in_qty,
			transfer_out_qty = EXCLUDED.transfer_out_qty, adjusted_in_qty = EXCLUDED.adjusted_in_qty,
			adjusted_out_qty = EXCLUDED.adjusted_out_qty, closing_qty = EXCLUDED.closing_qty,
			opening_value = EXCLUDED.opening_value, added_value = EXCLUDED.added_value, sold_value = EXCLUDED.sold_value,
			returned_value = EXCLUDED.returned_value, transfer_in_value = EXCLUDED.transfer_in_value,
			transfer_out_value = EXCLUDED.transfer_out_value, adjusted_in_value = EXCLUDED.adjusted_in_value,
			adjusted_out_value = EXCLUDED.adjusted_out_value, closing_value = EXCLUDED.closing_value,
			event_count = EXCLUDED.event_count, last_event_id = EXCLUDED.last_event_id, computed_at = now()`
	_, err := r.q.Exec(ctx, query,
		b.TenantID, b.ProductID, entity.NormalizeDate(b.BusinessDate),
		b.OpeningQty, b.AddedQty, b.SoldQty, b.ReturnedQty, b.TransferInQty, b.TransferOutQty, b.AdjustedInQty, b.AdjustedOutQty, b.ClosingQty,
		b.OpeningValue, b.AddedValue, b.SoldValue, b.ReturnedValue, b.TransferInValue, b.TransferOutValue, b.AdjustedInValue, b.AdjustedOutValue, b.ClosingValue,
		b.EventCount, b.LastEventID,
	)
	if err != nil {
		return fmt.Errorf("upsert daily balance: %w", mapError(err))
	}
	return nil
}

// LockProduct toma un advisory lock de transacción por (tenant, producto); se libera con commit o rollback.
func (r *DailyBalanceRepo) LockProduct(ctx context.Context, tenantID string, productID int64) error {
	_, err := r.q.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1 || ':' || $2::text, 0))`,
		tenantID, productID,
	)
	if err != nil {
		return fmt.Errorf("lock product balance: %w", mapError(err))
	}
	return nil
}

func (r *DailyBalanceRepo) ListRange(ctx context.Context, tenantID string, productID int64, from, to time.Time) ([]*entity.DailyBalance, error) {
	query := "SELECT " + balanceColumns + ` FROM daily_balances
		WHERE tenant_id = $1 AND product_id = $2 AND business_date BETWEEN $3 AND $4
		ORDER BY business_date`
	rows, err := r.q.Query(ctx, query, tenantID, productID, entity.NormalizeDate(from), entity.NormalizeDate(to))
	if err != nil {
		return nil, fmt.Errorf("list daily balances: %w", mapError(err))
	}
	defer rows.Close()
	var list []*entity.DailyBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily balance: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func (r *DailyBalanceRepo) one(ctx context.Context, op, query string, args ...any) (*entity.DailyBalance, error) {
	b, err := scanBalance(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return b, nil
}

func scanBalance(row pgx.Row) (*entity.DailyBalance, error) {
	var b entity.DailyBalance
	err := row.Scan(&b.TenantID, &b.ProductID, &b.BusinessDate,
		&b.OpeningQty, &b.AddedQty, &b.SoldQty, &b.ReturnedQty, &b.TransferInQty, &b.TransferOutQty, &b.AdjustedInQty, &b.AdjustedOutQty, &b.ClosingQty,
		&b.OpeningValue, &b.AddedValue, &b.SoldValue, &b.ReturnedValue, &b.TransferInValue, &b.TransferOutValue, &b.AdjustedInValue, &b.AdjustedOutValue, &b.ClosingValue,
		&b.EventCount, &b.LastEventID)
	if err != nil {
		return nil, err
	}
	b.BusinessDate = entity.NormalizeDate(b.BusinessDate)
	return &b, nil
}
