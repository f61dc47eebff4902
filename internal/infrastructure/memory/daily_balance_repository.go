package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

var _ repository.DailyBalanceRepository = (*DailyBalanceRepo)(nil)

// DailyBalanceRepo saldos diarios en memoria.
type DailyBalanceRepo struct{ base }

func (r *DailyBalanceRepo) Get(_ context.Context, tenantID string, productID int64, date time.Time) (*entity.DailyBalance, error) {
	defer r.lock()()
	b, ok := r.state().balances[balanceKey{tenantID, productID, entity.NormalizeDate(date)}]
	if !ok {
		return nil, nil
	}
	c := *b
	return &c, nil
}

func (r *DailyBalanceRepo) LatestBefore(_ context.Context, tenantID string, productID int64, date time.Time) (*entity.DailyBalance, error) {
	defer r.lock()()
	date = entity.NormalizeDate(date)
	var latest *entity.DailyBalance
	for k, b := range r.state().balances {
		if k.tenant != tenantID || k.product != productID || !k.date.Before(date) {
			continue
		}
		if latest == nil || k.date.After(latest.BusinessDate) {
			latest = b
		}
	}
	if latest == nil {
		return nil, nil
	}
	c := *latest
	return &c, nil
}

func (r *DailyBalanceRepo) LastDate(_ context.Context, tenantID string, productID int64) (*time.Time, error) {
	defer r.lock()()
	var last *time.Time
	for k := range r.state().balances {
		if k.tenant != tenantID || k.product != productID {
			continue
		}
		if last == nil || k.date.After(*last) {
			d := k.date
			last = &d
		}
	}
	return last, nil
}

func (r *DailyBalanceRepo) Upsert(_ context.Context, balance *entity.DailyBalance) error {
	defer r.lock()()
	c := *balance
	c.BusinessDate = entity.NormalizeDate(c.BusinessDate)
	r.state().balances[balanceKey{c.TenantID, c.ProductID, c.BusinessDate}] = &c
	return nil
}

// LockProduct no hace nada: las transacciones en memoria ya son serializadas.
func (r *DailyBalanceRepo) LockProduct(context.Context, string, int64) error { return nil }

func (r *DailyBalanceRepo) ListRange(_ context.Context, tenantID string, productID int64, from, to time.Time) ([]*entity.DailyBalance, error) {
	defer r.lock()()
	from, to = entity.NormalizeDate(from), entity.NormalizeDate(to)
	var out []*entity.DailyBalance
	for k, b := range r.state().balances {
		if k.tenant == tenantID && k.product == productID && !k.date.Before(from) && !k.date.After(to) {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BusinessDate.Before(out[j].BusinessDate) })
	return out, nil
}
