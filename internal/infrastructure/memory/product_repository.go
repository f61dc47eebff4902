package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo productos en memoria.
type ProductRepo struct{ base }

func (r *ProductRepo) Create(_ context.Context, product *entity.Product) error {
	defer r.lock()()
	st := r.state()
	k := productKey{product.TenantID, product.ID}
	if _, ok := st.products[k]; ok {
		return domain.ErrDuplicate
	}
	for pk, p := range st.products {
		if pk.tenant == product.TenantID && p.SKU == product.SKU {
			return fmt.Errorf("%w: sku %s", domain.ErrDuplicate, product.SKU)
		}
	}
	c := *product
	st.products[k] = &c
	return nil
}

func (r *ProductRepo) Update(_ context.Context, product *entity.Product) error {
	defer r.lock()()
	st := r.state()
	k := productKey{product.TenantID, product.ID}
	cur, ok := st.products[k]
	if !ok {
		return domain.ErrNotFound
	}
	c := *product
	c.Location = cur.Location
	c.CreatedAt = cur.CreatedAt
	st.products[k] = &c
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, tenantID string, id int64) (*entity.Product, error) {
	defer r.lock()()
	p, ok := r.state().products[productKey{tenantID, id}]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

// GetForUpdate equivale a GetByID: dentro de Run el store ya está bloqueado.
func (r *ProductRepo) GetForUpdate(ctx context.Context, tenantID string, id int64) (*entity.Product, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *ProductRepo) UpdateLocation(_ context.Context, tenantID string, id int64, loc entity.Location, at time.Time) error {
	defer r.lock()()
	st := r.state()
	k := productKey{tenantID, id}
	cur, ok := st.products[k]
	if !ok {
		return domain.ErrNotFound
	}
	c := *cur
	c.Location = loc
	c.UpdatedAt = at
	st.products[k] = &c
	return nil
}

func (r *ProductRepo) ListByScope(_ context.Context, tenantID string, scope entity.ProductScope) ([]*entity.Product, error) {
	defer r.lock()()
	var out []*entity.Product
	for k, p := range r.state().products {
		if k.tenant != tenantID || !p.Active || p.Location.BranchID != scope.BranchID {
			continue
		}
		if scope.CounterID != nil && p.Location.CounterID != *scope.CounterID {
			continue
		}
		if scope.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *scope.CategoryID) {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ProductRepo) ListIDs(_ context.Context, tenantID string) ([]int64, error) {
	defer r.lock()()
	var ids []int64
	for k := range r.state().products {
		if k.tenant == tenantID {
			ids = append(ids, k.id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
