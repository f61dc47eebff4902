package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo traslados en memoria. Reproduce el índice único parcial de traslados abiertos.
type TransferRepo struct{ base }

func (r *TransferRepo) Create(_ context.Context, transfer *entity.TransferRequest) error {
	defer r.lock()()
	st := r.state()
	for _, t := range st.transfers {
		if t.TenantID != transfer.TenantID {
			continue
		}
		if t.ProductID == transfer.ProductID && t.Status.IsOpen() && transfer.Status.IsOpen() {
			return domain.ErrConflictingTransfer
		}
		if t.Number == transfer.Number {
			return domain.ErrDuplicate
		}
	}
	st.nextTransferID++
	transfer.ID = st.nextTransferID
	c := *transfer
	st.transfers[c.ID] = &c
	return nil
}

func (r *TransferRepo) GetByID(_ context.Context, tenantID string, id int64) (*entity.TransferRequest, error) {
	defer r.lock()()
	t, ok := r.state().transfers[id]
	if !ok || t.TenantID != tenantID {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (r *TransferRepo) FindOpenByProduct(_ context.Context, tenantID string, productID int64) (*entity.TransferRequest, error) {
	defer r.lock()()
	for _, t := range r.state().transfers {
		if t.TenantID == tenantID && t.ProductID == productID && t.Status.IsOpen() {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (r *TransferRepo) List(_ context.Context, tenantID string, f entity.TransferFilter) ([]*entity.TransferRequest, error) {
	defer r.lock()()
	var out []*entity.TransferRequest
	for _, t := range r.state().transfers {
		if t.TenantID != tenantID {
			continue
		}
		if f.ProductID != nil && t.ProductID != *f.ProductID {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *TransferRepo) Transition(_ context.Context, transfer *entity.TransferRequest, from entity.TransferStatus, fromVersion int) error {
	defer r.lock()()
	st := r.state()
	cur, ok := st.transfers[transfer.ID]
	if !ok || cur.TenantID != transfer.TenantID || cur.Status != from || cur.Version != fromVersion {
		return domain.ErrInvalidStateTransition
	}
	c := *transfer
	st.transfers[c.ID] = &c
	return nil
}
