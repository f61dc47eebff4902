package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo libro en memoria, solo agregar.
type MovementRepo struct{ base }

func (r *MovementRepo) Append(_ context.Context, event *entity.MovementEvent) error {
	defer r.lock()()
	st := r.state()
	st.nextMovementID++
	event.ID = st.nextMovementID
	event.RecordedAt = r.store.now().UTC()
	stored := *event
	st.movements = append(st.movements, &stored)
	return nil
}

func (r *MovementRepo) List(_ context.Context, tenantID string, f entity.MovementFilter) ([]*entity.MovementEvent, error) {
	defer r.lock()()
	var out []*entity.MovementEvent
	for _, e := range r.state().movements {
		if e.TenantID == tenantID && matches(e, f) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.BusinessDate.Equal(b.BusinessDate) {
			return a.BusinessDate.Before(b.BusinessDate)
		}
		if !a.RecordedAt.Equal(b.RecordedAt) {
			return a.RecordedAt.Before(b.RecordedAt)
		}
		return a.ID < b.ID
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *MovementRepo) ListByProductDate(_ context.Context, tenantID string, productID int64, date time.Time) ([]*entity.MovementEvent, error) {
	defer r.lock()()
	date = entity.NormalizeDate(date)
	var out []*entity.MovementEvent
	for _, e := range r.state().movements {
		if e.TenantID == tenantID && e.ProductID == productID && e.BusinessDate.Equal(date) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MovementRepo) FirstBusinessDate(_ context.Context, tenantID string, productID int64) (*time.Time, error) {
	defer r.lock()()
	var first *time.Time
	for _, e := range r.state().movements {
		if e.TenantID != tenantID || e.ProductID != productID {
			continue
		}
		if first == nil || e.BusinessDate.Before(*first) {
			d := e.BusinessDate
			first = &d
		}
	}
	return first, nil
}

func matches(e *entity.MovementEvent, f entity.MovementFilter) bool {
	switch {
	case f.ProductID != nil && e.ProductID != *f.ProductID:
		return false
	case f.BranchID != nil && e.Location.BranchID != *f.BranchID:
		return false
	case f.CounterID != nil && e.Location.CounterID != *f.CounterID:
		return false
	case f.BoxID != nil && (e.Location.BoxID == nil || *e.Location.BoxID != *f.BoxID):
		return false
	case len(f.Kinds) > 0 && !slices.Contains(f.Kinds, e.Kind):
		return false
	case f.ReferenceNumber != "" && e.ReferenceNumber != f.ReferenceNumber:
		return false
	case f.ReferenceKind != "" && e.ReferenceKind != f.ReferenceKind:
		return false
	case f.From != nil && e.BusinessDate.Before(entity.NormalizeDate(*f.From)):
		return false
	case f.To != nil && e.BusinessDate.After(entity.NormalizeDate(*f.To)):
		return false
	}
	return true
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
