package balance

import (
	"context"
	"time"

	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
)

var _ ports.RecomputeScheduler = (*SyncScheduler)(nil)

// SyncScheduler recalcula en línea, dentro de la llamada.
type SyncScheduler struct {
	agg *Aggregator
}

// NewSyncScheduler construye el programador en línea.
func NewSyncScheduler(agg *Aggregator) *SyncScheduler {
	return &SyncScheduler{agg: agg}
}

func (s *SyncScheduler) ScheduleRecompute(ctx context.Context, tenantID string, productID int64, from, to time.Time) error {
	if from.Equal(to) {
		_, err := s.agg.Recompute(ctx, tenantID, productID, from)
		return err
	}
	_, err := s.agg.RecomputeRange(ctx, tenantID, productID, from, to)
	return err
}
