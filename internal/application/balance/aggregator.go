// Package balance implementa el agregador de saldos diarios sobre el libro de movimientos.
package balance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/inventory"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

// Options límites operativos del agregador.
type Options struct {
	MaxGapDays     int // días sin calcular que se rellenan antes de fallar por integridad
	MaxRangeDays   int
	RangeChunkDays int // el lock del producto se libera entre tramos
	Concurrency    int // productos en paralelo en RecomputeAll
	RetryAttempts  int // reintentos por día ante conflictos transitorios
}

// DefaultOptions valores usados cuando la configuración no trae otros.
func DefaultOptions() Options {
	return Options{MaxGapDays: 3660, MaxRangeDays: 3660, RangeChunkDays: 31, Concurrency: 4, RetryAttempts: 3}
}

// Aggregator deriva una fila de DailyBalance por (tenant, producto, fecha) a partir del libro.
// El ciclo leer-plegar-upsert de un producto se serializa con el Locker y, dentro de cada
// transacción, con LockProduct del repositorio.
type Aggregator struct {
	txRunner  ports.TxRunner
	balances  repository.DailyBalanceRepository
	movements repository.MovementRepository
	products  repository.ProductRepository
	locker    ports.Locker
	opts      Options
	metrics   ports.Metrics
	log       zerolog.Logger
}

// NewAggregator construye el agregador.
func NewAggregator(
	txRunner ports.TxRunner,
	balances repository.DailyBalanceRepository,
	movements repository.MovementRepository,
	products repository.ProductRepository,
	locker ports.Locker,
	opts Options,
	metrics ports.Metrics,
	log zerolog.Logger,
) *Aggregator {
	def := DefaultOptions()
	if opts.MaxGapDays <= 0 {
		opts.MaxGapDays = def.MaxGapDays
	}
	if opts.MaxRangeDays <= 0 {
		opts.MaxRangeDays = def.MaxRangeDays
	}
	if opts.RangeChunkDays <= 0 {
		opts.RangeChunkDays = def.RangeChunkDays
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	if opts.RetryAttempts < 0 {
		opts.RetryAttempts = 0
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Aggregator{
		txRunner:  txRunner,
		balances:  balances,
		movements: movements,
		products:  products,
		locker:    locker,
		opts:      opts,
		metrics:   metrics,
		log:       log.With().Str("component", "balance_aggregator").Logger(),
	}
}

// Recompute recalcula el saldo de date. Si hay días sin calcular entre la última fila almacenada
// (o el primer movimiento del producto) y date, los materializa antes, en orden. Si ya había filas
// posteriores a date, las recalcula después para que cada apertura siga siendo el cierre del día anterior.
// Llamarlo dos veces sin eventos nuevos produce la misma fila.
func (a *Aggregator) Recompute(ctx context.Context, tenantID string, productID int64, date time.Time) (*entity.DailyBalance, error) {
	if err := checkKey(tenantID, productID); err != nil {
		return nil, err
	}
	date = entity.NormalizeDate(date)

	b, err := a.recomputeDay(ctx, tenantID, productID, date)
	if err != nil {
		return nil, err
	}
	if err := a.propagate(ctx, tenantID, productID, date); err != nil {
		return nil, err
	}
	return b, nil
}

func (a *Aggregator) recomputeDay(ctx context.Context, tenantID string, productID int64, date time.Time) (*entity.DailyBalance, error) {
	start := time.Now()
	unlock, err := a.locker.Acquire(ctx, ports.ProductLockKey(tenantID, productID))
	if err != nil {
		return nil, err
	}
	defer a.release(ctx, unlock, tenantID, productID)

	if err := a.fillGap(ctx, tenantID, productID, date); err != nil {
		a.observe(err, start)
		return nil, err
	}
	b, err := a.computeDay(ctx, tenantID, productID, date)
	a.observe(err, start)
	return b, err
}

// RecomputeRange recalcula [from, to] en orden ascendente, por tramos. Entre días revisa ctx:
// una cancelación deja todos los días ya escritos completos y devuelve los calculados hasta ahí.
// Las filas almacenadas después de to se recalculan al final; no forman parte del resultado.
func (a *Aggregator) RecomputeRange(ctx context.Context, tenantID string, productID int64, from, to time.Time) ([]entity.DailyBalance, error) {
	if err := checkKey(tenantID, productID); err != nil {
		return nil, err
	}
	from, to = entity.NormalizeDate(from), entity.NormalizeDate(to)
	if to.Before(from) {
		return nil, domain.Invalid(domain.ErrInvalidDateRange, "%s > %s", from.Format(entity.DateLayout), to.Format(entity.DateLayout))
	}
	if span := entity.DaysBetween(from, to) + 1; span > a.opts.MaxRangeDays {
		return nil, domain.Invalid(domain.ErrInvalidDateRange, "%d días excede el máximo de %d", span, a.opts.MaxRangeDays)
	}

	out, err := a.recomputeChunks(ctx, tenantID, productID, from, to, true)
	if err != nil {
		return out, err
	}
	return out, a.propagate(ctx, tenantID, productID, to)
}

func (a *Aggregator) recomputeChunks(ctx context.Context, tenantID string, productID int64, from, to time.Time, fill bool) ([]entity.DailyBalance, error) {
	out := make([]entity.DailyBalance, 0, entity.DaysBetween(from, to)+1)
	for chunkStart := from; !chunkStart.After(to); {
		chunkEnd := chunkStart.AddDate(0, 0, a.opts.RangeChunkDays-1)
		if chunkEnd.After(to) {
			chunkEnd = to
		}
		rows, err := a.recomputeChunk(ctx, tenantID, productID, chunkStart, chunkEnd, fill && chunkStart.Equal(from))
		out = append(out, rows...)
		if err != nil {
			return out, err
		}
		chunkStart = entity.NextDay(chunkEnd)
	}
	return out, nil
}

// propagate recalcula, por tramos y bajo el lock del producto, las filas ya almacenadas posteriores
// a after. Sin filas posteriores no hace nada.
func (a *Aggregator) propagate(ctx context.Context, tenantID string, productID int64, after time.Time) error {
	last, err := a.balances.LastDate(ctx, tenantID, productID)
	if err != nil {
		return fmt.Errorf("última fila almacenada: %w", err)
	}
	if last == nil || !last.After(after) {
		return nil
	}
	from := entity.NextDay(after)
	days := entity.DaysBetween(from, *last) + 1
	if days > a.opts.MaxRangeDays {
		err := domain.NewIntegrityError("propagate", fmt.Errorf("%d días almacenados después de %s (máximo %d)",
			days, after.Format(entity.DateLayout), a.opts.MaxRangeDays))
		a.log.Error().Err(err).Str("tenant", tenantID).Int64("product_id", productID).
			Msg("no se pudieron encadenar los días posteriores")
		return err
	}
	a.log.Debug().Str("tenant", tenantID).Int64("product_id", productID).
		Str("from", from.Format(entity.DateLayout)).Str("to", last.Format(entity.DateLayout)).
		Msg("recalculando días posteriores")
	_, err = a.recomputeChunks(ctx, tenantID, productID, from, *last, false)
	return err
}

func (a *Aggregator) recomputeChunk(ctx context.Context, tenantID string, productID int64, from, to time.Time, first bool) ([]entity.DailyBalance, error) {
	unlock, err := a.locker.Acquire(ctx, ports.ProductLockKey(tenantID, productID))
	if err != nil {
		return nil, err
	}
	defer a.release(ctx, unlock, tenantID, productID)

	if first {
		if err := a.fillGap(ctx, tenantID, productID, from); err != nil {
			return nil, err
		}
	}
	var rows []entity.DailyBalance
	for d := from; !d.After(to); d = entity.NextDay(d) {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		start := time.Now()
		b, err := a.computeDay(ctx, tenantID, productID, d)
		a.observe(err, start)
		if err != nil {
			return rows, err
		}
		rows = append(rows, *b)
	}
	return rows, nil
}

// RecomputeSummary resultado de un recálculo global.
type RecomputeSummary struct {
	Products  int     `json:"products"`
	Succeeded int     `json:"succeeded"`
	Failed    []int64 `json:"failed,omitempty"`
}

// RecomputeAll recalcula [from, to] para varios productos en paralelo (secuencial dentro de cada
// producto). Sin productIDs toma todos los del tenant. Un producto que falla no detiene a los demás;
// los errores se combinan.
func (a *Aggregator) RecomputeAll(ctx context.Context, tenantID string, productIDs []int64, from, to time.Time) (RecomputeSummary, error) {
	if tenantID == "" {
		return RecomputeSummary{}, domain.ErrUnauthorized
	}
	if len(productIDs) == 0 {
		ids, err := a.products.ListIDs(ctx, tenantID)
		if err != nil {
			return RecomputeSummary{}, fmt.Errorf("listar productos: %w", err)
		}
		productIDs = ids
	}

	var (
		mu      sync.Mutex
		summary = RecomputeSummary{Products: len(productIDs)}
		errs    error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for _, id := range productIDs {
		g.Go(func() error {
			_, err := a.RecomputeRange(gctx, tenantID, id, from, to)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed = append(summary.Failed, id)
				errs = multierr.Append(errs, fmt.Errorf("producto %d: %w", id, err))
				return nil
			}
			summary.Succeeded++
			return nil
		})
	}
	_ = g.Wait()
	if errs != nil {
		a.log.Error().Err(errs).Str("tenant", tenantID).Ints64("failed", summary.Failed).Msg("recálculo global con fallas")
	}
	return summary, errs
}

// Get devuelve la fila almacenada o una fila en cero si nunca se calculó. Nunca recalcula.
func (a *Aggregator) Get(ctx context.Context, tenantID string, productID int64, date time.Time) (*entity.DailyBalance, error) {
	if err := checkKey(tenantID, productID); err != nil {
		return nil, err
	}
	b, err := a.balances.Get(ctx, tenantID, productID, date)
	if err != nil {
		return nil, fmt.Errorf("consultar saldo: %w", err)
	}
	if b == nil {
		return entity.ZeroBalance(tenantID, productID, date), nil
	}
	return b, nil
}

// History filas almacenadas del producto en [from, to].
func (a *Aggregator) History(ctx context.Context, tenantID string, productID int64, from, to time.Time) ([]*entity.DailyBalance, error) {
	if err := checkKey(tenantID, productID); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, domain.ErrInvalidDateRange
	}
	return a.balances.ListRange(ctx, tenantID, productID, from, to)
}

// LocationBreakdown entradas y salidas del día por ubicación, leídas del libro.
func (a *Aggregator) LocationBreakdown(ctx context.Context, tenantID string, productID int64, date time.Time) ([]entity.LocationFlow, error) {
	if err := checkKey(tenantID, productID); err != nil {
		return nil, err
	}
	events, err := a.movements.ListByProductDate(ctx, tenantID, productID, entity.NormalizeDate(date))
	if err != nil {
		return nil, fmt.Errorf("listar movimientos: %w", err)
	}
	return inventory.LocationFlows(events), nil
}

// fillGap materializa, en orden, cada día sin fila entre la última almacenada antes de date
// (o el primer movimiento del producto) y date-1. Es un recorrido iterativo y acotado.
func (a *Aggregator) fillGap(ctx context.Context, tenantID string, productID int64, date time.Time) error {
	start, err := a.gapStart(ctx, tenantID, productID, date)
	if err != nil {
		return err
	}
	days := entity.DaysBetween(start, date)
	if days <= 0 {
		return nil
	}
	if days > a.opts.MaxGapDays {
		err := domain.NewIntegrityError("gap_fill", fmt.Errorf("%d días sin calcular antes de %s (máximo %d)",
			days, date.Format(entity.DateLayout), a.opts.MaxGapDays))
		a.log.Error().Err(err).Str("tenant", tenantID).Int64("product_id", productID).
			Str("date", date.Format(entity.DateLayout)).Msg("no se pudo establecer el día anterior")
		return err
	}

	a.log.Info().Str("tenant", tenantID).Int64("product_id", productID).
		Str("from", start.Format(entity.DateLayout)).Str("date", date.Format(entity.DateLayout)).
		Int("days", days).Msg("rellenando días sin calcular")
	for d := start; d.Before(date); d = entity.NextDay(d) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := a.computeDay(ctx, tenantID, productID, d); err != nil {
			return err
		}
	}
	a.metrics.GapDaysFilled(days)
	return nil
}

func (a *Aggregator) gapStart(ctx context.Context, tenantID string, productID int64, date time.Time) (time.Time, error) {
	latest, err := a.balances.LatestBefore(ctx, tenantID, productID, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("último saldo: %w", err)
	}
	if latest != nil {
		return entity.NextDay(latest.BusinessDate), nil
	}
	first, err := a.movements.FirstBusinessDate(ctx, tenantID, productID)
	if err != nil {
		return time.Time{}, fmt.Errorf("primer movimiento: %w", err)
	}
	if first != nil && first.Before(date) {
		return entity.NormalizeDate(*first), nil
	}
	return date, nil
}

// computeDay es la unidad atómica: una transacción que lee la apertura, pliega los eventos del día
// y hace upsert. Los conflictos transitorios se reintentan; agotados, son falla de integridad.
func (a *Aggregator) computeDay(ctx context.Context, tenantID string, productID int64, day time.Time) (*entity.DailyBalance, error) {
	var out *entity.DailyBalance
	err := ports.RunWithRetry(ctx, a.txRunner, a.opts.RetryAttempts, func(repos repository.Repositories) error {
		if err := repos.Balances.LockProduct(ctx, tenantID, productID); err != nil {
			return err
		}
		prev, err := repos.Balances.Get(ctx, tenantID, productID, entity.PrevDay(day))
		if err != nil {
			return fmt.Errorf("saldo anterior: %w", err)
		}
		if prev == nil {
			older, err := repos.Balances.LatestBefore(ctx, tenantID, productID, day)
			if err != nil {
				return fmt.Errorf("saldo anterior: %w", err)
			}
			if older != nil {
				return domain.NewIntegrityError("recompute", fmt.Errorf("falta el día %s; último calculado %s",
					entity.PrevDay(day).Format(entity.DateLayout), older.BusinessDate.Format(entity.DateLayout)))
			}
		}
		events, err := repos.Movements.ListByProductDate(ctx, tenantID, productID, day)
		if err != nil {
			return fmt.Errorf("movimientos del día: %w", err)
		}
		b := inventory.Fold(tenantID, productID, day, inventory.OpeningFrom(prev), events)
		if !b.Reconciles() {
			return domain.NewIntegrityError("recompute", fmt.Errorf("el cierre no concilia"))
		}
		if err := repos.Balances.Upsert(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil && domain.IsRetryable(err) {
		err = domain.NewIntegrityError("recompute", err)
	}
	if err != nil && errors.Is(err, domain.ErrIntegrity) {
		a.log.Error().Err(err).Str("tenant", tenantID).Int64("product_id", productID).
			Str("date", day.Format(entity.DateLayout)).Msg("falla de integridad en saldo diario")
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Aggregator) release(ctx context.Context, unlock ports.Unlock, tenantID string, productID int64) {
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		a.log.Warn().Err(err).Str("tenant", tenantID).Int64("product_id", productID).Msg("no se pudo liberar el lock")
	}
}

func (a *Aggregator) observe(err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	a.metrics.BalanceRecomputed(outcome, time.Since(start))
}

func checkKey(tenantID string, productID int64) error {
	if tenantID == "" {
		return domain.ErrUnauthorized
	}
	if productID <= 0 {
		return domain.Invalid(domain.ErrUnknownProduct, "product_id %d", productID)
	}
	return nil
}
