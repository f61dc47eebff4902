// Package bootstrap arma las dependencias compartidas por cmd/api, cmd/worker y cmd/ledgerctl.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/jhoicas/joyeria-ledger/internal/application/balance"
	"github.com/jhoicas/joyeria-ledger/internal/application/inventory"
	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
	"github.com/jhoicas/joyeria-ledger/internal/application/transfer"
	"github.com/jhoicas/joyeria-ledger/internal/application/usecase"
	"github.com/jhoicas/joyeria-ledger/internal/application/verification"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
	"github.com/jhoicas/joyeria-ledger/internal/infrastructure/jobs"
	"github.com/jhoicas/joyeria-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/joyeria-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/joyeria-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/joyeria-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/joyeria-ledger/pkg/config"
	"github.com/jhoicas/joyeria-ledger/pkg/logger"
)

// Container casos de uso ya cableados según la configuración.
type Container struct {
	Config  *config.Config
	Log     *logger.Logger
	Pool    *pgxpool.Pool // nil con STORAGE_DRIVER=memory
	Metrics *metrics.Prometheus

	TxRunner ports.TxRunner
	Repos    repository.Repositories

	Products     *usecase.ProductUseCase
	Ledger       *inventory.MovementLedger
	Aggregator   *balance.Aggregator
	Transfers    *transfer.Workflow
	Verification *verification.UseCase

	Scheduler ports.RecomputeScheduler
	Jobs      *jobs.Client // nil en modo sync

	closers []func() error
}

// New conecta persistencia, lock y cola y construye los casos de uso.
// registerer nil usa el registro por defecto de Prometheus.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, registerer prometheus.Registerer) (c *Container, err error) {
	c = &Container{Config: cfg, Log: log, Metrics: metrics.New(registerer)}
	defer func() {
		if err != nil {
			err = multierr.Append(err, c.Close())
			c = nil
		}
	}()

	loc, err := cfg.Ledger.Location()
	if err != nil {
		return nil, err
	}

	var balanceTx ports.TxRunner
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		c.TxRunner = store
		balanceTx = store
		c.Repos = store.Repositories()
		log.Warn().Msg("STORAGE_DRIVER=memory: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		c.Pool = pool
		c.closers = append(c.closers, func() error { pool.Close(); return nil })
		c.TxRunner = postgres.NewTxRunner(pool)
		balanceTx = postgres.NewTxRunner(pool, postgres.WithIsolation(pgx.ReadCommitted))
		c.Repos = postgres.NewRepositories(pool)
	}

	locker, err := c.newLocker(ctx)
	if err != nil {
		return nil, err
	}

	c.Ledger = inventory.NewMovementLedger(c.Repos.Products, c.Repos.Movements, c.TxRunner, loc, c.Metrics, log.Component("movement_ledger"))
	c.Aggregator = balance.NewAggregator(balanceTx, c.Repos.Balances, c.Repos.Movements, c.Repos.Products, locker,
		balance.Options{
			MaxGapDays:     cfg.Ledger.MaxGapDays,
			MaxRangeDays:   cfg.Ledger.MaxRangeDays,
			RangeChunkDays: cfg.Ledger.RangeChunkDays,
			Concurrency:    cfg.Ledger.Concurrency,
			RetryAttempts:  cfg.Ledger.RetryAttempts,
		}, c.Metrics, log.Zerolog())

	if cfg.Ledger.RecomputeMode == config.RecomputeDeferred {
		c.Jobs = jobs.NewClient(RedisConnOpt(cfg.Redis), cfg.Ledger.JobUniqueTTL, log.Zerolog())
		c.closers = append(c.closers, c.Jobs.Close)
		c.Scheduler = c.Jobs
	} else {
		c.Scheduler = balance.NewSyncScheduler(c.Aggregator)
	}

	c.Products = usecase.NewProductUseCase(c.TxRunner, c.Repos.Products)
	c.Transfers = transfer.NewWorkflow(c.TxRunner, c.Repos.Transfers, c.Ledger, c.Scheduler, c.Metrics, log.Zerolog())
	c.Verification = verification.NewUseCase(c.TxRunner, c.Repos.Verifications, log.Zerolog())
	return c, nil
}

func (c *Container) newLocker(ctx context.Context) (ports.Locker, error) {
	cfg := c.Config
	if cfg.Ledger.LockBackend != config.LockRedis {
		return lock.NewLocalLocker(cfg.Ledger.LockWait), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	c.closers = append(c.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("conexión a Redis (lock): %w", err)
	}
	return lock.NewRedisLocker(client, cfg.Ledger.LockTTL, cfg.Ledger.LockWait)
}

// Close libera conexiones en orden inverso al de apertura.
func (c *Container) Close() error {
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, c.closers[i]())
	}
	c.closers = nil
	return err
}

// RedisConnOpt opciones de Asynq a partir de la configuración de Redis.
func RedisConnOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}
