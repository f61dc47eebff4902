package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jhoicas/joyeria-ledger/internal/bootstrap"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/infrastructure/jobs"
	"github.com/jhoicas/joyeria-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/joyeria-ledger/pkg/config"
	"github.com/jhoicas/joyeria-ledger/pkg/logger"
)

var (
	tenantFlag  = &cli.StringFlag{Name: "tenant", Usage: "joyería (tenant)", Required: true, EnvVars: []string{"LEDGER_TENANT"}}
	productFlag = &cli.Int64Flag{Name: "product", Usage: "ID del producto", Required: true}
	fromFlag    = &cli.StringFlag{Name: "from", Usage: "fecha inicial YYYY-MM-DD", Required: true}
	toFlag      = &cli.StringFlag{Name: "to", Usage: "fecha final YYYY-MM-DD", Required: true}
	asyncFlag   = &cli.BoolFlag{Name: "async", Usage: "encolar en Asynq en lugar de ejecutar aquí"}
)

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "ledgerctl",
		Usage:     "administración del libro de inventario",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "nivel de log"},
		},
		Commands: []*cli.Command{
			{
				Name:      "migrate",
				Usage:     "aplica migraciones goose (up, down, status, version, redo, reset)",
				ArgsUsage: "[comando] [args...]",
				Action:    migrateAction,
			},
			{
				Name:   "recompute",
				Usage:  "recalcula el saldo de un producto en una fecha",
				Flags:  []cli.Flag{tenantFlag, productFlag, &cli.StringFlag{Name: "date", Usage: "YYYY-MM-DD", Required: true}},
				Action: recomputeAction,
			},
			{
				Name:   "recompute-range",
				Usage:  "recalcula un producto en [from, to]",
				Flags:  []cli.Flag{tenantFlag, productFlag, fromFlag, toFlag, asyncFlag},
				Action: recomputeRangeAction,
			},
			{
				Name:  "recompute-all",
				Usage: "recalcula todos los productos del tenant en [from, to]",
				Flags: []cli.Flag{tenantFlag, fromFlag, toFlag, asyncFlag,
					&cli.Int64SliceFlag{Name: "product", Usage: "limitar a estos productos"}},
				Action: recomputeAllAction,
			},
		},
	}
}

func loadDeps(c *cli.Context) (*bootstrap.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: c.String("log-level"), Service: "ledgerctl"})
	return bootstrap.New(c.Context, cfg, log, nil)
}

func migrateAction(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Storage.Driver != "postgres" {
		return errors.New("migrate requiere STORAGE_DRIVER=postgres")
	}
	pool, err := postgres.NewPool(c.Context, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	command := "up"
	var args []string
	if c.NArg() > 0 {
		command, args = c.Args().First(), c.Args().Tail()
	}
	return postgres.Migrate(c.Context, pool, command, args...)
}

func recomputeAction(c *cli.Context) error {
	day, err := entity.ParseDate(c.String("date"))
	if err != nil {
		return fmt.Errorf("--date: %w", err)
	}
	deps, err := loadDeps(c)
	if err != nil {
		return err
	}
	defer deps.Close()

	b, err := deps.Aggregator.Recompute(c.Context, c.String("tenant"), c.Int64("product"), day)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, b)
}

func recomputeRangeAction(c *cli.Context) error {
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}
	tenant, product := c.String("tenant"), c.Int64("product")
	if c.Bool("async") {
		return withJobs(c, func(ctx context.Context, client *jobs.Client) error {
			return client.ScheduleRecompute(ctx, tenant, product, from, to)
		})
	}

	deps, err := loadDeps(c)
	if err != nil {
		return err
	}
	defer deps.Close()

	days, err := deps.Aggregator.RecomputeRange(c.Context, tenant, product, from, to)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, days)
}

func recomputeAllAction(c *cli.Context) error {
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}
	tenant := c.String("tenant")
	if c.Bool("async") {
		return withJobs(c, func(ctx context.Context, client *jobs.Client) error {
			return client.EnqueueRecomputeAll(ctx, tenant, from, to)
		})
	}

	deps, err := loadDeps(c)
	if err != nil {
		return err
	}
	defer deps.Close()

	summary, err := deps.Aggregator.RecomputeAll(c.Context, tenant, c.Int64Slice("product"), from, to)
	if perr := printJSON(c.App.Writer, summary); perr != nil && err == nil {
		err = perr
	}
	return err
}

// withJobs abre un cliente de Asynq solo para encolar; no requiere base de datos.
func withJobs(c *cli.Context, fn func(context.Context, *jobs.Client) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: c.String("log-level"), Service: "ledgerctl"})
	client := jobs.NewClient(bootstrap.RedisConnOpt(cfg.Redis), cfg.Ledger.JobUniqueTTL, log.Zerolog())
	defer client.Close()

	if err := fn(c.Context, client); err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, "encolado")
	return err
}

func dateRange(c *cli.Context) (from, to time.Time, err error) {
	if from, err = entity.ParseDate(c.String("from")); err != nil {
		return from, to, fmt.Errorf("--from: %w", err)
	}
	if to, err = entity.ParseDate(c.String("to")); err != nil {
		return from, to, fmt.Errorf("--to: %w", err)
	}
	return from, to, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
