package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/joyeria-ledger/internal/bootstrap"
	"github.com/jhoicas/joyeria-ledger/internal/infrastructure/jobs"
	"github.com/jhoicas/joyeria-ledger/pkg/config"
	"github.com/jhoicas/joyeria-ledger/pkg/logger"
)

// worker procesa los recálculos diferidos (LEDGER_RECOMPUTE_MODE=deferred) desde la cola de Asynq.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: "worker",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.New(ctx, cfg, log, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar dependencias")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar dependencias")
		}
	}()

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   bootstrap.RedisConnOpt(cfg.Redis),
		Concurrency: cfg.Ledger.WorkerConcurrency,
		Handler:     jobs.NewRecomputeHandler(deps.Aggregator, deps.Metrics, log.Zerolog()),
		Log:         log.Zerolog(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("crear worker")
	}

	// Métricas y salud del worker en el puerto HTTP configurado.
	statusApp := fiber.New(fiber.Config{AppName: cfg.App.Name + "-worker", DisableStartupMessage: true})
	statusApp.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "worker"})
	})
	statusApp.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	go func() {
		if err := statusApp.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor de métricas finalizado")
		}
	}()

	log.Info().Int("concurrency", cfg.Ledger.WorkerConcurrency).Str("queue", jobs.QueueLedger).Msg("worker iniciado")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("worker finalizado con error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := statusApp.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor de métricas")
	}
	log.Info().Msg("worker detenido")
}
