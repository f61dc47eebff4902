package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/joyeria-ledger/docs"
	"github.com/jhoicas/joyeria-ledger/internal/bootstrap"
	httpRouter "github.com/jhoicas/joyeria-ledger/internal/interfaces/http"
	"github.com/jhoicas/joyeria-ledger/pkg/config"
	"github.com/jhoicas/joyeria-ledger/pkg/logger"
)

// @title                       Joyería Ledger API
// @version                     1.0
// @description                 Libro de movimientos, saldos diarios, traslados y verificación física.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: "api",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Str("recompute_mode", cfg.Ledger.RecomputeMode).
		Str("lock_backend", cfg.Ledger.LockBackend).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET requerido")
	}

	ctx := context.Background()
	deps, err := bootstrap.New(ctx, cfg, log, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar dependencias")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar dependencias")
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	docs.SwaggerInfo.Host = cfg.HTTP.Addr()
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Joyería Ledger API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		ProductUC:    deps.Products,
		Ledger:       deps.Ledger,
		Aggregator:   deps.Aggregator,
		Transfers:    deps.Transfers,
		Verification: deps.Verification,
		Scheduler:    deps.Scheduler,
		JWTSecret:    cfg.JWT.Secret,
		ServiceName:  cfg.App.Name,
		Log:          log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
