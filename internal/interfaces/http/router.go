package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jhoicas/joyeria-ledger/internal/application/balance"
	"github.com/jhoicas/joyeria-ledger/internal/application/inventory"
	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
	"github.com/jhoicas/joyeria-ledger/internal/application/transfer"
	"github.com/jhoicas/joyeria-ledger/internal/application/usecase"
	"github.com/jhoicas/joyeria-ledger/internal/application/verification"
	"github.com/jhoicas/joyeria-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProductUC    *usecase.ProductUseCase
	Ledger       *inventory.MovementLedger
	Aggregator   *balance.Aggregator
	Transfers    *transfer.Workflow
	Verification *verification.UseCase
	Scheduler    ports.RecomputeScheduler
	Gatherer     prometheus.Gatherer // nil = registro por defecto
	JWTSecret    string
	ServiceName  string
	Log          zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	supervisors := RequireRole(jwt.RoleAdmin, jwt.RoleSupervisor)

	// Products
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC, deps.Log)
	products.Post("/", supervisors, productHandler.Register)
	products.Get("/:id", productHandler.GetByID)

	// Movements
	movements := protected.Group("/movements")
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.Scheduler, deps.Log)
	movements.Post("/", inventoryHandler.RegisterMovement)
	movements.Post("/bulk", supervisors, inventoryHandler.RegisterBulk)
	movements.Get("/", inventoryHandler.ListMovements)

	// Balances
	balances := protected.Group("/balances")
	balanceHandler := NewBalanceHandler(deps.Aggregator, deps.Log)
	balances.Post("/recompute-all", RequireRole(jwt.RoleAdmin), balanceHandler.RecomputeAll)
	balances.Post("/recompute-range/:productId", supervisors, balanceHandler.RecomputeRange)
	balances.Post("/recompute/:productId/:date", supervisors, balanceHandler.Recompute)
	balances.Get("/:productId", balanceHandler.History)
	balances.Get("/:productId/:date", balanceHandler.Get)
	balances.Get("/:productId/:date/locations", balanceHandler.Locations)

	// Transfers
	transfers := protected.Group("/transfers")
	transferHandler := NewTransferHandler(deps.Transfers, deps.Log)
	transfers.Post("/", transferHandler.Create)
	transfers.Get("/", transferHandler.List)
	transfers.Get("/:id", transferHandler.GetByID)
	transfers.Post("/:id/approve", supervisors, transferHandler.Approve)
	transfers.Post("/:id/reject", supervisors, transferHandler.Reject)
	transfers.Post("/:id/complete", transferHandler.Complete)
	transfers.Post("/:id/cancel", transferHandler.Cancel)

	// Verifications
	verifications := protected.Group("/verifications")
	verificationHandler := NewVerificationHandler(deps.Verification, deps.Log)
	verifications.Post("/", verificationHandler.Start)
	verifications.Get("/:id", verificationHandler.GetByID)
	verifications.Post("/:id/scans", verificationHandler.Scan)
	verifications.Post("/:id/close", verificationHandler.Close)
}
