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
	"github.com/tu-usuario/stock-lotes/internal/application/catalog"
	"github.com/tu-usuario/stock-lotes/internal/application/locations"
	"github.com/tu-usuario/stock-lotes/internal/application/sale"
	"github.com/tu-usuario/stock-lotes/internal/application/stock"
	"github.com/tu-usuario/stock-lotes/internal/application/transfer"
	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
	"github.com/tu-usuario/stock-lotes/internal/infrastructure/memory"
	"github.com/tu-usuario/stock-lotes/internal/infrastructure/postgres"
	httpRouter "github.com/tu-usuario/stock-lotes/internal/interfaces/http"
	"github.com/tu-usuario/stock-lotes/pkg/config"
	"github.com/tu-usuario/stock-lotes/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Engine.Store).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var (
		batchRepo      repository.BatchRepository
		transferRepo   repository.TransferRepository
		saleRepo       repository.SaleDepletionRepository
		shopRepo       repository.ShopRepository
		warehouseRepo  repository.WarehouseRepository
		productRepo    repository.ProductRepository
		transferRunner transfer.TxRunner
		saleRunner     sale.TxRunner
	)

	switch cfg.Engine.Store {
	case "memory":
		// Store en memoria: desarrollo y demos sin base de datos.
		store := memory.NewStore()
		batchRepo = store.Batches()
		transferRepo = store.Transfers()
		saleRepo = store.SaleDepletions()
		shopRepo = store.Shops()
		warehouseRepo = store.Warehouses()
		productRepo = store.Products()
		transferRunner = store
		saleRunner = store
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()

		batchRepo = postgres.NewBatchRepository(pool)
		transferRepo = postgres.NewTransferRepository(pool)
		saleRepo = postgres.NewSaleDepletionRepository(pool)
		shopRepo = postgres.NewShopRepository(pool)
		warehouseRepo = postgres.NewWarehouseRepository(pool)
		productRepo = postgres.NewProductRepository(pool)
		txRunner := postgres.NewTxRunner(pool)
		transferRunner = txRunner
		saleRunner = txRunner
	}

	resolver := locations.NewResolver(shopRepo, warehouseRepo)

	warehouseUC := catalog.NewWarehouseUseCase(warehouseRepo)
	shopUC := catalog.NewShopUseCase(shopRepo)
	productUC := catalog.NewProductUseCase(productRepo, resolver)

	receiveUC := stock.NewReceiveStockUseCase(batchRepo, productRepo, resolver)
	availabilityUC := stock.NewAvailabilityUseCase(batchRepo)
	effectiveUC := stock.NewEffectiveStockUseCase(availabilityUC, productRepo, shopRepo, warehouseRepo)

	transferUC := transfer.NewExecuteTransferUseCase(
		transferRunner, batchRepo, transferRepo, productRepo, resolver, cfg.Engine.MaxRetries,
	)
	saleUC := sale.NewReconcileSaleUseCase(
		saleRunner, batchRepo, saleRepo, resolver, cfg.Engine.MaxRetries,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Lotes API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		WarehouseUC:    warehouseUC,
		ShopUC:         shopUC,
		ProductUC:      productUC,
		ReceiveStock:   receiveUC,
		Availability:   availabilityUC,
		EffectiveStock: effectiveUC,
		TransferUC:     transferUC,
		SaleUC:         saleUC,
		TransferRepo:   transferRepo,
		SaleRepo:       saleRepo,
		JWTSecret:      cfg.JWT.Secret,
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
