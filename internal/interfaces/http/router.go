package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/stock-lotes/internal/application/catalog"
	"github.com/tu-usuario/stock-lotes/internal/application/sale"
	"github.com/tu-usuario/stock-lotes/internal/application/stock"
	"github.com/tu-usuario/stock-lotes/internal/application/transfer"
	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	WarehouseUC    *catalog.WarehouseUseCase
	ShopUC         *catalog.ShopUseCase
	ProductUC      *catalog.ProductUseCase
	ReceiveStock   *stock.ReceiveStockUseCase
	Availability   *stock.AvailabilityUseCase
	EffectiveStock *stock.EffectiveStockUseCase
	TransferUC     *transfer.ExecuteTransferUseCase
	SaleUC         *sale.ReconcileSaleUseCase
	TransferRepo   repository.TransferRepository
	SaleRepo       repository.SaleDepletionRepository
	JWTSecret      string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Warehouses (protegido)
	warehouses := protected.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", warehouseHandler.Create)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)
	warehouses.Put("/:id", warehouseHandler.Update)

	// Shops (protegido)
	shops := protected.Group("/shops")
	shopHandler := NewShopHandler(deps.ShopUC)
	shops.Post("/", shopHandler.Create)
	shops.Get("/", shopHandler.List)
	shops.Get("/:id", shopHandler.GetByID)
	shops.Put("/:id", shopHandler.Update)

	// Products (protegido)
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", productHandler.Update)

	// Inventory: lotes y disponibilidad (protegido)
	invGroup := protected.Group("/inventory")
	stockHandler := NewStockHandler(deps.ReceiveStock, deps.Availability, deps.EffectiveStock)
	invGroup.Post("/batches", stockHandler.ReceiveBatch)
	invGroup.Get("/availability", stockHandler.GetAvailability)
	invGroup.Get("/effective/:productID", stockHandler.GetEffectiveStock)

	// Transfers (protegido)
	transfers := protected.Group("/transfers")
	transferHandler := NewTransferHandler(deps.TransferUC, deps.TransferRepo)
	transfers.Post("/", transferHandler.Execute)
	transfers.Get("/", transferHandler.List)
	transfers.Get("/:id", transferHandler.GetByID)
	transfers.Post("/:id/reverse", transferHandler.Reverse)

	// Sales: conciliación de ventas contra inventario (protegido)
	sales := protected.Group("/sales")
	saleHandler := NewSaleHandler(deps.SaleUC, deps.SaleRepo)
	sales.Post("/depletions", saleHandler.Deplete)
	sales.Get("/depletions", saleHandler.GetBySaleID)
	sales.Get("/depletions/:id", saleHandler.GetByID)
	sales.Post("/depletions/:id/reverse", saleHandler.Reverse)
}
