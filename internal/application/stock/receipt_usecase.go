package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-lotes/internal/application/locations"
	"github.com/tu-usuario/stock-lotes/internal/domain"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
)

// ReceiveStockUseCase registra la recepción de mercancía: crea un lote activo
// nuevo con su cantidad y base de costo. Es la única vía de entrada de stock
// además del lado destino de una transferencia.
type ReceiveStockUseCase struct {
	batchRepo   repository.BatchRepository
	productRepo repository.ProductRepository
	locations   *locations.Resolver
}

// NewReceiveStockUseCase construye el caso de uso.
func NewReceiveStockUseCase(
	batchRepo repository.BatchRepository,
	productRepo repository.ProductRepository,
	resolver *locations.Resolver,
) *ReceiveStockUseCase {
	return &ReceiveStockUseCase{batchRepo: batchRepo, productRepo: productRepo, locations: resolver}
}

// ReceiptInput entrada para una recepción de mercancía.
type ReceiptInput struct {
	CompanyID string
	UserID    string
	ProductID string
	Location  entity.LocationRef
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
	// ReceivedAt opcional: cero usa la hora actual. Fija el orden FIFO/LIFO.
	ReceivedAt time.Time
}

// Receive valida y crea el lote.
func (uc *ReceiveStockUseCase) Receive(ctx context.Context, input ReceiptInput) (*entity.StockBatch, error) {
	if !input.Quantity.GreaterThan(decimal.Zero) || input.UnitCost.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	product, err := uc.productRepo.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	if input.CompanyID != "" && product.CompanyID != input.CompanyID {
		return nil, domain.ErrForbidden
	}
	if err := uc.locations.EnsureActive(ctx, input.CompanyID, input.Location); err != nil {
		return nil, err
	}

	now := time.Now()
	receivedAt := input.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = now
	}
	batch := &entity.StockBatch{
		ID:                uuid.New().String(),
		ProductID:         input.ProductID,
		Location:          input.Location,
		OriginalQuantity:  input.Quantity,
		RemainingQuantity: input.Quantity,
		UnitCost:          input.UnitCost,
		ReceivedAt:        receivedAt,
		Status:            entity.BatchStatusActive,
		CreatedAt:         now,
	}
	if err := uc.batchRepo.Create(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}
