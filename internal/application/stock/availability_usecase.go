package stock

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-lotes/internal/domain"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
)

// AvailabilityUseCase calcula disponibilidad de stock agregando lotes activos.
// Solo lectura, sin efectos: el cache (si el caller quiere uno) vive fuera del
// motor y lo invalida el caller.
type AvailabilityUseCase struct {
	batchRepo repository.BatchRepository
}

// NewAvailabilityUseCase construye el caso de uso.
func NewAvailabilityUseCase(batchRepo repository.BatchRepository) *AvailabilityUseCase {
	return &AvailabilityUseCase{batchRepo: batchRepo}
}

// LocationStock cantidad disponible de un producto en una ubicación.
type LocationStock struct {
	Location entity.LocationRef
	Quantity decimal.Decimal
}

// GetAvailableStock devuelve la suma de remanentes de los lotes activos del
// producto en la ubicación.
func (uc *AvailabilityUseCase) GetAvailableStock(ctx context.Context, productID string, loc entity.LocationRef) (decimal.Decimal, error) {
	if productID == "" || !loc.Type.IsValid() || loc.ID == "" {
		return decimal.Zero, domain.ErrInvalidInput
	}
	batches, err := uc.batchRepo.ListActiveByLocation(ctx, productID, loc)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, b := range batches {
		total = total.Add(b.RemainingQuantity)
	}
	return total, nil
}

// GetEffectiveStock agrega el stock vendible del producto sobre las ubicaciones
// dadas. Si el producto está fijado (PinnedLocation), solo cuenta esa ubicación;
// el fijado es entrada explícita del producto, nunca se infiere de los lotes.
func (uc *AvailabilityUseCase) GetEffectiveStock(ctx context.Context, product *entity.Product, sellable []entity.LocationRef) (decimal.Decimal, error) {
	if product == nil {
		return decimal.Zero, domain.ErrInvalidInput
	}
	if product.IsPinned() {
		return uc.GetAvailableStock(ctx, product.ID, *product.PinnedLocation)
	}
	total := decimal.Zero
	for _, loc := range sellable {
		qty, err := uc.GetAvailableStock(ctx, product.ID, loc)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(qty)
	}
	return total, nil
}

// GetLocationBreakdown devuelve la disponibilidad por ubicación para las
// pantallas de stock ("Quedan N").
func (uc *AvailabilityUseCase) GetLocationBreakdown(ctx context.Context, productID string, locs []entity.LocationRef) ([]LocationStock, error) {
	out := make([]LocationStock, 0, len(locs))
	for _, loc := range locs {
		qty, err := uc.GetAvailableStock(ctx, productID, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, LocationStock{Location: loc, Quantity: qty})
	}
	return out, nil
}
