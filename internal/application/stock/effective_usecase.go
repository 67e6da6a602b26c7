package stock

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-lotes/internal/domain"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
)

// maxLocations tope de ubicaciones consideradas al agregar stock vendible.
const maxLocations = 500

// EffectiveStockUseCase resuelve el stock vendible efectivo de un producto:
// carga el producto, reúne las ubicaciones vendibles activas de la empresa
// (tiendas y bodegas) y delega la agregación en AvailabilityUseCase. Un
// producto fijado solo cuenta su ubicación fijada.
type EffectiveStockUseCase struct {
	availability  *AvailabilityUseCase
	productRepo   repository.ProductRepository
	shopRepo      repository.ShopRepository
	warehouseRepo repository.WarehouseRepository
}

// NewEffectiveStockUseCase construye el caso de uso.
func NewEffectiveStockUseCase(
	availability *AvailabilityUseCase,
	productRepo repository.ProductRepository,
	shopRepo repository.ShopRepository,
	warehouseRepo repository.WarehouseRepository,
) *EffectiveStockUseCase {
	return &EffectiveStockUseCase{
		availability:  availability,
		productRepo:   productRepo,
		shopRepo:      shopRepo,
		warehouseRepo: warehouseRepo,
	}
}

// EffectiveStock resultado del cálculo: total vendible y desglose por ubicación.
type EffectiveStock struct {
	ProductID string
	Quantity  decimal.Decimal
	Pinned    *entity.LocationRef
	Breakdown []LocationStock
}

// Effective calcula el stock vendible del producto para la empresa.
func (uc *EffectiveStockUseCase) Effective(ctx context.Context, companyID, productID string) (*EffectiveStock, error) {
	if companyID == "" || productID == "" {
		return nil, domain.ErrInvalidInput
	}
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	if product.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}

	sellable, err := uc.sellableLocations(ctx, companyID)
	if err != nil {
		return nil, err
	}

	total, err := uc.availability.GetEffectiveStock(ctx, product, sellable)
	if err != nil {
		return nil, err
	}

	breakdownLocs := sellable
	if product.IsPinned() {
		breakdownLocs = []entity.LocationRef{*product.PinnedLocation}
	}
	breakdown, err := uc.availability.GetLocationBreakdown(ctx, productID, breakdownLocs)
	if err != nil {
		return nil, err
	}

	return &EffectiveStock{
		ProductID: productID,
		Quantity:  total,
		Pinned:    product.PinnedLocation,
		Breakdown: breakdown,
	}, nil
}

// sellableLocations reúne las referencias de todas las tiendas y bodegas
// activas de la empresa.
func (uc *EffectiveStockUseCase) sellableLocations(ctx context.Context, companyID string) ([]entity.LocationRef, error) {
	var locs []entity.LocationRef

	shops, err := uc.shopRepo.ListByCompany(ctx, companyID, maxLocations, 0)
	if err != nil {
		return nil, err
	}
	for _, s := range shops {
		if s.Active {
			locs = append(locs, s.Ref())
		}
	}

	warehouses, err := uc.warehouseRepo.ListByCompany(ctx, companyID, maxLocations, 0)
	if err != nil {
		return nil, err
	}
	for _, w := range warehouses {
		if w.Active {
			locs = append(locs, w.Ref())
		}
	}
	return locs, nil
}
