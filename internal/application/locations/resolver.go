package locations

import (
	"context"
	"fmt"

	"github.com/tu-usuario/stock-lotes/internal/domain"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
)

// Resolver valida referencias de ubicación contra tiendas y bodegas reales.
// Lectura pura; lo comparten los motores de transferencia y venta.
type Resolver struct {
	shopRepo      repository.ShopRepository
	warehouseRepo repository.WarehouseRepository
}

// NewResolver construye el resolver.
func NewResolver(shopRepo repository.ShopRepository, warehouseRepo repository.WarehouseRepository) *Resolver {
	return &Resolver{shopRepo: shopRepo, warehouseRepo: warehouseRepo}
}

// EnsureActive verifica que la ubicación exista, pertenezca a la empresa y esté
// activa. Una ubicación desactivada es entrada inválida para el motor.
func (r *Resolver) EnsureActive(ctx context.Context, companyID string, loc entity.LocationRef) error {
	if !loc.Type.IsValid() || loc.ID == "" {
		return domain.ErrInvalidInput
	}
	switch loc.Type {
	case entity.LocationShop:
		shop, err := r.shopRepo.GetByID(ctx, loc.ID)
		if err != nil {
			return err
		}
		if shop == nil || (companyID != "" && shop.CompanyID != companyID) {
			return domain.ErrNotFound
		}
		if !shop.Active {
			return fmt.Errorf("tienda %s desactivada: %w", loc.ID, domain.ErrInvalidInput)
		}
	case entity.LocationWarehouse:
		wh, err := r.warehouseRepo.GetByID(ctx, loc.ID)
		if err != nil {
			return err
		}
		if wh == nil || (companyID != "" && wh.CompanyID != companyID) {
			return domain.ErrNotFound
		}
		if !wh.Active {
			return fmt.Errorf("bodega %s desactivada: %w", loc.ID, domain.ErrInvalidInput)
		}
	}
	return nil
}
