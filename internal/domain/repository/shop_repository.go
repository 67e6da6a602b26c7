package repository

import (
	"context"

	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
)

// ShopRepository define el puerto de persistencia para Shop (DIP).
type ShopRepository interface {
	Create(ctx context.Context, shop *entity.Shop) error
	GetByID(ctx context.Context, id string) (*entity.Shop, error)
	Update(ctx context.Context, shop *entity.Shop) error
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Shop, error)
}
