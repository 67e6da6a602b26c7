package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/stock-lotes/internal/application/dto"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
)

// ShopUseCase casos de uso CRUD para tiendas.
type ShopUseCase struct {
	repo repository.ShopRepository
}

// NewShopUseCase construye el caso de uso.
func NewShopUseCase(repo repository.ShopRepository) *ShopUseCase {
	return &ShopUseCase{repo: repo}
}

// Create crea una nueva tienda activa.
func (uc *ShopUseCase) Create(ctx context.Context, companyID string, in dto.CreateShopRequest) (*dto.ShopResponse, error) {
	now := time.Now()
	shop := &entity.Shop{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      in.Name,
		Address:   in.Address,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, shop); err != nil {
		return nil, err
	}
	return toShopResponse(shop), nil
}

// GetByID obtiene una tienda por ID. Devuelve nil si no existe o no es de la empresa.
func (uc *ShopUseCase) GetByID(ctx context.Context, companyID, id string) (*dto.ShopResponse, error) {
	shop, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if shop == nil || shop.CompanyID != companyID {
		return nil, nil
	}
	return toShopResponse(shop), nil
}

// Update actualiza una tienda (nombre, dirección, activación).
func (uc *ShopUseCase) Update(ctx context.Context, companyID, id string, in dto.UpdateShopRequest) (*dto.ShopResponse, error) {
	shop, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if shop == nil || shop.CompanyID != companyID {
		return nil, nil
	}
	if in.Name != nil {
		shop.Name = *in.Name
	}
	if in.Address != nil {
		shop.Address = *in.Address
	}
	if in.Active != nil {
		shop.Active = *in.Active
	}
	shop.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, shop); err != nil {
		return nil, err
	}
	return toShopResponse(shop), nil
}

// List lista tiendas por empresa con paginación.
func (uc *ShopUseCase) List(ctx context.Context, companyID string, limit, offset int) (*dto.ShopListResponse, error) {
	list, err := uc.repo.ListByCompany(ctx, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ShopResponse, 0, len(list))
	for _, s := range list {
		items = append(items, *toShopResponse(s))
	}
	return &dto.ShopListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func toShopResponse(s *entity.Shop) *dto.ShopResponse {
	if s == nil {
		return nil
	}
	return &dto.ShopResponse{
		ID:        s.ID,
		CompanyID: s.CompanyID,
		Name:      s.Name,
		Address:   s.Address,
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
