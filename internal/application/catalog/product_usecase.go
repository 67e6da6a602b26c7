package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/stock-lotes/internal/application/dto"
	"github.com/tu-usuario/stock-lotes/internal/application/locations"
	"github.com/tu-usuario/stock-lotes/internal/domain"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
)

// ProductUseCase casos de uso CRUD para productos del catálogo.
// Fijar un producto a una ubicación (pinned) es decisión explícita del
// catálogo; se valida que la ubicación exista y esté activa.
type ProductUseCase struct {
	repo      repository.ProductRepository
	locations *locations.Resolver
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository, locations *locations.Resolver) *ProductUseCase {
	return &ProductUseCase{repo: repo, locations: locations}
}

// Create crea un producto. SKU duplicado en la empresa -> ErrDuplicate.
func (uc *ProductUseCase) Create(ctx context.Context, companyID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	existing, err := uc.repo.GetByCompanyAndSKU(ctx, companyID, in.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}

	var pinned *entity.LocationRef
	if in.PinnedLocation != nil {
		ref := in.PinnedLocation.ToRef()
		if err := uc.locations.EnsureActive(ctx, companyID, ref); err != nil {
			return nil, err
		}
		pinned = &ref
	}

	now := time.Now()
	product := &entity.Product{
		ID:             uuid.New().String(),
		CompanyID:      companyID,
		SKU:            in.SKU,
		Name:           in.Name,
		Description:    in.Description,
		Price:          in.Price,
		PinnedLocation: pinned,
		UnitMeasure:    in.UnitMeasure,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID. Devuelve nil si no existe o no es de la empresa.
func (uc *ProductUseCase) GetByID(ctx context.Context, companyID, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || product.CompanyID != companyID {
		return nil, nil
	}
	return toProductResponse(product), nil
}

// Update actualiza un producto, incluida la fijación a ubicación.
// ClearPinned desfija; PinnedLocation fija (validando la ubicación).
func (uc *ProductUseCase) Update(ctx context.Context, companyID, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || product.CompanyID != companyID {
		return nil, nil
	}
	if in.Name != nil {
		product.Name = *in.Name
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Price != nil {
		product.Price = *in.Price
	}
	if in.UnitMeasure != nil {
		product.UnitMeasure = *in.UnitMeasure
	}
	if in.ClearPinned {
		product.PinnedLocation = nil
	} else if in.PinnedLocation != nil {
		ref := in.PinnedLocation.ToRef()
		if err := uc.locations.EnsureActive(ctx, companyID, ref); err != nil {
			return nil, err
		}
		product.PinnedLocation = &ref
	}
	product.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// List lista productos por empresa con paginación.
func (uc *ProductUseCase) List(ctx context.Context, companyID string, limit, offset int) (*dto.ProductListResponse, error) {
	list, err := uc.repo.ListByCompany(ctx, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	var pinned *dto.LocationDTO
	if p.IsPinned() {
		d := dto.FromLocationRef(*p.PinnedLocation)
		pinned = &d
	}
	return &dto.ProductResponse{
		ID:             p.ID,
		CompanyID:      p.CompanyID,
		SKU:            p.SKU,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		UnitMeasure:    p.UnitMeasure,
		PinnedLocation: pinned,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
