package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto.
// PinnedLocation fija el producto a una sola ubicación vendible (opcional).
type CreateProductRequest struct {
	SKU            string          `json:"sku" validate:"required,min=1,max=100"`
	Name           string          `json:"name" validate:"required,min=1,max=200"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	UnitMeasure    string          `json:"unit_measure" validate:"required"`
	PinnedLocation *LocationDTO    `json:"pinned_location,omitempty"`
}

// UpdateProductRequest entrada para actualizar un producto. El costo no se
// actualiza aquí: vive en los lotes. ClearPinned=true desfija el producto.
type UpdateProductRequest struct {
	Name           *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description    *string          `json:"description"`
	Price          *decimal.Decimal `json:"price"`
	UnitMeasure    *string          `json:"unit_measure"`
	PinnedLocation *LocationDTO     `json:"pinned_location,omitempty"`
	ClearPinned    bool             `json:"clear_pinned,omitempty"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID             string          `json:"id"`
	CompanyID      string          `json:"company_id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	UnitMeasure    string          `json:"unit_measure"`
	PinnedLocation *LocationDTO    `json:"pinned_location,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
