package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiveBatchRequest body para POST /api/inventory/batches (entrada de
// mercancía: compra o producción). ReceivedAt vacío = ahora.
type ReceiveBatchRequest struct {
	ProductID  string          `json:"product_id" validate:"required"`
	Location   LocationDTO     `json:"location" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity" validate:"required"`
	UnitCost   decimal.Decimal `json:"unit_cost" validate:"required"`
	ReceivedAt *time.Time      `json:"received_at,omitempty"`
}

// BatchResponse salida de un lote de stock.
type BatchResponse struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	Location          LocationDTO     `json:"location"`
	OriginalQuantity  decimal.Decimal `json:"original_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	ReceivedAt        time.Time       `json:"received_at"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
}

// AvailabilityResponse disponibilidad de un producto en una ubicación.
type AvailabilityResponse struct {
	ProductID string          `json:"product_id"`
	Location  LocationDTO     `json:"location"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// LocationStockDTO cantidad disponible por ubicación (desglose "Quedan N").
type LocationStockDTO struct {
	Location LocationDTO     `json:"location"`
	Quantity decimal.Decimal `json:"quantity"`
}

// EffectiveStockResponse stock vendible efectivo de un producto.
type EffectiveStockResponse struct {
	ProductID string             `json:"product_id"`
	Quantity  decimal.Decimal    `json:"quantity"`
	Pinned    *LocationDTO       `json:"pinned_location,omitempty"`
	Breakdown []LocationStockDTO `json:"breakdown"`
}
