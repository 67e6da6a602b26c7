package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleLineRequest línea de venta a conciliar contra inventario.
// Method: FIFO | LIFO | CMUP.
type SaleLineRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	Method    string          `json:"method" validate:"required"`
}

// SaleDepletionRequest body para POST /api/sales/depletions. Concilia una
// venta completada contra el inventario: todas las líneas o ninguna.
// Credit=true registra la venta a crédito (el inventario sale igual).
type SaleDepletionRequest struct {
	SaleID   string            `json:"sale_id" validate:"required"`
	Location LocationDTO       `json:"location" validate:"required"`
	Credit   bool              `json:"credit"`
	Lines    []SaleLineRequest `json:"lines" validate:"required,min=1"`
}

// SaleLineReversalRequest cantidad a revertir de la línea de un producto.
type SaleLineReversalRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
}

// SaleReversalRequest body para POST /api/sales/depletions/{id}/reverse.
// Lines vacío = reversión total de lo que quede por revertir.
type SaleReversalRequest struct {
	Lines []SaleLineReversalRequest `json:"lines,omitempty"`
}

// SaleLineResponse línea conciliada con su desglose por lote.
type SaleLineResponse struct {
	ProductID        string          `json:"product_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	Method           string          `json:"method"`
	RealizedCost     decimal.Decimal `json:"realized_cost"`
	Draws            []BatchDrawDTO  `json:"draws"`
	ReversedQuantity decimal.Decimal `json:"reversed_quantity"`
}

// SaleDepletionResponse salida del registro de consumo de una venta.
type SaleDepletionResponse struct {
	ID                string             `json:"id"`
	SaleID            string             `json:"sale_id"`
	Location          LocationDTO        `json:"location"`
	Credit            bool               `json:"credit"`
	Status            string             `json:"status"`
	Lines             []SaleLineResponse `json:"lines"`
	TotalRealizedCost decimal.Decimal    `json:"total_realized_cost"`
	CreatedAt         time.Time          `json:"created_at"`
	CreatedBy         string             `json:"created_by"`
}
