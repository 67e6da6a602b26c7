package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferRequest body para POST /api/transfers.
// Method: FIFO | LIFO (CMUP no aplica a transferencias).
type TransferRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	From      LocationDTO     `json:"from" validate:"required"`
	To        LocationDTO     `json:"to" validate:"required"`
	Method    string          `json:"method" validate:"required"`
}

// BatchDrawDTO consumo de un lote concreto dentro de una operación.
type BatchDrawDTO struct {
	BatchID  string          `json:"batch_id"`
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// TransferResponse salida de una transferencia de stock.
type TransferResponse struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"product_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	TransferType    string          `json:"transfer_type"`
	From            LocationDTO     `json:"from"`
	To              LocationDTO     `json:"to"`
	InventoryMethod string          `json:"inventory_method"`
	Status          string          `json:"status"`
	ConsumedBatches []BatchDrawDTO  `json:"consumed_batches"`
	CreatedBatchIDs []string        `json:"created_batch_ids"`
	ReversalOf      string          `json:"reversal_of,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	CreatedBy       string          `json:"created_by"`
}

// TransferListResponse lista paginada de transferencias.
type TransferListResponse struct {
	Items []TransferResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
