package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de transferencia entre ubicaciones.
const (
	TransferWarehouseToShop      = "warehouse_to_shop"
	TransferWarehouseToWarehouse = "warehouse_to_warehouse"
	TransferShopToShop           = "shop_to_shop"
	TransferShopToWarehouse      = "shop_to_warehouse"
)

// Estados de una transferencia. completed y cancelled son terminales; cancelar
// una transferencia completada exige una transferencia compensatoria (ReversalOf),
// nunca un cambio de estado in situ.
const (
	TransferStatusPending   = "pending"
	TransferStatusCompleted = "completed"
	TransferStatusCancelled = "cancelled"
)

// TransferTypeFor devuelve el tipo de transferencia para un par origen/destino,
// o cadena vacía si algún tipo de ubicación no es válido.
func TransferTypeFor(from, to LocationType) string {
	switch {
	case from == LocationWarehouse && to == LocationShop:
		return TransferWarehouseToShop
	case from == LocationWarehouse && to == LocationWarehouse:
		return TransferWarehouseToWarehouse
	case from == LocationShop && to == LocationShop:
		return TransferShopToShop
	case from == LocationShop && to == LocationWarehouse:
		return TransferShopToWarehouse
	}
	return ""
}

// StockTransfer representa el movimiento de una cantidad de producto entre dos
// ubicaciones: consume lotes en el origen y crea lotes en el destino conservando
// la base de costo por lote (nunca se mezclan costos en un solo lote destino).
type StockTransfer struct {
	ID              string
	ProductID       string
	Quantity        decimal.Decimal
	TransferType    string // warehouse_to_shop | warehouse_to_warehouse | shop_to_shop | shop_to_warehouse
	From            LocationRef
	To              LocationRef
	InventoryMethod string // FIFO | LIFO (método de consumo de lotes origen)
	Status          string // pending | completed | cancelled
	ConsumedBatches []BatchDraw
	CreatedBatchIDs []string
	ReversalOf      string // ID de la transferencia que esta compensa (vacío si es directa)
	CreatedAt       time.Time
	CreatedBy       string
}

// IsReversal indica si la transferencia compensa a otra.
func (t *StockTransfer) IsReversal() bool { return t.ReversalOf != "" }

// ConsumedQuantity suma la cantidad consumida de los lotes origen. Para una
// transferencia completada debe ser igual a Quantity (conservación).
func (t *StockTransfer) ConsumedQuantity() decimal.Decimal {
	return TotalDrawn(t.ConsumedBatches)
}
