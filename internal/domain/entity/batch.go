package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un lote de stock.
const (
	BatchStatusActive    = "active"
	BatchStatusDepleted  = "depleted"
	BatchStatusCancelled = "cancelled"
)

// StockBatch representa un lote de stock: una cantidad recibida de un producto,
// a un costo unitario concreto, en una ubicación concreta. La suma de
// RemainingQuantity de los lotes activos de (producto, ubicación) es el stock
// disponible en esa ubicación.
//
// Version es el token de concurrencia optimista: toda mutación debe validar la
// versión leída al momento del plan y se incrementa en cada aplicación.
type StockBatch struct {
	ID                string
	ProductID         string
	Location          LocationRef
	OriginalQuantity  decimal.Decimal // inmutable después de crear el lote
	RemainingQuantity decimal.Decimal // 0 <= RemainingQuantity <= OriginalQuantity
	UnitCost          decimal.Decimal // inmutable: base de costo del lote
	ReceivedAt        time.Time       // establece el orden FIFO/LIFO
	Status            string          // active | depleted | cancelled
	Version           int64
	CreatedAt         time.Time
}

// IsActive indica si el lote aún participa del stock disponible.
func (b *StockBatch) IsActive() bool {
	return b.Status == BatchStatusActive
}

// HasStock indica si el lote tiene cantidad disponible.
func (b *StockBatch) HasStock() bool {
	return b.IsActive() && b.RemainingQuantity.GreaterThan(decimal.Zero)
}

// TotalValue devuelve el valor del remanente del lote (cantidad * costo unitario).
func (b *StockBatch) TotalValue() decimal.Decimal {
	return b.RemainingQuantity.Mul(b.UnitCost)
}

// BatchDraw es una porción consumida de un lote: qué lote, cuánto y a qué costo.
// Se registra en transferencias y ventas para auditoría y reversión.
type BatchDraw struct {
	BatchID  string
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

// TotalDrawn suma las cantidades de una lista de consumos.
func TotalDrawn(draws []BatchDraw) decimal.Decimal {
	total := decimal.Zero
	for _, d := range draws {
		total = total.Add(d.Quantity)
	}
	return total
}
