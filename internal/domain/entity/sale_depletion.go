package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del registro de consumo de una venta.
const (
	SaleDepletionApplied           = "applied"
	SaleDepletionPartiallyReversed = "partially_reversed"
	SaleDepletionReversed          = "reversed"
)

// SaleLineDepletion registra el consumo de inventario de una línea de venta:
// qué lotes se tomaron, a qué costo, y cuánto se ha revertido por devoluciones.
type SaleLineDepletion struct {
	ProductID        string
	Quantity         decimal.Decimal
	Method           string // FIFO | LIFO | CMUP
	RealizedCost     decimal.Decimal
	Draws            []BatchDraw
	ReversedQuantity decimal.Decimal
}

// Reversible devuelve la cantidad de la línea que aún puede revertirse.
func (l *SaleLineDepletion) Reversible() decimal.Decimal {
	return l.Quantity.Sub(l.ReversedQuantity)
}

// SaleDepletion es el registro persistente del consumo de inventario de una
// venta completada. Conserva el desglose por lote para auditoría, recibo y
// reversión exacta (devoluciones totales o parciales).
type SaleDepletion struct {
	ID        string
	SaleID    string
	Location  LocationRef
	Credit    bool // venta a crédito: el inventario sale igual, solo difiere el cobro
	Status    string
	Lines     []SaleLineDepletion
	Version   int64 // concurrencia optimista: guarda las reversiones contra escrituras cruzadas
	CreatedAt time.Time
	CreatedBy string
}

// TotalRealizedCost suma el costo realizado de todas las líneas.
func (s *SaleDepletion) TotalRealizedCost() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.RealizedCost)
	}
	return total
}

// FullyReversed indica si todas las líneas están completamente revertidas.
func (s *SaleDepletion) FullyReversed() bool {
	for _, l := range s.Lines {
		if l.ReversedQuantity.LessThan(l.Quantity) {
			return false
		}
	}
	return true
}

// AnyReversed indica si alguna línea tiene cantidad revertida.
func (s *SaleDepletion) AnyReversed() bool {
	for _, l := range s.Lines {
		if l.ReversedQuantity.GreaterThan(decimal.Zero) {
			return true
		}
	}
	return false
}
