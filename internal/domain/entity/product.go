package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU del catálogo (multi-ubicación).
// El costo vive en los lotes (StockBatch), no en el producto: cada lote conserva
// su base de costo propia. PinnedLocation fija el producto a una sola ubicación
// vendible; es entrada explícita, nunca se infiere de los lotes.
type Product struct {
	ID             string
	CompanyID      string
	SKU            string // código único por empresa
	Name           string
	Description    string
	Price          decimal.Decimal // precio de venta
	PinnedLocation *LocationRef    // nil = vendible desde cualquier ubicación
	UnitMeasure    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsPinned indica si el producto está fijado a una ubicación concreta.
func (p *Product) IsPinned() bool {
	return p.PinnedLocation != nil && !p.PinnedLocation.IsZero()
}
