package entity

import "time"

// Warehouse representa una bodega donde se almacena inventario (multi-bodega).
// Active=false marca la bodega como desactivada: no puede participar en
// transferencias ni ventas nuevas.
type Warehouse struct {
	ID        string
	CompanyID string
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ref devuelve la referencia de ubicación de la bodega.
func (w *Warehouse) Ref() LocationRef {
	return LocationRef{Type: LocationWarehouse, ID: w.ID}
}
