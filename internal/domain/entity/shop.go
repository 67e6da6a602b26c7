package entity

import "time"

// Shop representa una tienda o punto de venta con inventario propio.
// Active=false marca la tienda como desactivada.
type Shop struct {
	ID        string
	CompanyID string
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ref devuelve la referencia de ubicación de la tienda.
func (s *Shop) Ref() LocationRef {
	return LocationRef{Type: LocationShop, ID: s.ID}
}
