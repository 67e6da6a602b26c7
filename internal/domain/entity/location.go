package entity

// LocationType indica el tipo de ubicación física donde vive el inventario.
type LocationType string

const (
	LocationShop      LocationType = "shop"
	LocationWarehouse LocationType = "warehouse"
)

// IsValid indica si el tipo de ubicación es conocido.
func (t LocationType) IsValid() bool {
	return t == LocationShop || t == LocationWarehouse
}

// LocationRef referencia tipada a una tienda o bodega concreta.
type LocationRef struct {
	Type LocationType
	ID   string
}

// Equal compara dos referencias de ubicación.
func (l LocationRef) Equal(other LocationRef) bool {
	return l.Type == other.Type && l.ID == other.ID
}

// IsZero indica si la referencia está vacía.
func (l LocationRef) IsZero() bool {
	return l.Type == "" && l.ID == ""
}
