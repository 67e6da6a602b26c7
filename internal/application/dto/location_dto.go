package dto

import "github.com/tu-usuario/stock-lotes/internal/domain/entity"

// LocationDTO referencia de ubicación en la API (type: "shop" | "warehouse").
type LocationDTO struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// ToRef convierte el DTO a la referencia de dominio.
func (l LocationDTO) ToRef() entity.LocationRef {
	return entity.LocationRef{Type: entity.LocationType(l.Type), ID: l.ID}
}

// FromLocationRef convierte una referencia de dominio a DTO.
func FromLocationRef(ref entity.LocationRef) LocationDTO {
	return LocationDTO{Type: string(ref.Type), ID: ref.ID}
}
