package repository

import (
	"context"

	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
)

// SaleDepletionRepository define el puerto de persistencia para los registros
// de consumo de ventas (desglose por lote, necesario para recibos y reversión).
type SaleDepletionRepository interface {
	Create(ctx context.Context, dep *entity.SaleDepletion) error
	GetByID(ctx context.Context, id string) (*entity.SaleDepletion, error)
	GetBySaleID(ctx context.Context, saleID string) (*entity.SaleDepletion, error)
	// UpdateReversal persiste las cantidades revertidas por línea y el estado
	// resultante (applied | partially_reversed | reversed). La escritura está
	// condicionada a dep.Version (la versión leída): si otra reversión ganó la
	// carrera retorna ErrConcurrentModification sin efectos.
	UpdateReversal(ctx context.Context, dep *entity.SaleDepletion) error
}
