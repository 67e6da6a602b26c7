package repository

import (
	"context"

	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
)

// TransferRepository define el puerto de persistencia para transferencias de stock.
type TransferRepository interface {
	Create(ctx context.Context, transfer *entity.StockTransfer) error
	GetByID(ctx context.Context, id string) (*entity.StockTransfer, error)
	// MarkCancelled deja la transferencia original como cancelled cuando se
	// registra su transferencia compensatoria.
	MarkCancelled(ctx context.Context, id string) error
	ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.StockTransfer, error)
	ListByLocation(ctx context.Context, loc entity.LocationRef, limit, offset int) ([]*entity.StockTransfer, error)
}
