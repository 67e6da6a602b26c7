package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
)

// BatchRepository define el puerto de persistencia del ledger de lotes.
// Es el único recurso mutable compartido del motor; toda mutación pasa por el
// chequeo de concurrencia optimista de ApplyDepletion.
type BatchRepository interface {
	// ListActiveByLocation devuelve los lotes activos del producto en la
	// ubicación, ordenados por received_at, id. El orden final lo decide el
	// método de costeo, no el store.
	ListActiveByLocation(ctx context.Context, productID string, loc entity.LocationRef) ([]entity.StockBatch, error)

	// GetByID devuelve un lote por su ID, en cualquier estado.
	GetByID(ctx context.Context, id string) (*entity.StockBatch, error)

	// Create inserta un lote nuevo (recepción de mercancía o lado destino de
	// una transferencia/reversión).
	Create(ctx context.Context, batch *entity.StockBatch) error

	// ApplyDepletion descuenta qty del remanente del lote validando la versión
	// leída al momento del plan. Marca el lote depleted al llegar a cero.
	// Errores: ErrConcurrentModification si la versión cambió,
	// ErrInsufficientBatchQuantity si qty > remanente, ErrNotFound si no existe.
	ApplyDepletion(ctx context.Context, batchID string, qty decimal.Decimal, version int64) error

	// MarkCancelled marca un lote como cancelled (archivo permanente; el lote
	// nunca se resucita, la cantidad revertida entra en un lote nuevo). Se usa
	// dentro de la misma transacción que la depleción que lo vació.
	MarkCancelled(ctx context.Context, batchID string) error
}
