package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-lotes/internal/domain"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo implementación de BatchRepository sobre PostgreSQL (usable con pool o tx).
// La tabla stock_batches lleva una columna version para concurrencia optimista.
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador de lotes. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

const batchColumns = `
	id, product_id, location_type, location_id,
	original_quantity, remaining_quantity, unit_cost,
	received_at, status, version, created_at`

// ListActiveByLocation devuelve los lotes activos del producto en la ubicación,
// ordenados por received_at, id (el método de costeo decide el orden final).
func (r *BatchRepo) ListActiveByLocation(ctx context.Context, productID string, loc entity.LocationRef) ([]entity.StockBatch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM stock_batches
		WHERE product_id = $1 AND location_type = $2 AND location_id = $3 AND status = 'active'
		ORDER BY received_at, id`
	rows, err := r.q.Query(ctx, query, productID, string(loc.Type), loc.ID)
	if err != nil {
		return nil, fmt.Errorf("listar lotes (%w): %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var batches []entity.StockBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("escanear lote: %w", err)
		}
		batches = append(batches, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listar lotes (%w): %v", domain.ErrStoreUnavailable, err)
	}
	return batches, nil
}

// GetByID devuelve un lote por su ID, en cualquier estado. nil si no existe.
func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.StockBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM stock_batches WHERE id = $1`
	b, err := scanBatch(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("obtener lote: %w", err)
	}
	return b, nil
}

// Create inserta un lote activo nuevo con version = 1.
func (r *BatchRepo) Create(ctx context.Context, batch *entity.StockBatch) error {
	query := `
		INSERT INTO stock_batches (` + batchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10)`
	_, err := r.q.Exec(ctx, query,
		batch.ID, batch.ProductID, string(batch.Location.Type), batch.Location.ID,
		batch.OriginalQuantity, batch.RemainingQuantity, batch.UnitCost,
		batch.ReceivedAt, batch.Status, batch.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("crear lote (%w): %v", domain.ErrStoreUnavailable, err)
	}
	batch.Version = 1
	return nil
}

// ApplyDepletion descuenta qty validando la versión del snapshot en el WHERE.
// Cero filas afectadas se desambigua re-leyendo el lote: versión distinta es
// conflicto de concurrencia; remanente corto es cantidad insuficiente.
func (r *BatchRepo) ApplyDepletion(ctx context.Context, batchID string, qty decimal.Decimal, version int64) error {
	query := `
		UPDATE stock_batches
		SET remaining_quantity = remaining_quantity - $2,
		    version = version + 1,
		    status = CASE WHEN remaining_quantity - $2 = 0 THEN 'depleted' ELSE status END
		WHERE id = $1 AND version = $3 AND status = 'active' AND remaining_quantity >= $2`
	tag, err := r.q.Exec(ctx, query, batchID, qty, version)
	if err != nil {
		return fmt.Errorf("aplicar depleción (%w): %v", domain.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	current, err := r.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	if current == nil {
		return domain.ErrNotFound
	}
	if current.Version != version || !current.IsActive() {
		return domain.ErrConcurrentModification
	}
	return domain.ErrInsufficientBatchQuantity
}

// MarkCancelled marca el lote como cancelled (se usa en la misma transacción
// que la depleción que lo vació durante una reversión).
func (r *BatchRepo) MarkCancelled(ctx context.Context, batchID string) error {
	query := `UPDATE stock_batches SET status = 'cancelled', version = version + 1 WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, batchID)
	if err != nil {
		return fmt.Errorf("cancelar lote (%w): %v", domain.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanBatch(row pgx.Row) (*entity.StockBatch, error) {
	var b entity.StockBatch
	var locType string
	err := row.Scan(
		&b.ID, &b.ProductID, &locType, &b.Location.ID,
		&b.OriginalQuantity, &b.RemainingQuantity, &b.UnitCost,
		&b.ReceivedAt, &b.Status, &b.Version, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Location.Type = entity.LocationType(locType)
	return &b, nil
}
