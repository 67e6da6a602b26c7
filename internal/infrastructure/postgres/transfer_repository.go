package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/stock-lotes/internal/domain"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo implementación de TransferRepository sobre PostgreSQL.
// El desglose de lotes consumidos/creados se guarda como JSONB para auditoría
// y reversión.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

const transferColumns = `
	id, product_id, quantity, transfer_type,
	from_type, from_id, to_type, to_id,
	inventory_method, status, consumed_batches, created_batch_ids,
	reversal_of, created_at, created_by`

// Create inserta la transferencia con su desglose de lotes.
func (r *TransferRepo) Create(ctx context.Context, t *entity.StockTransfer) error {
	consumed, err := json.Marshal(t.ConsumedBatches)
	if err != nil {
		return fmt.Errorf("serializar consumos: %w", err)
	}
	created, err := json.Marshal(t.CreatedBatchIDs)
	if err != nil {
		return fmt.Errorf("serializar lotes creados: %w", err)
	}
	query := `
		INSERT INTO stock_transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), $14, $15)`
	_, err = r.q.Exec(ctx, query,
		t.ID, t.ProductID, t.Quantity, t.TransferType,
		string(t.From.Type), t.From.ID, string(t.To.Type), t.To.ID,
		t.InventoryMethod, t.Status, consumed, created,
		t.ReversalOf, t.CreatedAt, t.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("crear transferencia (%w): %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// GetByID devuelve la transferencia o nil si no existe.
func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.StockTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM stock_transfers WHERE id = $1`
	t, err := scanTransfer(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("obtener transferencia: %w", err)
	}
	return t, nil
}

// MarkCancelled deja la transferencia como cancelled (al registrarse su
// compensatoria).
func (r *TransferRepo) MarkCancelled(ctx context.Context, id string) error {
	query := `UPDATE stock_transfers SET status = 'cancelled' WHERE id = $1 AND status = 'completed'`
	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("cancelar transferencia (%w): %v", domain.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByProduct lista transferencias de un producto, recientes primero.
func (r *TransferRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.StockTransfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM stock_transfers WHERE product_id = $1
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	return r.list(ctx, query, productID, normalizeLimit(limit), offset)
}

// ListByLocation lista transferencias que tocan la ubicación (origen o destino).
func (r *TransferRepo) ListByLocation(ctx context.Context, loc entity.LocationRef, limit, offset int) ([]*entity.StockTransfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM stock_transfers
		WHERE (from_type = $1 AND from_id = $2) OR (to_type = $1 AND to_id = $2)
		ORDER BY created_at DESC, id LIMIT $3 OFFSET $4`
	return r.list(ctx, query, string(loc.Type), loc.ID, normalizeLimit(limit), offset)
}

func (r *TransferRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockTransfer, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listar transferencias (%w): %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []*entity.StockTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("escanear transferencia: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listar transferencias (%w): %v", domain.ErrStoreUnavailable, err)
	}
	return out, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

func scanTransfer(row pgx.Row) (*entity.StockTransfer, error) {
	var t entity.StockTransfer
	var fromType, toType string
	var reversalOf *string
	var consumed, created []byte
	err := row.Scan(
		&t.ID, &t.ProductID, &t.Quantity, &t.TransferType,
		&fromType, &t.From.ID, &toType, &t.To.ID,
		&t.InventoryMethod, &t.Status, &consumed, &created,
		&reversalOf, &t.CreatedAt, &t.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	t.From.Type = entity.LocationType(fromType)
	t.To.Type = entity.LocationType(toType)
	if reversalOf != nil {
		t.ReversalOf = *reversalOf
	}
	if err := json.Unmarshal(consumed, &t.ConsumedBatches); err != nil {
		return nil, fmt.Errorf("deserializar consumos: %w", err)
	}
	if err := json.Unmarshal(created, &t.CreatedBatchIDs); err != nil {
		return nil, fmt.Errorf("deserializar lotes creados: %w", err)
	}
	return &t, nil
}
