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

var _ repository.SaleDepletionRepository = (*SaleDepletionRepo)(nil)

// SaleDepletionRepo implementación de SaleDepletionRepository sobre PostgreSQL.
// Las líneas (con su desglose por lote) se guardan como JSONB: el desglose se
// lee y escribe siempre como un todo, nunca se consulta por lote individual.
type SaleDepletionRepo struct {
	q Querier
}

// NewSaleDepletionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleDepletionRepository(q Querier) *SaleDepletionRepo {
	return &SaleDepletionRepo{q: q}
}

const depletionColumns = `
	id, sale_id, location_type, location_id, credit, status, lines, version, created_at, created_by`

// Create inserta el registro de consumo de la venta.
// sale_id tiene índice único: una venta se concilia una sola vez.
func (r *SaleDepletionRepo) Create(ctx context.Context, dep *entity.SaleDepletion) error {
	lines, err := json.Marshal(dep.Lines)
	if err != nil {
		return fmt.Errorf("serializar líneas: %w", err)
	}
	if dep.Version == 0 {
		dep.Version = 1
	}
	query := `
		INSERT INTO sale_depletions (` + depletionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.q.Exec(ctx, query,
		dep.ID, dep.SaleID, string(dep.Location.Type), dep.Location.ID,
		dep.Credit, dep.Status, lines, dep.Version, dep.CreatedAt, dep.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("crear consumo de venta (%w): %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// GetByID devuelve el registro o nil si no existe.
func (r *SaleDepletionRepo) GetByID(ctx context.Context, id string) (*entity.SaleDepletion, error) {
	query := `SELECT ` + depletionColumns + ` FROM sale_depletions WHERE id = $1`
	return r.get(ctx, query, id)
}

// GetBySaleID devuelve el registro asociado a la venta o nil si no existe.
func (r *SaleDepletionRepo) GetBySaleID(ctx context.Context, saleID string) (*entity.SaleDepletion, error) {
	query := `SELECT ` + depletionColumns + ` FROM sale_depletions WHERE sale_id = $1`
	return r.get(ctx, query, saleID)
}

// UpdateReversal persiste las cantidades revertidas por línea y el estado.
// El UPDATE exige la versión leída: dos reversiones concurrentes de la misma
// venta no pueden confirmarse ambas.
func (r *SaleDepletionRepo) UpdateReversal(ctx context.Context, dep *entity.SaleDepletion) error {
	lines, err := json.Marshal(dep.Lines)
	if err != nil {
		return fmt.Errorf("serializar líneas: %w", err)
	}
	query := `
		UPDATE sale_depletions
		SET lines = $2, status = $3, version = version + 1
		WHERE id = $1 AND version = $4`
	tag, err := r.q.Exec(ctx, query, dep.ID, lines, dep.Status, dep.Version)
	if err != nil {
		return fmt.Errorf("actualizar reversión (%w): %v", domain.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		// Cero filas: distinguir registro inexistente de versión vencida.
		current, err := r.GetByID(ctx, dep.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		return domain.ErrConcurrentModification
	}
	return nil
}

func (r *SaleDepletionRepo) get(ctx context.Context, query string, arg any) (*entity.SaleDepletion, error) {
	var dep entity.SaleDepletion
	var locType string
	var lines []byte
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&dep.ID, &dep.SaleID, &locType, &dep.Location.ID,
		&dep.Credit, &dep.Status, &lines, &dep.Version, &dep.CreatedAt, &dep.CreatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("obtener consumo de venta (%w): %v", domain.ErrStoreUnavailable, err)
	}
	dep.Location.Type = entity.LocationType(locType)
	if err := json.Unmarshal(lines, &dep.Lines); err != nil {
		return nil, fmt.Errorf("deserializar líneas: %w", err)
	}
	return &dep, nil
}
