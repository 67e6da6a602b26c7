package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-lotes/internal/application/locations"
	"github.com/tu-usuario/stock-lotes/internal/domain"
	"github.com/tu-usuario/stock-lotes/internal/domain/costing"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
)

// DefaultMaxRetries intentos del ciclo plan-aplicar ante conflictos de
// concurrencia optimista antes de rendirse con ErrConcurrentModification.
const DefaultMaxRetries = 3

// ExecuteTransferUseCase ejecuta transferencias de stock entre ubicaciones:
// valida, planifica el consumo de lotes origen con el método de costeo y aplica
// el plan de forma atómica (depleciones con chequeo de versión + lotes destino
// nuevos que conservan la base de costo por lote).
type ExecuteTransferUseCase struct {
	txRunner     TxRunner
	batchRepo    repository.BatchRepository
	transferRepo repository.TransferRepository
	productRepo  repository.ProductRepository
	locations    *locations.Resolver
	maxRetries   int
}

// NewExecuteTransferUseCase construye el caso de uso. maxRetries <= 0 usa DefaultMaxRetries.
func NewExecuteTransferUseCase(
	txRunner TxRunner,
	batchRepo repository.BatchRepository,
	transferRepo repository.TransferRepository,
	productRepo repository.ProductRepository,
	resolver *locations.Resolver,
	maxRetries int,
) *ExecuteTransferUseCase {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &ExecuteTransferUseCase{
		txRunner:     txRunner,
		batchRepo:    batchRepo,
		transferRepo: transferRepo,
		productRepo:  productRepo,
		locations:    resolver,
		maxRetries:   maxRetries,
	}
}

// TransferInput entrada para ejecutar una transferencia.
type TransferInput struct {
	CompanyID string
	UserID    string
	ProductID string
	Quantity  decimal.Decimal
	From      entity.LocationRef
	To        entity.LocationRef
	Method    costing.Method // FIFO | LIFO (CMUP no aplica a transferencias)
}

// Execute valida y ejecuta la transferencia. Las fases de validación y plan son
// puras: cualquier fallo ahí retorna sin efectos. La fase de aplicación corre en
// una transacción y se reintenta completa ante conflicto de versión, acotada
// por maxRetries.
func (uc *ExecuteTransferUseCase) Execute(ctx context.Context, input TransferInput) (*entity.StockTransfer, error) {
	transferType, err := uc.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < uc.maxRetries; attempt++ {
		// Snapshot de candidatos: el plan se calcula sobre estas versiones.
		candidates, err := uc.batchRepo.ListActiveByLocation(ctx, input.ProductID, input.From)
		if err != nil {
			return nil, err
		}
		plan, err := costing.SelectBatches(candidates, input.Quantity, input.Method)
		if err != nil {
			return nil, err
		}
		versions := snapshotVersions(candidates)

		now := time.Now()
		result := &entity.StockTransfer{
			ID:              uuid.New().String(),
			ProductID:       input.ProductID,
			Quantity:        input.Quantity,
			TransferType:    transferType,
			From:            input.From,
			To:              input.To,
			InventoryMethod: input.Method.String(),
			Status:          entity.TransferStatusCompleted,
			ConsumedBatches: plan.Draws,
			CreatedAt:       now,
			CreatedBy:       input.UserID,
		}

		err = uc.txRunner.Run(ctx, func(
			batchRepo repository.BatchRepository,
			transferRepo repository.TransferRepository,
		) error {
			for _, d := range plan.Draws {
				if err := batchRepo.ApplyDepletion(ctx, d.BatchID, d.Quantity, versions[d.BatchID]); err != nil {
					return err
				}
			}
			// Un lote destino por cada lote origen consumido: dos costos de
			// origen distintos producen dos lotes destino, nunca uno mezclado.
			created := make([]string, 0, len(plan.Draws))
			for _, d := range plan.Draws {
				dest := &entity.StockBatch{
					ID:                uuid.New().String(),
					ProductID:         input.ProductID,
					Location:          input.To,
					OriginalQuantity:  d.Quantity,
					RemainingQuantity: d.Quantity,
					UnitCost:          d.UnitCost,
					ReceivedAt:        now,
					Status:            entity.BatchStatusActive,
					CreatedAt:         now,
				}
				if err := batchRepo.Create(ctx, dest); err != nil {
					return err
				}
				created = append(created, dest.ID)
			}
			result.CreatedBatchIDs = created
			return transferRepo.Create(ctx, result)
		})
		if errors.Is(err, domain.ErrConcurrentModification) {
			continue // re-lee candidatos y recalcula el plan
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, domain.ErrConcurrentModification
}

// Reverse cancela una transferencia completada mediante una transferencia
// compensatoria: consume por completo los lotes creados en el destino, los marca
// cancelled y recrea lotes en el origen con los pares (cantidad, costo) exactos.
// La transferencia original queda cancelled; nunca se edita su historia.
func (uc *ExecuteTransferUseCase) Reverse(ctx context.Context, transferID, userID string) (*entity.StockTransfer, error) {
	original, err := uc.transferRepo.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, domain.ErrNotFound
	}
	if original.Status != entity.TransferStatusCompleted || original.IsReversal() {
		return nil, domain.ErrConflict
	}

	for attempt := 0; attempt < uc.maxRetries; attempt++ {
		// Los lotes creados deben seguir intactos: si una venta posterior ya
		// consumió parte de ellos, la reversión deja de ser posible.
		createdBatches := make([]entity.StockBatch, 0, len(original.CreatedBatchIDs))
		for _, id := range original.CreatedBatchIDs {
			b, err := uc.batchRepo.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if b == nil {
				return nil, domain.ErrNotFound
			}
			if !b.IsActive() || !b.RemainingQuantity.Equal(b.OriginalQuantity) {
				return nil, domain.ErrConflict
			}
			createdBatches = append(createdBatches, *b)
		}

		now := time.Now()
		reversal := &entity.StockTransfer{
			ID:              uuid.New().String(),
			ProductID:       original.ProductID,
			Quantity:        original.Quantity,
			TransferType:    entity.TransferTypeFor(original.To.Type, original.From.Type),
			From:            original.To,
			To:              original.From,
			InventoryMethod: original.InventoryMethod,
			Status:          entity.TransferStatusCompleted,
			ReversalOf:      original.ID,
			CreatedAt:       now,
			CreatedBy:       userID,
		}

		err = uc.txRunner.Run(ctx, func(
			batchRepo repository.BatchRepository,
			transferRepo repository.TransferRepository,
		) error {
			draws := make([]entity.BatchDraw, 0, len(createdBatches))
			created := make([]string, 0, len(createdBatches))
			for _, b := range createdBatches {
				if err := batchRepo.ApplyDepletion(ctx, b.ID, b.RemainingQuantity, b.Version); err != nil {
					return err
				}
				if err := batchRepo.MarkCancelled(ctx, b.ID); err != nil {
					return err
				}
				draws = append(draws, entity.BatchDraw{BatchID: b.ID, Quantity: b.RemainingQuantity, UnitCost: b.UnitCost})

				// Lote nuevo en el origen con la base de costo original; no se
				// resucita el lote consumido para no retro-fechar ReceivedAt.
				back := &entity.StockBatch{
					ID:                uuid.New().String(),
					ProductID:         original.ProductID,
					Location:          original.From,
					OriginalQuantity:  b.RemainingQuantity,
					RemainingQuantity: b.RemainingQuantity,
					UnitCost:          b.UnitCost,
					ReceivedAt:        now,
					Status:            entity.BatchStatusActive,
					CreatedAt:         now,
				}
				if err := batchRepo.Create(ctx, back); err != nil {
					return err
				}
				created = append(created, back.ID)
			}
			reversal.ConsumedBatches = draws
			reversal.CreatedBatchIDs = created
			if err := transferRepo.Create(ctx, reversal); err != nil {
				return err
			}
			return transferRepo.MarkCancelled(ctx, original.ID)
		})
		if errors.Is(err, domain.ErrConcurrentModification) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return reversal, nil
	}
	return nil, domain.ErrConcurrentModification
}

// validate cubre la fase 1 del motor: entrada bien formada y ubicaciones
// resolubles, activas y distintas. No toca lotes.
func (uc *ExecuteTransferUseCase) validate(ctx context.Context, input TransferInput) (string, error) {
	if !input.Quantity.GreaterThan(decimal.Zero) {
		return "", domain.ErrInvalidInput
	}
	if input.Method != costing.FIFO && input.Method != costing.LIFO {
		return "", domain.ErrInvalidInput
	}
	if input.From.Equal(input.To) {
		return "", domain.ErrInvalidInput
	}
	transferType := entity.TransferTypeFor(input.From.Type, input.To.Type)
	if transferType == "" {
		return "", domain.ErrInvalidInput
	}

	product, err := uc.productRepo.GetByID(ctx, input.ProductID)
	if err != nil {
		return "", err
	}
	if product == nil {
		return "", domain.ErrNotFound
	}
	if input.CompanyID != "" && product.CompanyID != input.CompanyID {
		return "", domain.ErrForbidden
	}
	if err := uc.locations.EnsureActive(ctx, input.CompanyID, input.From); err != nil {
		return "", err
	}
	if err := uc.locations.EnsureActive(ctx, input.CompanyID, input.To); err != nil {
		return "", err
	}
	return transferType, nil
}

// snapshotVersions captura la versión de cada candidato al momento del plan.
func snapshotVersions(batches []entity.StockBatch) map[string]int64 {
	versions := make(map[string]int64, len(batches))
	for _, b := range batches {
		versions[b.ID] = b.Version
	}
	return versions
}
