package sale

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
// concurrencia optimista.
const DefaultMaxRetries = 3

// ReconcileSaleUseCase concilia ventas completadas contra el ledger de lotes:
// planifica el consumo por línea con el método de costeo de la línea, aplica
// todas las depleciones de la venta en una sola transacción y calcula el costo
// realizado por línea. Soporta reversión total y parcial por devoluciones.
type ReconcileSaleUseCase struct {
	txRunner   TxRunner
	batchRepo  repository.BatchRepository
	saleRepo   repository.SaleDepletionRepository
	locations  *locations.Resolver
	maxRetries int
}

// NewReconcileSaleUseCase construye el caso de uso. maxRetries <= 0 usa DefaultMaxRetries.
func NewReconcileSaleUseCase(
	txRunner TxRunner,
	batchRepo repository.BatchRepository,
	saleRepo repository.SaleDepletionRepository,
	resolver *locations.Resolver,
	maxRetries int,
) *ReconcileSaleUseCase {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &ReconcileSaleUseCase{
		txRunner:   txRunner,
		batchRepo:  batchRepo,
		saleRepo:   saleRepo,
		locations:  resolver,
		maxRetries: maxRetries,
	}
}

// SaleLineInput una línea de la venta: producto, cantidad y método de costeo.
type SaleLineInput struct {
	ProductID string
	Quantity  decimal.Decimal
	Method    costing.Method // FIFO | LIFO | CMUP
}

// SaleInput entrada para conciliar una venta completada.
// Credit=true (venta a crédito) consume inventario igual que una venta de
// contado: la mercancía sale de la ubicación sin importar el momento del cobro.
type SaleInput struct {
	CompanyID string
	UserID    string
	SaleID    string
	Location  entity.LocationRef
	Credit    bool
	Lines     []SaleLineInput
}

// LineReversal cantidad a revertir de un producto de la venta.
type LineReversal struct {
	ProductID string
	Quantity  decimal.Decimal
}

// DepleteForSale planifica y aplica el consumo de inventario de la venta.
// Si alguna línea no puede satisfacerse, la operación completa se aborta con
// *StockShortage nombrando el producto: ninguna línea se aplica parcialmente.
func (uc *ReconcileSaleUseCase) DepleteForSale(ctx context.Context, input SaleInput) (*entity.SaleDepletion, error) {
	if err := uc.validate(ctx, input); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < uc.maxRetries; attempt++ {
		dep, err := uc.planAndApply(ctx, input)
		if errors.Is(err, domain.ErrConcurrentModification) {
			continue // re-lee los snapshots y recalcula todos los planes
		}
		if err != nil {
			return nil, err
		}
		return dep, nil
	}
	return nil, domain.ErrConcurrentModification
}

// planAndApply ejecuta un ciclo completo plan-aplicar sobre snapshots frescos.
func (uc *ReconcileSaleUseCase) planAndApply(ctx context.Context, input SaleInput) (*entity.SaleDepletion, error) {
	// Snapshot por producto: dos líneas del mismo producto planifican sobre el
	// mismo remanente simulado y no pueden sobregirar juntas la ubicación.
	snapshots := make(map[string][]entity.StockBatch)
	versions := make(map[string]int64)

	now := time.Now()
	dep := &entity.SaleDepletion{
		ID:        uuid.New().String(),
		SaleID:    input.SaleID,
		Location:  input.Location,
		Credit:    input.Credit,
		Status:    entity.SaleDepletionApplied,
		CreatedAt: now,
		CreatedBy: input.UserID,
	}

	for _, line := range input.Lines {
		candidates, ok := snapshots[line.ProductID]
		if !ok {
			fresh, err := uc.batchRepo.ListActiveByLocation(ctx, line.ProductID, input.Location)
			if err != nil {
				return nil, err
			}
			for _, b := range fresh {
				versions[b.ID] = b.Version
			}
			candidates = fresh
			snapshots[line.ProductID] = fresh
		}

		plan, err := costing.SelectBatches(candidates, line.Quantity, line.Method)
		if err != nil {
			var shortage *domain.StockShortage
			if errors.As(err, &shortage) && shortage.ProductID == "" {
				shortage.ProductID = line.ProductID
			}
			return nil, err
		}

		dep.Lines = append(dep.Lines, entity.SaleLineDepletion{
			ProductID:        line.ProductID,
			Quantity:         line.Quantity,
			Method:           line.Method.String(),
			RealizedCost:     plan.TotalCost(),
			Draws:            plan.Draws,
			ReversedQuantity: decimal.Zero,
		})
		snapshots[line.ProductID] = consumeSnapshot(candidates, plan.Draws)
	}

	// Consumos agregados por lote: un lote tocado por dos líneas se aplica una
	// sola vez contra su versión del snapshot.
	batchOrder, totals := aggregateDraws(dep.Lines)

	err := uc.txRunner.RunSale(ctx, func(
		batchRepo repository.BatchRepository,
		saleRepo repository.SaleDepletionRepository,
	) error {
		for _, batchID := range batchOrder {
			if err := batchRepo.ApplyDepletion(ctx, batchID, totals[batchID], versions[batchID]); err != nil {
				return err
			}
		}
		return saleRepo.Create(ctx, dep)
	})
	if err != nil {
		return nil, err
	}
	return dep, nil
}

// ReverseForSale revierte el consumo de una venta (devolución). Sin líneas se
// revierte todo lo reversible. La reversión crea lotes nuevos en la ubicación de
// la venta con los pares (cantidad, costo) exactos del desglose registrado,
// tomados en el mismo orden en que se consumieron; los lotes originales no se
// resucitan ni se retro-fecha su ReceivedAt. El ciclo leer-calcular-aplicar se
// reintenta completo ante conflicto de versión, acotado por maxRetries: dos
// reversiones concurrentes de la misma venta nunca restauran stock dos veces.
func (uc *ReconcileSaleUseCase) ReverseForSale(ctx context.Context, depletionID string, lines []LineReversal) (*entity.SaleDepletion, error) {
	for attempt := 0; attempt < uc.maxRetries; attempt++ {
		dep, err := uc.reverseOnce(ctx, depletionID, lines)
		if errors.Is(err, domain.ErrConcurrentModification) {
			continue // re-lee el registro y recalcula lo reversible
		}
		if err != nil {
			return nil, err
		}
		return dep, nil
	}
	return nil, domain.ErrConcurrentModification
}

// reverseOnce ejecuta un ciclo completo leer-calcular-aplicar de la reversión.
func (uc *ReconcileSaleUseCase) reverseOnce(ctx context.Context, depletionID string, lines []LineReversal) (*entity.SaleDepletion, error) {
	dep, err := uc.saleRepo.GetByID(ctx, depletionID)
	if err != nil {
		return nil, err
	}
	if dep == nil {
		return nil, domain.ErrNotFound
	}
	if dep.FullyReversed() {
		return nil, domain.ErrConflict
	}

	if len(lines) == 0 {
		lines = fullReversalLines(dep)
	}
	if err := validateReversal(dep, lines); err != nil {
		return nil, err
	}

	now := time.Now()
	type restore struct {
		productID string
		quantity  decimal.Decimal
		unitCost  decimal.Decimal
	}
	var restores []restore

	// Distribuir cada cantidad pedida sobre las líneas del producto en orden,
	// continuando el desglose donde la última reversión lo dejó.
	for _, rev := range lines {
		pending := rev.Quantity
		for i := range dep.Lines {
			line := &dep.Lines[i]
			if line.ProductID != rev.ProductID || pending.LessThanOrEqual(decimal.Zero) {
				continue
			}
			take := decimal.Min(pending, line.Reversible())
			if take.LessThanOrEqual(decimal.Zero) {
				continue
			}
			for _, seg := range segmentDraws(line.Draws, line.ReversedQuantity, take) {
				restores = append(restores, restore{productID: line.ProductID, quantity: seg.Quantity, unitCost: seg.UnitCost})
			}
			line.ReversedQuantity = line.ReversedQuantity.Add(take)
			pending = pending.Sub(take)
		}
	}

	if dep.FullyReversed() {
		dep.Status = entity.SaleDepletionReversed
	} else {
		dep.Status = entity.SaleDepletionPartiallyReversed
	}

	err = uc.txRunner.RunSale(ctx, func(
		batchRepo repository.BatchRepository,
		saleRepo repository.SaleDepletionRepository,
	) error {
		for _, r := range restores {
			back := &entity.StockBatch{
				ID:                uuid.New().String(),
				ProductID:         r.productID,
				Location:          dep.Location,
				OriginalQuantity:  r.quantity,
				RemainingQuantity: r.quantity,
				UnitCost:          r.unitCost,
				ReceivedAt:        now,
				Status:            entity.BatchStatusActive,
				CreatedAt:         now,
			}
			if err := batchRepo.Create(ctx, back); err != nil {
				return err
			}
		}
		return saleRepo.UpdateReversal(ctx, dep)
	})
	if err != nil {
		return nil, err
	}
	return dep, nil
}

// validate cubre la fase de validación local de la venta: nunca toca el store
// de lotes.
func (uc *ReconcileSaleUseCase) validate(ctx context.Context, input SaleInput) error {
	if input.SaleID == "" || len(input.Lines) == 0 {
		return domain.ErrInvalidInput
	}
	for _, line := range input.Lines {
		if line.ProductID == "" || !line.Method.IsValid() {
			return domain.ErrInvalidInput
		}
		if !line.Quantity.GreaterThan(decimal.Zero) {
			return domain.ErrInvalidInput
		}
	}
	return uc.locations.EnsureActive(ctx, input.CompanyID, input.Location)
}

// consumeSnapshot devuelve la copia del snapshot con los consumos del plan
// descontados, para que la siguiente línea del mismo producto planifique sobre
// el remanente real.
func consumeSnapshot(candidates []entity.StockBatch, draws []entity.BatchDraw) []entity.StockBatch {
	drawn := make(map[string]decimal.Decimal, len(draws))
	for _, d := range draws {
		drawn[d.BatchID] = drawn[d.BatchID].Add(d.Quantity)
	}
	out := make([]entity.StockBatch, 0, len(candidates))
	for _, b := range candidates {
		if q, ok := drawn[b.ID]; ok {
			b.RemainingQuantity = b.RemainingQuantity.Sub(q)
		}
		if b.RemainingQuantity.GreaterThan(decimal.Zero) {
			out = append(out, b)
		}
	}
	return out
}

// aggregateDraws suma los consumos por lote de todas las líneas en orden de
// primera aparición (determinista para la fase de aplicación).
func aggregateDraws(lines []entity.SaleLineDepletion) ([]string, map[string]decimal.Decimal) {
	order := make([]string, 0)
	totals := make(map[string]decimal.Decimal)
	for _, line := range lines {
		for _, d := range line.Draws {
			if _, seen := totals[d.BatchID]; !seen {
				order = append(order, d.BatchID)
			}
			totals[d.BatchID] = totals[d.BatchID].Add(d.Quantity)
		}
	}
	return order, totals
}

// segmentDraws devuelve la porción del desglose que empieza en offset unidades
// consumidas y abarca length unidades, respetando el orden de consumo original.
func segmentDraws(draws []entity.BatchDraw, offset, length decimal.Decimal) []entity.BatchDraw {
	var out []entity.BatchDraw
	skipped := decimal.Zero
	pending := length
	for _, d := range draws {
		if pending.LessThanOrEqual(decimal.Zero) {
			break
		}
		avail := d.Quantity
		if skipped.LessThan(offset) {
			skip := decimal.Min(offset.Sub(skipped), avail)
			skipped = skipped.Add(skip)
			avail = avail.Sub(skip)
		}
		if avail.LessThanOrEqual(decimal.Zero) {
			continue
		}
		take := decimal.Min(pending, avail)
		out = append(out, entity.BatchDraw{BatchID: d.BatchID, Quantity: take, UnitCost: d.UnitCost})
		pending = pending.Sub(take)
	}
	return out
}

// fullReversalLines arma la reversión total: todo lo reversible de cada línea.
func fullReversalLines(dep *entity.SaleDepletion) []LineReversal {
	totals := make(map[string]decimal.Decimal)
	order := make([]string, 0, len(dep.Lines))
	for _, line := range dep.Lines {
		if _, seen := totals[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		totals[line.ProductID] = totals[line.ProductID].Add(line.Reversible())
	}
	out := make([]LineReversal, 0, len(order))
	for _, pid := range order {
		if totals[pid].GreaterThan(decimal.Zero) {
			out = append(out, LineReversal{ProductID: pid, Quantity: totals[pid]})
		}
	}
	return out
}

// validateReversal exige cantidades positivas acotadas por lo reversible de
// cada producto.
func validateReversal(dep *entity.SaleDepletion, lines []LineReversal) error {
	reversible := make(map[string]decimal.Decimal)
	for _, line := range dep.Lines {
		reversible[line.ProductID] = reversible[line.ProductID].Add(line.Reversible())
	}
	for _, rev := range lines {
		if rev.ProductID == "" || !rev.Quantity.GreaterThan(decimal.Zero) {
			return domain.ErrInvalidInput
		}
		if rev.Quantity.GreaterThan(reversible[rev.ProductID]) {
			return domain.ErrInvalidInput
		}
	}
	return nil
}
