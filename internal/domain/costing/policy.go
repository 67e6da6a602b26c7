package costing

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-lotes/internal/domain"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
)

// Method es el método de costeo que decide qué lotes se consumen y en qué orden.
type Method string

const (
	FIFO Method = "FIFO" // primero en entrar, primero en salir
	LIFO Method = "LIFO" // último en entrar, primero en salir
	CMUP Method = "CMUP" // costo medio unitario ponderado
)

// IsValid indica si el método es conocido.
func (m Method) IsValid() bool {
	return m == FIFO || m == LIFO || m == CMUP
}

// String devuelve la representación textual del método.
func (m Method) String() string { return string(m) }

// quantityPlaces precisión de cantidades del ledger (decimal(20,4) en la BD).
const quantityPlaces = 4

// Plan es el resultado puro de la selección de lotes: qué consumir de cada lote
// y el costo unitario a reportar. Para FIFO/LIFO cada consumo lleva el costo del
// lote; para CMUP, UnitCost es el promedio ponderado de todos los lotes activos
// y los consumos conservan igualmente el costo por lote para la contabilidad.
type Plan struct {
	Method   Method
	Draws    []entity.BatchDraw
	UnitCost decimal.Decimal // costo unitario reportado para la operación
}

// TotalQuantity suma la cantidad planificada.
func (p *Plan) TotalQuantity() decimal.Decimal {
	return entity.TotalDrawn(p.Draws)
}

// TotalCost devuelve el costo realizado del plan. Para CMUP se usa el costo
// promedio por la cantidad total; para FIFO/LIFO la suma exacta por lote.
func (p *Plan) TotalCost() decimal.Decimal {
	if p.Method == CMUP {
		return p.TotalQuantity().Mul(p.UnitCost)
	}
	total := decimal.Zero
	for _, d := range p.Draws {
		total = total.Add(d.Quantity.Mul(d.UnitCost))
	}
	return total
}

// SelectBatches arma el plan de consumo sobre los lotes candidatos. Es una
// función pura: nunca muta los candidatos ni toca almacenamiento (plan primero,
// aplicar después).
//
// Reglas:
//   - qty == 0 devuelve un plan vacío sin error.
//   - qty < 0 o método desconocido devuelve ErrInvalidInput.
//   - Si la suma de remanentes activos no alcanza qty, devuelve *StockShortage
//     (envuelve ErrInsufficientStock) sin plan parcial.
//   - Empate de ReceivedAt: desempata por ID ascendente (determinista).
func SelectBatches(candidates []entity.StockBatch, qty decimal.Decimal, method Method) (*Plan, error) {
	if !method.IsValid() || qty.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	plan := &Plan{Method: method, UnitCost: decimal.Zero}
	if qty.IsZero() {
		return plan, nil
	}

	active := activeWithStock(candidates)
	available := decimal.Zero
	for _, b := range active {
		available = available.Add(b.RemainingQuantity)
	}
	if available.LessThan(qty) {
		productID := ""
		if len(candidates) > 0 {
			productID = candidates[0].ProductID
		}
		return nil, &domain.StockShortage{ProductID: productID, Requested: qty, Available: available}
	}

	switch method {
	case FIFO:
		sortByReceivedAt(active, true)
		plan.Draws = greedyDraws(active, qty)
	case LIFO:
		sortByReceivedAt(active, false)
		plan.Draws = greedyDraws(active, qty)
	case CMUP:
		plan.UnitCost = AverageUnitCost(active)
		sortByRemaining(active)
		plan.Draws = proportionalDraws(active, qty)
	}
	return plan, nil
}

// AverageUnitCost calcula el costo medio unitario ponderado sobre los lotes:
// Σ(remanente_i * costo_i) / Σ remanente_i. Devuelve cero si no hay remanente.
func AverageUnitCost(batches []entity.StockBatch) decimal.Decimal {
	totalQty := decimal.Zero
	totalValue := decimal.Zero
	for _, b := range batches {
		totalQty = totalQty.Add(b.RemainingQuantity)
		totalValue = totalValue.Add(b.RemainingQuantity.Mul(b.UnitCost))
	}
	if totalQty.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return totalValue.Div(totalQty)
}

// activeWithStock filtra candidatos a lotes activos con remanente positivo.
func activeWithStock(candidates []entity.StockBatch) []entity.StockBatch {
	out := make([]entity.StockBatch, 0, len(candidates))
	for _, b := range candidates {
		if b.HasStock() {
			out = append(out, b)
		}
	}
	return out
}

func sortByReceivedAt(batches []entity.StockBatch, oldestFirst bool) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ID < b.ID
		}
		if oldestFirst {
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
		return a.ReceivedAt.After(b.ReceivedAt)
	})
}

func sortByRemaining(batches []entity.StockBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if a.RemainingQuantity.Equal(b.RemainingQuantity) {
			return a.ID < b.ID
		}
		return a.RemainingQuantity.LessThan(b.RemainingQuantity)
	})
}

// greedyDraws consume lotes en el orden dado hasta satisfacer qty.
// Presupone que la suma de remanentes alcanza (verificado por el caller).
func greedyDraws(batches []entity.StockBatch, qty decimal.Decimal) []entity.BatchDraw {
	draws := make([]entity.BatchDraw, 0, len(batches))
	pending := qty
	for _, b := range batches {
		if pending.LessThanOrEqual(decimal.Zero) {
			break
		}
		take := decimal.Min(pending, b.RemainingQuantity)
		draws = append(draws, entity.BatchDraw{BatchID: b.ID, Quantity: take, UnitCost: b.UnitCost})
		pending = pending.Sub(take)
	}
	return draws
}

// proportionalDraws reparte qty entre todos los lotes en proporción a su
// remanente, redondeando a la precisión del ledger. El residuo de redondeo se
// redistribuye en orden sobre los lotes con capacidad sobrante para que la suma
// de consumos sea exactamente qty sin exceder ningún lote.
func proportionalDraws(batches []entity.StockBatch, qty decimal.Decimal) []entity.BatchDraw {
	total := decimal.Zero
	for _, b := range batches {
		total = total.Add(b.RemainingQuantity)
	}

	draws := make([]entity.BatchDraw, len(batches))
	assigned := decimal.Zero
	for i, b := range batches {
		take := qty.Mul(b.RemainingQuantity).DivRound(total, quantityPlaces)
		if take.GreaterThan(b.RemainingQuantity) {
			take = b.RemainingQuantity
		}
		if assigned.Add(take).GreaterThan(qty) {
			take = qty.Sub(assigned)
		}
		draws[i] = entity.BatchDraw{BatchID: b.ID, Quantity: take, UnitCost: b.UnitCost}
		assigned = assigned.Add(take)
	}

	// Residuo de redondeo: repartir sobre la capacidad sobrante en orden.
	pending := qty.Sub(assigned)
	for i := range draws {
		if pending.LessThanOrEqual(decimal.Zero) {
			break
		}
		spare := batches[i].RemainingQuantity.Sub(draws[i].Quantity)
		if spare.LessThanOrEqual(decimal.Zero) {
			continue
		}
		extra := decimal.Min(pending, spare)
		draws[i].Quantity = draws[i].Quantity.Add(extra)
		pending = pending.Sub(extra)
	}

	out := draws[:0]
	for _, d := range draws {
		if d.Quantity.GreaterThan(decimal.Zero) {
			out = append(out, d)
		}
	}
	return out
}
