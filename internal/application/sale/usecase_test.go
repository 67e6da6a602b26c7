package sale_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/stock-lotes/internal/application/locations"
	"github.com/tu-usuario/stock-lotes/internal/application/sale"
	"github.com/tu-usuario/stock-lotes/internal/application/transfer"
	"github.com/tu-usuario/stock-lotes/internal/domain"
	"github.com/tu-usuario/stock-lotes/internal/domain/costing"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
	"github.com/tu-usuario/stock-lotes/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture: store en memoria con una tienda activa, una bodega y dos productos.
// ──────────────────────────────────────────────────────────────────────────────

const (
	testCompany  = "co-1"
	testUser     = "user-1"
	testProductA = "prod-a"
	testProductB = "prod-b"
)

var (
	shopLoc      = entity.LocationRef{Type: entity.LocationShop, ID: "sh-1"}
	warehouseLoc = entity.LocationRef{Type: entity.LocationWarehouse, ID: "wh-1"}

	t0 = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	store *memory.Store
	uc    *sale.ReconcileSaleUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, store.Shops().Create(ctx, &entity.Shop{
		ID: shopLoc.ID, CompanyID: testCompany, Name: "Tienda Norte", Active: true,
	}))
	require.NoError(t, store.Warehouses().Create(ctx, &entity.Warehouse{
		ID: warehouseLoc.ID, CompanyID: testCompany, Name: "Bodega Central", Active: true,
	}))
	require.NoError(t, store.Products().Create(ctx, &entity.Product{
		ID: testProductA, CompanyID: testCompany, SKU: "SKU-A", Name: "Café 500g",
	}))
	require.NoError(t, store.Products().Create(ctx, &entity.Product{
		ID: testProductB, CompanyID: testCompany, SKU: "SKU-B", Name: "Azúcar 1kg",
	}))

	resolver := locations.NewResolver(store.Shops(), store.Warehouses())
	uc := sale.NewReconcileSaleUseCase(store, store.Batches(), store.SaleDepletions(), resolver, 0)
	return &fixture{store: store, uc: uc}
}

func (f *fixture) seedBatch(t *testing.T, id, productID string, loc entity.LocationRef, qty, cost float64, dayOffset int) {
	t.Helper()
	q := decimal.NewFromFloat(qty)
	require.NoError(t, f.store.Batches().Create(context.Background(), &entity.StockBatch{
		ID:                id,
		ProductID:         productID,
		Location:          loc,
		OriginalQuantity:  q,
		RemainingQuantity: q,
		UnitCost:          decimal.NewFromFloat(cost),
		ReceivedAt:        t0.AddDate(0, 0, dayOffset),
		Status:            entity.BatchStatusActive,
	}))
}

func (f *fixture) available(t *testing.T, productID string, loc entity.LocationRef) decimal.Decimal {
	t.Helper()
	batches, err := f.store.Batches().ListActiveByLocation(context.Background(), productID, loc)
	require.NoError(t, err)
	total := decimal.Zero
	for _, b := range batches {
		total = total.Add(b.RemainingQuantity)
	}
	return total
}

func (f *fixture) saleInput(saleID string, lines ...sale.SaleLineInput) sale.SaleInput {
	return sale.SaleInput{
		CompanyID: testCompany,
		UserID:    testUser,
		SaleID:    saleID,
		Location:  shopLoc,
		Lines:     lines,
	}
}

func line(productID string, qty float64, method costing.Method) sale.SaleLineInput {
	return sale.SaleLineInput{ProductID: productID, Quantity: decimal.NewFromFloat(qty), Method: method}
}

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// ──────────────────────────────────────────────────────────────────────────────
// DepleteForSale
// ──────────────────────────────────────────────────────────────────────────────

func TestDepleteForSale_CostoRealizadoFIFO(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", testProductA, shopLoc, 10, 100, 0)

	dep, err := f.uc.DepleteForSale(context.Background(), f.saleInput("venta-1", line(testProductA, 3, costing.FIFO)))
	require.NoError(t, err)

	assert.Equal(t, entity.SaleDepletionApplied, dep.Status)
	require.Len(t, dep.Lines, 1)
	assert.True(t, dep.Lines[0].RealizedCost.Equal(dec(300)))
	assert.True(t, dep.TotalRealizedCost().Equal(dec(300)))
	assert.True(t, f.available(t, testProductA, shopLoc).Equal(dec(7)))
}

// Tras vender 3 y transferir 4 de las 10 unidades iniciales, una venta de 5 debe
// fallar por faltante nombrando el remanente real de 3.
func TestDepleteForSale_VentaTransferenciaVenta(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", testProductA, shopLoc, 10, 100, 0)
	ctx := context.Background()

	_, err := f.uc.DepleteForSale(ctx, f.saleInput("venta-1", line(testProductA, 3, costing.FIFO)))
	require.NoError(t, err)

	resolver := locations.NewResolver(f.store.Shops(), f.store.Warehouses())
	transferUC := transfer.NewExecuteTransferUseCase(
		f.store, f.store.Batches(), f.store.Transfers(), f.store.Products(), resolver, 0,
	)
	_, err = transferUC.Execute(ctx, transfer.TransferInput{
		CompanyID: testCompany,
		UserID:    testUser,
		ProductID: testProductA,
		Quantity:  dec(4),
		From:      shopLoc,
		To:        warehouseLoc,
		Method:    costing.FIFO,
	})
	require.NoError(t, err)

	_, err = f.uc.DepleteForSale(ctx, f.saleInput("venta-2", line(testProductA, 5, costing.FIFO)))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var shortage *domain.StockShortage
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, testProductA, shortage.ProductID)
	assert.True(t, shortage.Requested.Equal(dec(5)))
	assert.True(t, shortage.Available.Equal(dec(3)))
}

func TestDepleteForSale_MultilineaTodoONada(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-a", testProductA, shopLoc, 10, 100, 0)
	f.seedBatch(t, "b-b", testProductB, shopLoc, 2, 50, 0)

	// La segunda línea no alcanza: ninguna línea debe aplicarse.
	_, err := f.uc.DepleteForSale(context.Background(), f.saleInput("venta-1",
		line(testProductA, 4, costing.FIFO),
		line(testProductB, 5, costing.FIFO),
	))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.True(t, f.available(t, testProductA, shopLoc).Equal(dec(10)))
	assert.True(t, f.available(t, testProductB, shopLoc).Equal(dec(2)))

	got, err := f.store.SaleDepletions().GetBySaleID(context.Background(), "venta-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// Dos líneas del mismo producto planifican sobre el mismo remanente: juntas no
// pueden sobregirar la ubicación.
func TestDepleteForSale_LineasMismoProductoCompartenRemanente(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", testProductA, shopLoc, 10, 100, 0)
	ctx := context.Background()

	_, err := f.uc.DepleteForSale(ctx, f.saleInput("venta-1",
		line(testProductA, 6, costing.FIFO),
		line(testProductA, 6, costing.FIFO),
	))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, f.available(t, testProductA, shopLoc).Equal(dec(10)))

	dep, err := f.uc.DepleteForSale(ctx, f.saleInput("venta-2",
		line(testProductA, 6, costing.FIFO),
		line(testProductA, 4, costing.FIFO),
	))
	require.NoError(t, err)
	require.Len(t, dep.Lines, 2)
	assert.True(t, f.available(t, testProductA, shopLoc).IsZero())
}

func TestDepleteForSale_SaleIDDuplicado(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", testProductA, shopLoc, 10, 100, 0)
	ctx := context.Background()

	_, err := f.uc.DepleteForSale(ctx, f.saleInput("venta-1", line(testProductA, 3, costing.FIFO)))
	require.NoError(t, err)

	_, err = f.uc.DepleteForSale(ctx, f.saleInput("venta-1", line(testProductA, 2, costing.FIFO)))
	require.ErrorIs(t, err, domain.ErrDuplicate)

	// El intento duplicado no consume inventario.
	assert.True(t, f.available(t, testProductA, shopLoc).Equal(dec(7)))
}

func TestDepleteForSale_VentaCreditoConsumeIgual(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", testProductA, shopLoc, 10, 100, 0)

	in := f.saleInput("venta-credito", line(testProductA, 4, costing.FIFO))
	in.Credit = true
	dep, err := f.uc.DepleteForSale(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, dep.Credit)
	assert.True(t, f.available(t, testProductA, shopLoc).Equal(dec(6)))
}

func TestDepleteForSale_LineaCMUPUsaCostoPromedio(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", testProductA, shopLoc, 10, 100, 0)
	f.seedBatch(t, "b-2", testProductA, shopLoc, 10, 200, 1)

	dep, err := f.uc.DepleteForSale(context.Background(), f.saleInput("venta-1", line(testProductA, 4, costing.CMUP)))
	require.NoError(t, err)

	// Promedio ponderado 150: costo realizado 4 × 150.
	require.Len(t, dep.Lines, 1)
	assert.True(t, dep.Lines[0].RealizedCost.Equal(dec(600)))
}

func TestDepleteForSale_Validaciones(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", testProductA, shopLoc, 10, 100, 0)
	ctx := context.Background()

	t.Run("sin líneas", func(t *testing.T) {
		_, err := f.uc.DepleteForSale(ctx, f.saleInput("venta-1"))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("cantidad cero", func(t *testing.T) {
		_, err := f.uc.DepleteForSale(ctx, f.saleInput("venta-1", line(testProductA, 0, costing.FIFO)))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("método desconocido", func(t *testing.T) {
		_, err := f.uc.DepleteForSale(ctx, f.saleInput("venta-1", line(testProductA, 1, costing.Method("PEPS"))))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("ubicación inexistente", func(t *testing.T) {
		in := f.saleInput("venta-1", line(testProductA, 1, costing.FIFO))
		in.Location = entity.LocationRef{Type: entity.LocationShop, ID: "sh-fantasma"}
		_, err := f.uc.DepleteForSale(ctx, in)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// ReverseForSale
// ──────────────────────────────────────────────────────────────────────────────

func TestReverseForSale_TotalRestauraStockSinResucitarLotes(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", testProductA, shopLoc, 3, 100, 0)
	f.seedBatch(t, "b-2", testProductA, shopLoc, 7, 150, 1)
	ctx := context.Background()

	dep, err := f.uc.DepleteForSale(ctx, f.saleInput("venta-1", line(testProductA, 5, costing.FIFO)))
	require.NoError(t, err)

	reversed, err := f.uc.ReverseForSale(ctx, dep.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.SaleDepletionReversed, reversed.Status)
	assert.True(t, f.available(t, testProductA, shopLoc).Equal(dec(10)))

	// b-1 se agotó en la venta y permanece agotado: la devolución entra en lotes
	// nuevos con los pares (cantidad, costo) del desglose.
	b1, err := f.store.Batches().GetByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, entity.BatchStatusDepleted, b1.Status)

	batches, err := f.store.Batches().ListActiveByLocation(ctx, testProductA, shopLoc)
	require.NoError(t, err)
	restored := map[string]string{}
	for _, b := range batches {
		if b.ID != "b-2" {
			restored[b.UnitCost.String()] = b.RemainingQuantity.String()
		}
	}
	assert.Equal(t, "3", restored[dec(100).String()])
	assert.Equal(t, "2", restored[dec(150).String()])
}

func TestReverseForSale_ParcialEnOrdenDeConsumo(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", testProductA, shopLoc, 3, 100, 0)
	f.seedBatch(t, "b-2", testProductA, shopLoc, 7, 150, 1)
	ctx := context.Background()

	dep, err := f.uc.DepleteForSale(ctx, f.saleInput("venta-1", line(testProductA, 5, costing.FIFO)))
	require.NoError(t, err)

	// Primera devolución de 4: cubre las 3 unidades a 100 y 1 a 150.
	partial, err := f.uc.ReverseForSale(ctx, dep.ID, []sale.LineReversal{
		{ProductID: testProductA, Quantity: dec(4)},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.SaleDepletionPartiallyReversed, partial.Status)
	assert.True(t, f.available(t, testProductA, shopLoc).Equal(dec(9)))

	// Devolver más de lo que queda reversible se rechaza.
	_, err = f.uc.ReverseForSale(ctx, dep.ID, []sale.LineReversal{
		{ProductID: testProductA, Quantity: dec(2)},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// La segunda devolución continúa donde quedó el desglose: 1 unidad a 150.
	final, err := f.uc.ReverseForSale(ctx, dep.ID, []sale.LineReversal{
		{ProductID: testProductA, Quantity: dec(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.SaleDepletionReversed, final.Status)
	assert.True(t, f.available(t, testProductA, shopLoc).Equal(dec(10)))

	costs := decimal.Zero
	batches, err := f.store.Batches().ListActiveByLocation(ctx, testProductA, shopLoc)
	require.NoError(t, err)
	for _, b := range batches {
		costs = costs.Add(b.RemainingQuantity.Mul(b.UnitCost))
	}
	// Valor total restaurado: 3×100 + 7×150 como al inicio.
	assert.True(t, costs.Equal(dec(1350)))
}

func TestReverseForSale_EstadosInvalidos(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", testProductA, shopLoc, 10, 100, 0)
	ctx := context.Background()

	t.Run("registro inexistente", func(t *testing.T) {
		_, err := f.uc.ReverseForSale(ctx, "dep-fantasma", nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	dep, err := f.uc.DepleteForSale(ctx, f.saleInput("venta-1", line(testProductA, 2, costing.FIFO)))
	require.NoError(t, err)
	_, err = f.uc.ReverseForSale(ctx, dep.ID, nil)
	require.NoError(t, err)

	t.Run("revertir lo ya revertido", func(t *testing.T) {
		_, err := f.uc.ReverseForSale(ctx, dep.ID, nil)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("cantidad no positiva", func(t *testing.T) {
		dep2, err := f.uc.DepleteForSale(ctx, f.saleInput("venta-2", line(testProductA, 2, costing.FIFO)))
		require.NoError(t, err)
		_, err = f.uc.ReverseForSale(ctx, dep2.ID, []sale.LineReversal{
			{ProductID: testProductA, Quantity: decimal.Zero},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia
// ──────────────────────────────────────────────────────────────────────────────

// Dos ventas simultáneas de 6 sobre 10 unidades: exactamente una gana; la otra
// replanifica sobre el remanente real y falla por faltante.
func TestDepleteForSale_VentasConcurrentes_SoloUnaGana(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", testProductA, shopLoc, 10, 100, 0)
	ctx := context.Background()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.DepleteForSale(ctx,
				f.saleInput("venta-"+string(rune('a'+i)), line(testProductA, 6, costing.FIFO)))
		}(i)
	}
	wg.Wait()

	var ok, shortages int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			shortages++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "exactamente una venta debe aplicarse")
	assert.Equal(t, 1, shortages)
	assert.True(t, f.available(t, testProductA, shopLoc).Equal(dec(4)))
}

// conflictedRunner devuelve conflicto de concurrencia en los primeros intentos
// y después delega en el store real.
type conflictedRunner struct {
	store *memory.Store
	fails int
}

func (r *conflictedRunner) RunSale(ctx context.Context, fn func(
	batchRepo repository.BatchRepository,
	saleRepo repository.SaleDepletionRepository,
) error) error {
	if r.fails > 0 {
		r.fails--
		return domain.ErrConcurrentModification
	}
	return r.store.RunSale(ctx, fn)
}

func TestDepleteForSale_ReintentaTrasConflicto(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", testProductA, shopLoc, 10, 100, 0)
	ctx := context.Background()
	resolver := locations.NewResolver(f.store.Shops(), f.store.Warehouses())

	t.Run("conflicto transitorio se supera", func(t *testing.T) {
		runner := &conflictedRunner{store: f.store, fails: 2}
		uc := sale.NewReconcileSaleUseCase(runner, f.store.Batches(), f.store.SaleDepletions(), resolver, 3)

		dep, err := uc.DepleteForSale(ctx, f.saleInput("venta-1", line(testProductA, 3, costing.FIFO)))
		require.NoError(t, err)
		assert.Equal(t, entity.SaleDepletionApplied, dep.Status)
		assert.True(t, f.available(t, testProductA, shopLoc).Equal(dec(7)))
	})

	t.Run("conflicto persistente agota los reintentos", func(t *testing.T) {
		runner := &conflictedRunner{store: f.store, fails: 5}
		uc := sale.NewReconcileSaleUseCase(runner, f.store.Batches(), f.store.SaleDepletions(), resolver, 3)

		_, err := uc.DepleteForSale(ctx, f.saleInput("venta-2", line(testProductA, 1, costing.FIFO)))
		assert.ErrorIs(t, err, domain.ErrConcurrentModification)
		// Ningún consumo quedó aplicado.
		assert.True(t, f.available(t, testProductA, shopLoc).Equal(dec(7)))
	})
}

// racingSaleRepo deja que una reversión competidora se complete justo después
// de la lectura del registro, dejando vencida la versión leída.
type racingSaleRepo struct {
	repository.SaleDepletionRepository
	once       sync.Once
	competitor func()
}

func (r *racingSaleRepo) GetByID(ctx context.Context, id string) (*entity.SaleDepletion, error) {
	dep, err := r.SaleDepletionRepository.GetByID(ctx, id)
	if err == nil && dep != nil {
		r.once.Do(r.competitor)
	}
	return dep, err
}

// Dos reversiones de la misma venta que leen el mismo estado: solo la primera
// confirma; la perdedora reintenta, ve la venta ya revertida y falla con
// conflicto. El stock se restaura exactamente una vez.
func TestReverseForSale_ReversionesCompetidoras_NoDuplicanStock(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", testProductA, shopLoc, 10, 100, 0)
	ctx := context.Background()
	resolver := locations.NewResolver(f.store.Shops(), f.store.Warehouses())

	dep, err := f.uc.DepleteForSale(ctx, f.saleInput("venta-1", line(testProductA, 6, costing.FIFO)))
	require.NoError(t, err)
	require.True(t, f.available(t, testProductA, shopLoc).Equal(dec(4)))

	racing := &racingSaleRepo{
		SaleDepletionRepository: f.store.SaleDepletions(),
		competitor: func() {
			_, err := f.uc.ReverseForSale(ctx, dep.ID, nil)
			require.NoError(t, err)
		},
	}
	loser := sale.NewReconcileSaleUseCase(f.store, f.store.Batches(), racing, resolver, 3)

	_, err = loser.ReverseForSale(ctx, dep.ID, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Restaurado una sola vez: 10, nunca 16.
	assert.True(t, f.available(t, testProductA, shopLoc).Equal(dec(10)))
	got, err := f.store.SaleDepletions().GetByID(ctx, dep.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SaleDepletionReversed, got.Status)
}
