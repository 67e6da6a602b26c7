package transfer_test

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
	"github.com/tu-usuario/stock-lotes/internal/application/transfer"
	"github.com/tu-usuario/stock-lotes/internal/domain"
	"github.com/tu-usuario/stock-lotes/internal/domain/costing"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
	"github.com/tu-usuario/stock-lotes/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture: store en memoria con una bodega, dos tiendas (una desactivada) y un
// producto de la empresa co-1.
// ──────────────────────────────────────────────────────────────────────────────

const (
	testCompany = "co-1"
	testUser    = "user-1"
	testProduct = "prod-1"
)

var (
	warehouseLoc = entity.LocationRef{Type: entity.LocationWarehouse, ID: "wh-1"}
	shopLoc      = entity.LocationRef{Type: entity.LocationShop, ID: "sh-1"}
	offShopLoc   = entity.LocationRef{Type: entity.LocationShop, ID: "sh-off"}

	t0 = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	store *memory.Store
	uc    *transfer.ExecuteTransferUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, store.Warehouses().Create(ctx, &entity.Warehouse{
		ID: warehouseLoc.ID, CompanyID: testCompany, Name: "Bodega Central", Active: true,
	}))
	require.NoError(t, store.Shops().Create(ctx, &entity.Shop{
		ID: shopLoc.ID, CompanyID: testCompany, Name: "Tienda Norte", Active: true,
	}))
	require.NoError(t, store.Shops().Create(ctx, &entity.Shop{
		ID: offShopLoc.ID, CompanyID: testCompany, Name: "Tienda Cerrada", Active: false,
	}))
	require.NoError(t, store.Products().Create(ctx, &entity.Product{
		ID: testProduct, CompanyID: testCompany, SKU: "SKU-1", Name: "Café 500g",
	}))

	resolver := locations.NewResolver(store.Shops(), store.Warehouses())
	uc := transfer.NewExecuteTransferUseCase(
		store, store.Batches(), store.Transfers(), store.Products(), resolver, 0,
	)
	return &fixture{store: store, uc: uc}
}

// seedBatch crea un lote activo en la ubicación dada.
func (f *fixture) seedBatch(t *testing.T, id string, loc entity.LocationRef, qty, cost float64, dayOffset int) {
	t.Helper()
	q := decimal.NewFromFloat(qty)
	require.NoError(t, f.store.Batches().Create(context.Background(), &entity.StockBatch{
		ID:                id,
		ProductID:         testProduct,
		Location:          loc,
		OriginalQuantity:  q,
		RemainingQuantity: q,
		UnitCost:          decimal.NewFromFloat(cost),
		ReceivedAt:        t0.AddDate(0, 0, dayOffset),
		Status:            entity.BatchStatusActive,
	}))
}

// available suma los remanentes activos del producto en la ubicación.
func (f *fixture) available(t *testing.T, loc entity.LocationRef) decimal.Decimal {
	t.Helper()
	batches, err := f.store.Batches().ListActiveByLocation(context.Background(), testProduct, loc)
	require.NoError(t, err)
	total := decimal.Zero
	for _, b := range batches {
		total = total.Add(b.RemainingQuantity)
	}
	return total
}

func (f *fixture) input(qty float64, from, to entity.LocationRef, method costing.Method) transfer.TransferInput {
	return transfer.TransferInput{
		CompanyID: testCompany,
		UserID:    testUser,
		ProductID: testProduct,
		Quantity:  decimal.NewFromFloat(qty),
		From:      from,
		To:        to,
		Method:    method,
	}
}

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// ──────────────────────────────────────────────────────────────────────────────
// Execute
// ──────────────────────────────────────────────────────────────────────────────

func TestExecute_FIFO_MueveStockYConservaCantidad(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", warehouseLoc, 10, 100, 0)

	result, err := f.uc.Execute(context.Background(), f.input(4, warehouseLoc, shopLoc, costing.FIFO))
	require.NoError(t, err)

	assert.Equal(t, entity.TransferStatusCompleted, result.Status)
	assert.Equal(t, entity.TransferWarehouseToShop, result.TransferType)
	assert.True(t, result.ConsumedQuantity().Equal(dec(4)))

	// Conservación: 6 quedan en bodega, 4 llegan a la tienda.
	assert.True(t, f.available(t, warehouseLoc).Equal(dec(6)))
	assert.True(t, f.available(t, shopLoc).Equal(dec(4)))

	// El lote destino conserva la base de costo del origen.
	require.Len(t, result.CreatedBatchIDs, 1)
	dest, err := f.store.Batches().GetByID(context.Background(), result.CreatedBatchIDs[0])
	require.NoError(t, err)
	require.NotNil(t, dest)
	assert.True(t, dest.UnitCost.Equal(dec(100)))
	assert.True(t, dest.RemainingQuantity.Equal(dec(4)))
}

func TestExecute_DosCostosOrigen_DosLotesDestino(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-viejo", warehouseLoc, 5, 100, 0)
	f.seedBatch(t, "b-nuevo", warehouseLoc, 5, 150, 1)

	result, err := f.uc.Execute(context.Background(), f.input(8, warehouseLoc, shopLoc, costing.FIFO))
	require.NoError(t, err)

	// Nunca se mezclan costos en un solo lote destino.
	require.Len(t, result.CreatedBatchIDs, 2)
	require.Len(t, result.ConsumedBatches, 2)
	assert.Equal(t, "b-viejo", result.ConsumedBatches[0].BatchID)
	assert.True(t, result.ConsumedBatches[0].Quantity.Equal(dec(5)))
	assert.Equal(t, "b-nuevo", result.ConsumedBatches[1].BatchID)
	assert.True(t, result.ConsumedBatches[1].Quantity.Equal(dec(3)))

	costs := map[string]bool{}
	for _, id := range result.CreatedBatchIDs {
		b, err := f.store.Batches().GetByID(context.Background(), id)
		require.NoError(t, err)
		costs[b.UnitCost.String()] = true
	}
	assert.Len(t, costs, 2, "cada lote destino debe conservar su costo de origen")
}

func TestExecute_LIFO_ConsumeDelMasReciente(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-viejo", warehouseLoc, 5, 100, 0)
	f.seedBatch(t, "b-nuevo", warehouseLoc, 5, 150, 1)

	result, err := f.uc.Execute(context.Background(), f.input(3, warehouseLoc, shopLoc, costing.LIFO))
	require.NoError(t, err)

	require.Len(t, result.ConsumedBatches, 1)
	assert.Equal(t, "b-nuevo", result.ConsumedBatches[0].BatchID)
}

func TestExecute_Validaciones(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", warehouseLoc, 10, 100, 0)
	ctx := context.Background()

	t.Run("cantidad cero", func(t *testing.T) {
		_, err := f.uc.Execute(ctx, f.input(0, warehouseLoc, shopLoc, costing.FIFO))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("CMUP no aplica a transferencias", func(t *testing.T) {
		_, err := f.uc.Execute(ctx, f.input(1, warehouseLoc, shopLoc, costing.CMUP))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("origen igual a destino", func(t *testing.T) {
		_, err := f.uc.Execute(ctx, f.input(1, warehouseLoc, warehouseLoc, costing.FIFO))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("destino desactivado", func(t *testing.T) {
		_, err := f.uc.Execute(ctx, f.input(1, warehouseLoc, offShopLoc, costing.FIFO))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("producto inexistente", func(t *testing.T) {
		in := f.input(1, warehouseLoc, shopLoc, costing.FIFO)
		in.ProductID = "prod-fantasma"
		_, err := f.uc.Execute(ctx, in)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("producto de otra empresa", func(t *testing.T) {
		in := f.input(1, warehouseLoc, shopLoc, costing.FIFO)
		in.CompanyID = "co-ajena"
		_, err := f.uc.Execute(ctx, in)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestExecute_StockInsuficiente_SinEfectos(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", warehouseLoc, 3, 100, 0)

	_, err := f.uc.Execute(context.Background(), f.input(5, warehouseLoc, shopLoc, costing.FIFO))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Nada se movió y no quedó transferencia registrada.
	assert.True(t, f.available(t, warehouseLoc).Equal(dec(3)))
	assert.True(t, f.available(t, shopLoc).IsZero())
	list, err := f.store.Transfers().ListByProduct(context.Background(), testProduct, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reverse
// ──────────────────────────────────────────────────────────────────────────────

func TestReverse_DevuelveStockConCostoOriginal(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-viejo", warehouseLoc, 5, 100, 0)
	f.seedBatch(t, "b-nuevo", warehouseLoc, 5, 150, 1)
	ctx := context.Background()

	original, err := f.uc.Execute(ctx, f.input(8, warehouseLoc, shopLoc, costing.FIFO))
	require.NoError(t, err)

	reversal, err := f.uc.Reverse(ctx, original.ID, testUser)
	require.NoError(t, err)

	assert.Equal(t, original.ID, reversal.ReversalOf)
	assert.Equal(t, entity.TransferShopToWarehouse, reversal.TransferType)
	assert.True(t, reversal.Quantity.Equal(dec(8)))

	// El stock vuelve al origen y el destino queda vacío.
	assert.True(t, f.available(t, warehouseLoc).Equal(dec(10)))
	assert.True(t, f.available(t, shopLoc).IsZero())

	// Los lotes devueltos conservan los pares (cantidad, costo) consumidos.
	gotCosts := map[string]string{}
	for _, id := range reversal.CreatedBatchIDs {
		b, err := f.store.Batches().GetByID(ctx, id)
		require.NoError(t, err)
		gotCosts[b.UnitCost.String()] = b.RemainingQuantity.String()
	}
	assert.Equal(t, "5", gotCosts[dec(100).String()])
	assert.Equal(t, "3", gotCosts[dec(150).String()])

	// Los lotes destino quedan cancelados, no agotados.
	for _, id := range original.CreatedBatchIDs {
		b, err := f.store.Batches().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, entity.BatchStatusCancelled, b.Status)
	}

	// La transferencia original queda cancelled.
	got, err := f.store.Transfers().GetByID(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusCancelled, got.Status)
}

func TestReverse_LoteDestinoYaConsumido_Conflicto(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", warehouseLoc, 10, 100, 0)
	ctx := context.Background()

	original, err := f.uc.Execute(ctx, f.input(6, warehouseLoc, shopLoc, costing.FIFO))
	require.NoError(t, err)

	// Una operación posterior consume parte del lote creado en la tienda.
	dest, err := f.store.Batches().GetByID(ctx, original.CreatedBatchIDs[0])
	require.NoError(t, err)
	require.NoError(t, f.store.Batches().ApplyDepletion(ctx, dest.ID, dec(1), dest.Version))

	_, err = f.uc.Reverse(ctx, original.ID, testUser)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestReverse_EstadosInvalidos(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", warehouseLoc, 10, 100, 0)
	ctx := context.Background()

	t.Run("transferencia inexistente", func(t *testing.T) {
		_, err := f.uc.Reverse(ctx, "tr-fantasma", testUser)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	original, err := f.uc.Execute(ctx, f.input(4, warehouseLoc, shopLoc, costing.FIFO))
	require.NoError(t, err)
	reversal, err := f.uc.Reverse(ctx, original.ID, testUser)
	require.NoError(t, err)

	t.Run("revertir una reversión", func(t *testing.T) {
		_, err := f.uc.Reverse(ctx, reversal.ID, testUser)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("revertir dos veces", func(t *testing.T) {
		_, err := f.uc.Reverse(ctx, original.ID, testUser)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

// Dos transferencias simultáneas de 6 sobre 10 unidades: el control de versión
// por lote deja pasar exactamente una; la otra replanifica y falla por faltante.
func TestExecute_TransferenciasConcurrentes_SoloUnaGana(t *testing.T) {
	f := newFixture(t)
	f.seedBatch(t, "b-1", warehouseLoc, 10, 100, 0)
	ctx := context.Background()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.Execute(ctx, f.input(6, warehouseLoc, shopLoc, costing.FIFO))
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
	assert.Equal(t, 1, ok, "exactamente una transferencia debe completarse")
	assert.Equal(t, 1, shortages)
	assert.True(t, f.available(t, warehouseLoc).Equal(dec(4)))
	assert.True(t, f.available(t, shopLoc).Equal(dec(6)))
}
