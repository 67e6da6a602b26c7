package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/stock-lotes/internal/application/catalog"
	"github.com/tu-usuario/stock-lotes/internal/application/dto"
	"github.com/tu-usuario/stock-lotes/internal/application/locations"
	"github.com/tu-usuario/stock-lotes/internal/application/sale"
	"github.com/tu-usuario/stock-lotes/internal/application/stock"
	"github.com/tu-usuario/stock-lotes/internal/application/transfer"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
	"github.com/tu-usuario/stock-lotes/internal/infrastructure/memory"
	apphttp "github.com/tu-usuario/stock-lotes/internal/interfaces/http"
	pkgjwt "github.com/tu-usuario/stock-lotes/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// App completa sobre el store en memoria: ejercita el mapeo de errores de
// dominio a códigos HTTP a través del router real.
// ──────────────────────────────────────────────────────────────────────────────

func newAPIApp(t *testing.T) (*fiber.App, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, store.Warehouses().Create(ctx, &entity.Warehouse{
		ID: "wh-1", CompanyID: testCompanyID, Name: "Bodega Central", Active: true,
	}))
	require.NoError(t, store.Shops().Create(ctx, &entity.Shop{
		ID: "sh-1", CompanyID: testCompanyID, Name: "Tienda Norte", Active: true,
	}))
	require.NoError(t, store.Products().Create(ctx, &entity.Product{
		ID: "prod-1", CompanyID: testCompanyID, SKU: "SKU-1", Name: "Café 500g",
	}))
	qty := decimal.NewFromInt(10)
	require.NoError(t, store.Batches().Create(ctx, &entity.StockBatch{
		ID:                "b-1",
		ProductID:         "prod-1",
		Location:          entity.LocationRef{Type: entity.LocationWarehouse, ID: "wh-1"},
		OriginalQuantity:  qty,
		RemainingQuantity: qty,
		UnitCost:          decimal.NewFromInt(100),
		ReceivedAt:        time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		Status:            entity.BatchStatusActive,
	}))

	resolver := locations.NewResolver(store.Shops(), store.Warehouses())
	availabilityUC := stock.NewAvailabilityUseCase(store.Batches())

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		WarehouseUC:    catalog.NewWarehouseUseCase(store.Warehouses()),
		ShopUC:         catalog.NewShopUseCase(store.Shops()),
		ProductUC:      catalog.NewProductUseCase(store.Products(), resolver),
		ReceiveStock:   stock.NewReceiveStockUseCase(store.Batches(), store.Products(), resolver),
		Availability:   availabilityUC,
		EffectiveStock: stock.NewEffectiveStockUseCase(availabilityUC, store.Products(), store.Shops(), store.Warehouses()),
		TransferUC: transfer.NewExecuteTransferUseCase(
			store, store.Batches(), store.Transfers(), store.Products(), resolver, 0,
		),
		SaleUC: sale.NewReconcileSaleUseCase(
			store, store.Batches(), store.SaleDepletions(), resolver, 0,
		),
		TransferRepo: store.Transfers(),
		SaleRepo:     store.SaleDepletions(),
		JWTSecret:    testJWTSecret,
	})
	return app, store
}

func apiToken(t *testing.T) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testCompanyID, "bodeguero", testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

func postJSON(t *testing.T, app *fiber.App, path string, body any, auth string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func transferBody(productID string, qty float64, method string) dto.TransferRequest {
	return dto.TransferRequest{
		ProductID: productID,
		Quantity:  decimal.NewFromFloat(qty),
		From:      dto.LocationDTO{Type: "warehouse", ID: "wh-1"},
		To:        dto.LocationDTO{Type: "shop", ID: "sh-1"},
		Method:    method,
	}
}

func decodeError(t *testing.T, resp *http.Response) dto.ErrorResponse {
	t.Helper()
	var out dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestTransferHandler_SinToken_Retorna401(t *testing.T) {
	app, _ := newAPIApp(t)
	resp := postJSON(t, app, "/api/transfers/", transferBody("prod-1", 1, "FIFO"), "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTransferHandler_TransferenciaValida_Retorna201(t *testing.T) {
	app, _ := newAPIApp(t)
	resp := postJSON(t, app, "/api/transfers/", transferBody("prod-1", 4, "FIFO"), apiToken(t))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out dto.TransferResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "completed", out.Status)
	assert.Equal(t, "warehouse_to_shop", out.TransferType)
	require.Len(t, out.ConsumedBatches, 1)
	assert.Equal(t, "b-1", out.ConsumedBatches[0].BatchID)
}

func TestTransferHandler_MetodoCMUP_Retorna400(t *testing.T) {
	app, _ := newAPIApp(t)
	resp := postJSON(t, app, "/api/transfers/", transferBody("prod-1", 1, "CMUP"), apiToken(t))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decodeError(t, resp).Code)
}

func TestTransferHandler_ProductoInexistente_Retorna404(t *testing.T) {
	app, _ := newAPIApp(t)
	resp := postJSON(t, app, "/api/transfers/", transferBody("prod-fantasma", 1, "FIFO"), apiToken(t))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)
}

func TestTransferHandler_StockInsuficiente_Retorna409ConDetalle(t *testing.T) {
	app, _ := newAPIApp(t)
	resp := postJSON(t, app, "/api/transfers/", transferBody("prod-1", 50, "FIFO"), apiToken(t))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	out := decodeError(t, resp)
	assert.Equal(t, "INSUFFICIENT_STOCK", out.Code)
	assert.Contains(t, out.Message, "prod-1")
	assert.Contains(t, out.Message, "50")
	assert.Contains(t, out.Message, "10")
}

func TestTransferHandler_Reverse(t *testing.T) {
	app, _ := newAPIApp(t)
	auth := apiToken(t)

	resp := postJSON(t, app, "/api/transfers/", transferBody("prod-1", 4, "FIFO"), auth)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created dto.TransferResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	t.Run("reversión válida retorna 201", func(t *testing.T) {
		resp := postJSON(t, app, "/api/transfers/"+created.ID+"/reverse", nil, auth)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var rev dto.TransferResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&rev))
		assert.Equal(t, created.ID, rev.ReversalOf)
	})

	t.Run("segunda reversión retorna 409", func(t *testing.T) {
		resp := postJSON(t, app, "/api/transfers/"+created.ID+"/reverse", nil, auth)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "CONFLICT", decodeError(t, resp).Code)
	})

	t.Run("reversión de transferencia inexistente retorna 404", func(t *testing.T) {
		resp := postJSON(t, app, "/api/transfers/tr-fantasma/reverse", nil, auth)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
