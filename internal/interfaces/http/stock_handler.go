package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/stock-lotes/internal/application/dto"
	"github.com/tu-usuario/stock-lotes/internal/application/stock"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
)

// StockHandler maneja las peticiones HTTP de lotes y disponibilidad (protegido).
type StockHandler struct {
	receive      *stock.ReceiveStockUseCase
	availability *stock.AvailabilityUseCase
	effective    *stock.EffectiveStockUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(
	receive *stock.ReceiveStockUseCase,
	availability *stock.AvailabilityUseCase,
	effective *stock.EffectiveStockUseCase,
) *StockHandler {
	return &StockHandler{receive: receive, availability: availability, effective: effective}
}

// ReceiveBatch godoc
// @Summary      Registrar entrada de mercancía (nuevo lote)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveBatchRequest  true  "product_id, location, quantity, unit_cost, received_at (opcional)"
// @Success      201   {object}  dto.BatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/batches [post]
func (h *StockHandler) ReceiveBatch(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	userID := GetUserID(c)
	if companyID == "" || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ReceiveBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	input := stock.ReceiptInput{
		CompanyID: companyID,
		UserID:    userID,
		ProductID: in.ProductID,
		Location:  in.Location.ToRef(),
		Quantity:  in.Quantity,
		UnitCost:  in.UnitCost,
	}
	if in.ReceivedAt != nil {
		input.ReceivedAt = *in.ReceivedAt
	}
	batch, err := h.receive.Receive(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toBatchResponse(batch))
}

// GetAvailability godoc
// @Summary      Disponibilidad de un producto en una ubicación
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id     query  string  true  "ID del producto"
// @Param        location_type  query  string  true  "shop | warehouse"
// @Param        location_id    query  string  true  "ID de la ubicación"
// @Success      200  {object}  dto.AvailabilityResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/availability [get]
func (h *StockHandler) GetAvailability(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	productID := c.Query("product_id")
	loc := entity.LocationRef{
		Type: entity.LocationType(c.Query("location_type")),
		ID:   c.Query("location_id"),
	}
	qty, err := h.availability.GetAvailableStock(c.Context(), productID, loc)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.AvailabilityResponse{
		ProductID: productID,
		Location:  dto.FromLocationRef(loc),
		Quantity:  qty,
	})
}

// GetEffectiveStock godoc
// @Summary      Stock vendible efectivo de un producto (con desglose por ubicación)
// @Description  Un producto fijado a una ubicación solo cuenta esa ubicación.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        productID  path  string  true  "ID del producto"
// @Success      200  {object}  dto.EffectiveStockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/effective/{productID} [get]
func (h *StockHandler) GetEffectiveStock(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	productID := c.Params("productID")
	out, err := h.effective.Effective(c.Context(), companyID, productID)
	if err != nil {
		return respondError(c, err)
	}
	resp := dto.EffectiveStockResponse{
		ProductID: out.ProductID,
		Quantity:  out.Quantity,
		Breakdown: make([]dto.LocationStockDTO, 0, len(out.Breakdown)),
	}
	if out.Pinned != nil {
		d := dto.FromLocationRef(*out.Pinned)
		resp.Pinned = &d
	}
	for _, ls := range out.Breakdown {
		resp.Breakdown = append(resp.Breakdown, dto.LocationStockDTO{
			Location: dto.FromLocationRef(ls.Location),
			Quantity: ls.Quantity,
		})
	}
	return c.JSON(resp)
}

func toBatchResponse(b *entity.StockBatch) dto.BatchResponse {
	return dto.BatchResponse{
		ID:                b.ID,
		ProductID:         b.ProductID,
		Location:          dto.FromLocationRef(b.Location),
		OriginalQuantity:  b.OriginalQuantity,
		RemainingQuantity: b.RemainingQuantity,
		UnitCost:          b.UnitCost,
		ReceivedAt:        b.ReceivedAt,
		Status:            b.Status,
		CreatedAt:         b.CreatedAt,
	}
}
