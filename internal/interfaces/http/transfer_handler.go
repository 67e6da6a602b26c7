package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/stock-lotes/internal/application/dto"
	"github.com/tu-usuario/stock-lotes/internal/application/transfer"
	"github.com/tu-usuario/stock-lotes/internal/domain/costing"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
)

// TransferHandler maneja las peticiones HTTP del motor de transferencias (protegido).
// Las lecturas (GetByID, listados) van directo al puerto de persistencia.
type TransferHandler struct {
	uc   *transfer.ExecuteTransferUseCase
	repo repository.TransferRepository
}

// NewTransferHandler construye el handler.
func NewTransferHandler(uc *transfer.ExecuteTransferUseCase, repo repository.TransferRepository) *TransferHandler {
	return &TransferHandler{uc: uc, repo: repo}
}

// Execute godoc
// @Summary      Ejecutar transferencia de stock entre ubicaciones
// @Description  Consume lotes en el origen (FIFO o LIFO) y crea lotes en el destino conservando la base de costo por lote.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "product_id, quantity, from, to, method"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) Execute(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	userID := GetUserID(c)
	if companyID == "" || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.Execute(c.Context(), transfer.TransferInput{
		CompanyID: companyID,
		UserID:    userID,
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		From:      in.From.ToRef(),
		To:        in.To.ToRef(),
		Method:    costing.Method(in.Method),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTransferResponse(out))
}

// GetByID godoc
// @Summary      Obtener transferencia por ID
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id} [get]
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	t, err := h.repo.GetByID(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if t == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "transferencia no encontrada"})
	}
	return c.JSON(toTransferResponse(t))
}

// List godoc
// @Summary      Listar transferencias por producto
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  true   "ID del producto"
// @Param        limit       query  int     false  "Límite"   default(20)
// @Param        offset      query  int     false  "Offset"   default(0)
// @Success      200  {object}  dto.TransferListResponse
// @Router       /api/transfers [get]
func (h *TransferHandler) List(c *fiber.Ctx) error {
	productID := c.Query("product_id")
	if productID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "product_id es requerido"})
	}
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	list, err := h.repo.ListByProduct(c.Context(), productID, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	items := make([]dto.TransferResponse, 0, len(list))
	for _, t := range list {
		items = append(items, toTransferResponse(t))
	}
	return c.JSON(dto.TransferListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	})
}

// Reverse godoc
// @Summary      Revertir una transferencia completada
// @Description  Registra una transferencia compensatoria en sentido contrario y marca la original como cancelled. Falla si los lotes creados ya fueron tocados.
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la transferencia a revertir"
// @Success      201  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/reverse [post]
func (h *TransferHandler) Reverse(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	out, err := h.uc.Reverse(c.Context(), id, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTransferResponse(out))
}

func toTransferResponse(t *entity.StockTransfer) dto.TransferResponse {
	draws := make([]dto.BatchDrawDTO, 0, len(t.ConsumedBatches))
	for _, d := range t.ConsumedBatches {
		draws = append(draws, dto.BatchDrawDTO{BatchID: d.BatchID, Quantity: d.Quantity, UnitCost: d.UnitCost})
	}
	return dto.TransferResponse{
		ID:              t.ID,
		ProductID:       t.ProductID,
		Quantity:        t.Quantity,
		TransferType:    t.TransferType,
		From:            dto.FromLocationRef(t.From),
		To:              dto.FromLocationRef(t.To),
		InventoryMethod: t.InventoryMethod,
		Status:          t.Status,
		ConsumedBatches: draws,
		CreatedBatchIDs: t.CreatedBatchIDs,
		ReversalOf:      t.ReversalOf,
		CreatedAt:       t.CreatedAt,
		CreatedBy:       t.CreatedBy,
	}
}
