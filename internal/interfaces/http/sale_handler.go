package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/stock-lotes/internal/application/dto"
	"github.com/tu-usuario/stock-lotes/internal/application/sale"
	"github.com/tu-usuario/stock-lotes/internal/domain/costing"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
)

// SaleHandler maneja la conciliación de ventas contra inventario (protegido).
type SaleHandler struct {
	uc   *sale.ReconcileSaleUseCase
	repo repository.SaleDepletionRepository
}

// NewSaleHandler construye el handler.
func NewSaleHandler(uc *sale.ReconcileSaleUseCase, repo repository.SaleDepletionRepository) *SaleHandler {
	return &SaleHandler{uc: uc, repo: repo}
}

// Deplete godoc
// @Summary      Conciliar una venta completada contra el inventario
// @Description  Consume lotes por cada línea según su método (FIFO, LIFO o CMUP). Todas las líneas o ninguna.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SaleDepletionRequest  true  "sale_id, location, credit, lines"
// @Success      201   {object}  dto.SaleDepletionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales/depletions [post]
func (h *SaleHandler) Deplete(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	userID := GetUserID(c)
	if companyID == "" || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.SaleDepletionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	lines := make([]sale.SaleLineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, sale.SaleLineInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Method:    costing.Method(l.Method),
		})
	}
	out, err := h.uc.DepleteForSale(c.Context(), sale.SaleInput{
		CompanyID: companyID,
		UserID:    userID,
		SaleID:    in.SaleID,
		Location:  in.Location.ToRef(),
		Credit:    in.Credit,
		Lines:     lines,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toSaleDepletionResponse(out))
}

// GetByID godoc
// @Summary      Obtener registro de consumo por ID
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del registro de consumo"
// @Success      200  {object}  dto.SaleDepletionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/depletions/{id} [get]
func (h *SaleHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	dep, err := h.repo.GetByID(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if dep == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "registro no encontrado"})
	}
	return c.JSON(toSaleDepletionResponse(dep))
}

// GetBySaleID godoc
// @Summary      Obtener registro de consumo por ID de venta
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        sale_id  query  string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleDepletionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/depletions [get]
func (h *SaleHandler) GetBySaleID(c *fiber.Ctx) error {
	saleID := c.Query("sale_id")
	if saleID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "sale_id es requerido"})
	}
	dep, err := h.repo.GetBySaleID(c.Context(), saleID)
	if err != nil {
		return respondError(c, err)
	}
	if dep == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "registro no encontrado"})
	}
	return c.JSON(toSaleDepletionResponse(dep))
}

// Reverse godoc
// @Summary      Revertir (total o parcialmente) el consumo de una venta
// @Description  Crea lotes nuevos con las cantidades y costos originalmente consumidos. Body sin líneas = reversión total.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true   "ID del registro de consumo"
// @Param        body  body  dto.SaleReversalRequest  false  "líneas a revertir (opcional)"
// @Success      200   {object}  dto.SaleDepletionResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales/depletions/{id}/reverse [post]
func (h *SaleHandler) Reverse(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	var in dto.SaleReversalRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	lines := make([]sale.LineReversal, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, sale.LineReversal{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	out, err := h.uc.ReverseForSale(c.Context(), id, lines)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toSaleDepletionResponse(out))
}

func toSaleDepletionResponse(dep *entity.SaleDepletion) dto.SaleDepletionResponse {
	lines := make([]dto.SaleLineResponse, 0, len(dep.Lines))
	for _, l := range dep.Lines {
		draws := make([]dto.BatchDrawDTO, 0, len(l.Draws))
		for _, d := range l.Draws {
			draws = append(draws, dto.BatchDrawDTO{BatchID: d.BatchID, Quantity: d.Quantity, UnitCost: d.UnitCost})
		}
		lines = append(lines, dto.SaleLineResponse{
			ProductID:        l.ProductID,
			Quantity:         l.Quantity,
			Method:           l.Method,
			RealizedCost:     l.RealizedCost,
			Draws:            draws,
			ReversedQuantity: l.ReversedQuantity,
		})
	}
	return dto.SaleDepletionResponse{
		ID:                dep.ID,
		SaleID:            dep.SaleID,
		Location:          dto.FromLocationRef(dep.Location),
		Credit:            dep.Credit,
		Status:            dep.Status,
		Lines:             lines,
		TotalRealizedCost: dep.TotalRealizedCost(),
		CreatedAt:         dep.CreatedAt,
		CreatedBy:         dep.CreatedBy,
	}
}
