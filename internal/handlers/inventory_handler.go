package handlers

import (
	"strings"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/service"
	sharedHTTP "github.com/distributed-ecommerce-saga/inventory-service/shared-domain/http"
	"github.com/distributed-ecommerce-saga/inventory-service/shared-domain/types"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	inventoryService *service.InventoryService
	serviceName      string
	logger           *zap.Logger
}

func NewInventoryHandler(inventoryService *service.InventoryService, serviceName string, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{
		inventoryService: inventoryService,
		serviceName:      serviceName,
		logger:           logger,
	}
}

func (h *InventoryHandler) HealthCheck(c *fiber.Ctx) error {
	return sharedHTTP.SuccessResponse(c, "Inventory service is healthy", map[string]interface{}{
		"service": h.serviceName,
		"status":  "healthy",
		"engine":  h.inventoryService.Stats(),
	})
}

func (h *InventoryHandler) StockLevels(c *fiber.Ctx) error {
	skus, single := skusFromQuery(c)
	centerID, err := centerFromQuery(c)
	if err != nil {
		return cartBadRequest(c, err.Error())
	}
	includeReserved := c.QueryBool("include_reserved", false)
	includeInTransit := c.QueryBool("include_in_transit", false)

	report, err := h.inventoryService.GetStockLevels(c.UserContext(), domain.StockLevelsQuery{
		SKUs:             skus,
		CenterID:         centerID,
		OnlyAvailable:    c.QueryBool("only_available", false),
		IncludeReserved:  includeReserved,
		IncludeInTransit: includeInTransit,
	})
	if err != nil {
		return cartError(c, err)
	}

	if single && len(report.Products) == 1 {
		return c.JSON(types.StockLevelResponse{
			Success:           true,
			ProductStockLevel: toStockLevel(report.Products[0], includeReserved, includeInTransit),
		})
	}

	products := make([]types.ProductStockLevel, 0, len(report.Products))
	for _, p := range report.Products {
		products = append(products, toStockLevel(p, includeReserved, includeInTransit))
	}
	return c.JSON(types.MultiStockLevelResponse{
		Success:       true,
		Products:      products,
		TotalProducts: len(products),
		NotFound:      report.NotFound,
	})
}

func (h *InventoryHandler) GetReservation(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid reservation ID", map[string]interface{}{
			"reservation_id": c.Params("id"),
		})
	}

	view, err := h.inventoryService.GetReservation(c.UserContext(), id)
	if err != nil {
		return apiError(c, err)
	}
	return sharedHTTP.SuccessResponse(c, "Reservation retrieved successfully",
		toReservationDetail(view, h.inventoryService.Now()))
}

func (h *InventoryHandler) ConsumeReservation(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid reservation ID", map[string]interface{}{
			"reservation_id": c.Params("id"),
		})
	}

	view, err := h.inventoryService.Consume(c.UserContext(), id)
	if err != nil {
		return apiError(c, err)
	}
	return sharedHTTP.SuccessResponse(c, "Reservation consumed",
		toReservationDetail(view, h.inventoryService.Now()))
}

func (h *InventoryHandler) UpsertStock(c *fiber.Ctx) error {
	var request types.UpsertStockRequest
	if err := c.BodyParser(&request); err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}
	if strings.TrimSpace(request.ProductSKU) == "" {
		return sharedHTTP.BadRequestResponse(c, "product_sku is required", nil)
	}
	if request.DistributionCenterID == 0 {
		request.DistributionCenterID = h.inventoryService.Config().DefaultCenterID
	}

	stock, err := h.inventoryService.UpsertStock(c.UserContext(), domain.DistributionCenterStock{
		SKU:               request.ProductSKU,
		CenterID:          request.DistributionCenterID,
		PhysicalQuantity:  request.PhysicalQuantity,
		InTransitQuantity: request.InTransitQuantity,
	})
	if err != nil {
		return apiError(c, err)
	}
	return sharedHTTP.SuccessResponse(c, "Stock updated", toStockRow(stock))
}

func (h *InventoryHandler) ListCenters(c *fiber.Ctx) error {
	centers := h.inventoryService.Centers(c.UserContext())
	out := make([]types.DistributionCenter, 0, len(centers))
	for _, center := range centers {
		out = append(out, toCenter(center))
	}
	return sharedHTTP.SuccessResponse(c, "Distribution centers retrieved successfully", out)
}

func (h *InventoryHandler) RegisterCenter(c *fiber.Ctx) error {
	var request types.DistributionCenter
	if err := c.BodyParser(&request); err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}
	if request.ID <= 0 || strings.TrimSpace(request.Code) == "" {
		return sharedHTTP.BadRequestResponse(c, "id and code are required", nil)
	}

	if err := h.inventoryService.RegisterCenter(c.UserContext(), fromCenter(request)); err != nil {
		return sharedHTTP.BadRequestResponse(c, err.Error(), nil)
	}
	return sharedHTTP.CreatedResponse(c, "Distribution center registered", request)
}
