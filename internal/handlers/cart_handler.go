package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/service"
	"github.com/distributed-ecommerce-saga/inventory-service/shared-domain/types"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CartHandler struct {
	inventoryService *service.InventoryService
	logger           *zap.Logger
}

func NewCartHandler(inventoryService *service.InventoryService, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{
		inventoryService: inventoryService,
		logger:           logger,
	}
}

func (h *CartHandler) Reserve(c *fiber.Ctx) error {
	var request types.ReserveRequest
	if err := c.BodyParser(&request); err != nil {
		return cartBadRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(request.ProductSKU) == "" {
		return cartBadRequest(c, "product_sku is required")
	}

	result, err := h.inventoryService.Reserve(c.UserContext(), domain.ReserveRequest{
		SKU:      request.ProductSKU,
		Quantity: request.Quantity,
		CenterID: request.DistributionCenterID,
		Owner:    domain.Owner{UserID: request.UserID, SessionID: request.SessionID},
		TTL:      time.Duration(request.TTLMinutes) * time.Minute,
	})
	if err != nil {
		return cartError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(types.ReserveResponse{
		Success:              true,
		ReservationID:        result.Reservation.ID.String(),
		ProductSKU:           result.Reservation.SKU,
		QuantityReserved:     result.Reservation.Quantity,
		StockAvailable:       result.Available,
		ExpiresAt:            result.Reservation.ExpiresAt,
		RemainingTimeSeconds: result.RemainingTimeSeconds,
		Message:              fmt.Sprintf("Reserved %d units of %s", result.Reservation.Quantity, result.Reservation.SKU),
	})
}

func (h *CartHandler) Release(c *fiber.Ctx) error {
	var request types.ReleaseRequest
	if err := c.BodyParser(&request); err != nil {
		return cartBadRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(request.ProductSKU) == "" {
		return cartBadRequest(c, "product_sku is required")
	}

	result, err := h.inventoryService.Release(c.UserContext(), domain.ReleaseRequest{
		SKU:      request.ProductSKU,
		Quantity: request.Quantity,
		Owner:    domain.Owner{UserID: request.UserID, SessionID: request.SessionID},
	})
	if err != nil {
		return cartError(c, err)
	}

	return c.JSON(types.ReleaseResponse{
		Success:          true,
		ProductSKU:       result.SKU,
		QuantityReleased: result.Released,
		StockAvailable:   result.Available,
		Message:          fmt.Sprintf("Released %d units of %s", result.Released, result.SKU),
	})
}

// ClearCart serves both DELETE and POST /cart/clear. The owner may also be
// given as query parameters, for clients that cannot send a DELETE body.
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	var request types.ClearCartRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&request); err != nil {
			return cartBadRequest(c, "Invalid request body")
		}
	}
	if request.UserID == "" {
		request.UserID = c.Query("user_id")
	}
	if request.SessionID == "" {
		request.SessionID = c.Query("session_id")
	}

	result, err := h.inventoryService.ClearCart(c.UserContext(), domain.Owner{UserID: request.UserID, SessionID: request.SessionID})
	if err != nil {
		return cartError(c, err)
	}

	message := "Cart is already empty"
	if result.ClearedCount > 0 {
		message = fmt.Sprintf("Released %d reservations", result.ClearedCount)
	}
	return c.JSON(types.ClearCartResponse{
		Success:          true,
		ClearedCount:     result.ClearedCount,
		ProductsAffected: result.ProductsAffected,
		Message:          message,
	})
}

func (h *CartHandler) ListReservations(c *fiber.Ctx) error {
	owner := domain.Owner{UserID: c.Query("user_id"), SessionID: c.Query("session_id")}

	listing, err := h.inventoryService.ListReservations(c.UserContext(), owner)
	if err != nil {
		return cartError(c, err)
	}

	items := make([]types.ReservationItem, 0, len(listing))
	for _, l := range listing {
		items = append(items, toReservationItem(l))
	}
	return c.JSON(types.ReservationsResponse{
		Success:      true,
		Reservations: items,
		TotalCount:   len(items),
	})
}

func (h *CartHandler) RealtimeStock(c *fiber.Ctx) error {
	skus, single := skusFromQuery(c)
	if len(skus) == 0 {
		return cartBadRequest(c, "product_sku or product_skus is required")
	}
	centerID, err := centerFromQuery(c)
	if err != nil {
		return cartBadRequest(c, err.Error())
	}

	if single {
		snapshot, err := h.inventoryService.GetProductAvailability(c.UserContext(), skus[0], centerID)
		if err != nil {
			return cartError(c, err)
		}
		return c.JSON(types.RealtimeStockResponse{
			Success:       true,
			RealtimeStock: toRealtimeStock(snapshot),
		})
	}

	report, err := h.inventoryService.GetAvailability(c.UserContext(), skus, centerID)
	if err != nil {
		return cartError(c, err)
	}

	products := make([]types.RealtimeStock, 0, len(report.Products))
	for _, p := range report.Products {
		products = append(products, toRealtimeStock(p))
	}
	return c.JSON(types.MultiRealtimeStockResponse{
		Success:       true,
		Products:      products,
		TotalProducts: len(products),
		NotFound:      report.NotFound,
	})
}

// skusFromQuery accepts product_sku for one product and product_skus as a
// comma separated list. single reports the one-product form.
func skusFromQuery(c *fiber.Ctx) (skus []string, single bool) {
	if list := c.Query("product_skus"); list != "" {
		for _, sku := range strings.Split(list, ",") {
			if sku = strings.TrimSpace(sku); sku != "" {
				skus = append(skus, sku)
			}
		}
		return skus, false
	}
	if sku := strings.TrimSpace(c.Query("product_sku")); sku != "" {
		return []string{sku}, true
	}
	return nil, false
}

func centerFromQuery(c *fiber.Ctx) (*int, error) {
	raw := c.Query("distribution_center_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid distribution_center_id: %s", raw)
	}
	return &id, nil
}
