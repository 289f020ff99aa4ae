package handlers

import (
	"errors"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	sharedHTTP "github.com/distributed-ecommerce-saga/inventory-service/shared-domain/http"
	"github.com/distributed-ecommerce-saga/inventory-service/shared-domain/types"
	"github.com/gofiber/fiber/v2"
)

const (
	codeInvalidRequest = "INVALID_REQUEST"
	codeInternal       = "INTERNAL_ERROR"
)

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidQuantity, domain.KindInvalidOwner, domain.KindInvalidTTL,
		domain.KindInsufficientReservedQuantity:
		return fiber.StatusBadRequest
	case domain.KindInsufficientStock, domain.KindAlreadyTerminal:
		return fiber.StatusConflict
	case domain.KindUnknownSku, domain.KindUnknownCenter, domain.KindReservationNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// cartError writes an engine error in the cart endpoints' flat shape.
func cartError(c *fiber.Ctx, err error) error {
	var invErr *domain.InventoryError
	if !errors.As(err, &invErr) {
		return sharedHTTP.CartErrorResponse(c, fiber.StatusInternalServerError, types.ErrorResponse{
			Error:   codeInternal,
			Message: "Internal Server Error",
		})
	}

	body := types.ErrorResponse{
		Error:   invErr.Kind.String(),
		Message: invErr.Message,
	}
	if invErr.Kind == domain.KindInsufficientStock || invErr.Kind == domain.KindInsufficientReservedQuantity {
		requested, available := invErr.Requested, invErr.Available
		body.RequestedQuantity = &requested
		body.AvailableQuantity = &available
	}
	return sharedHTTP.CartErrorResponse(c, statusForKind(invErr.Kind), body)
}

func cartBadRequest(c *fiber.Ctx, message string) error {
	return sharedHTTP.CartErrorResponse(c, fiber.StatusBadRequest, types.ErrorResponse{
		Error:   codeInvalidRequest,
		Message: message,
	})
}

// apiError writes an engine error inside the standard response envelope.
func apiError(c *fiber.Ctx, err error) error {
	var invErr *domain.InventoryError
	if !errors.As(err, &invErr) {
		return sharedHTTP.InternalServerErrorResponse(c, "Internal Server Error", nil)
	}

	var details map[string]interface{}
	if invErr.Kind == domain.KindInsufficientStock || invErr.Kind == domain.KindInsufficientReservedQuantity {
		details = map[string]interface{}{
			"requested_quantity": invErr.Requested,
			"available_quantity": invErr.Available,
		}
	}
	return sharedHTTP.ErrorResponse(c, statusForKind(invErr.Kind), invErr.Kind.String(), invErr.Message, details)
}
