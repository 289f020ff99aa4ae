package domain

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes why an inventory operation was rejected.
type ErrorKind int

const (
	KindInvalidQuantity ErrorKind = iota + 1
	KindInvalidOwner
	KindInvalidTTL
	KindInsufficientStock
	KindInsufficientReservedQuantity
	KindReservationNotFound
	KindAlreadyTerminal
	KindUnknownSku
	KindUnknownCenter
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidQuantity:
		return "INVALID_QUANTITY"
	case KindInvalidOwner:
		return "INVALID_OWNER"
	case KindInvalidTTL:
		return "INVALID_TTL"
	case KindInsufficientStock:
		return "INSUFFICIENT_STOCK"
	case KindInsufficientReservedQuantity:
		return "INSUFFICIENT_RESERVED_QUANTITY"
	case KindReservationNotFound:
		return "RESERVATION_NOT_FOUND"
	case KindAlreadyTerminal:
		return "ALREADY_TERMINAL"
	case KindUnknownSku:
		return "UNKNOWN_SKU"
	case KindUnknownCenter:
		return "UNKNOWN_CENTER"
	default:
		return "UNKNOWN"
	}
}

// Sentinels for errors.Is. Use errors.As with *InventoryError for the details.
var (
	ErrInvalidQuantity              = &InventoryError{Kind: KindInvalidQuantity, Message: "quantity must be positive"}
	ErrInvalidOwner                 = &InventoryError{Kind: KindInvalidOwner, Message: "owner is incomplete"}
	ErrInvalidTTL                   = &InventoryError{Kind: KindInvalidTTL, Message: "ttl is out of range"}
	ErrInsufficientStock            = &InventoryError{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrInsufficientReservedQuantity = &InventoryError{Kind: KindInsufficientReservedQuantity, Message: "insufficient reserved quantity"}
	ErrReservationNotFound          = &InventoryError{Kind: KindReservationNotFound, Message: "reservation not found"}
	ErrAlreadyTerminal              = &InventoryError{Kind: KindAlreadyTerminal, Message: "reservation is no longer active"}
	ErrUnknownSku                   = &InventoryError{Kind: KindUnknownSku, Message: "unknown sku"}
	ErrUnknownCenter                = &InventoryError{Kind: KindUnknownCenter, Message: "unknown distribution center"}
)

// InventoryError is the single error type returned by the engine. Requested
// and Available are filled for the stock-shortage kinds.
type InventoryError struct {
	Kind      ErrorKind
	Message   string
	Requested int
	Available int
}

func (e *InventoryError) Error() string {
	return e.Message
}

// Is matches on kind only, so errors.Is(err, ErrInsufficientStock) holds for
// every shortage regardless of the numbers attached.
func (e *InventoryError) Is(target error) bool {
	t, ok := target.(*InventoryError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func NewInvalidQuantity(quantity int) *InventoryError {
	return &InventoryError{
		Kind:      KindInvalidQuantity,
		Message:   fmt.Sprintf("quantity must be positive, got %d", quantity),
		Requested: quantity,
	}
}

func NewInvalidOwner(message string) *InventoryError {
	return &InventoryError{Kind: KindInvalidOwner, Message: message}
}

func NewInvalidTTL(message string) *InventoryError {
	return &InventoryError{Kind: KindInvalidTTL, Message: message}
}

func NewInsufficientStock(requested, available int) *InventoryError {
	return &InventoryError{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock: available=%d, requested=%d", available, requested),
		Requested: requested,
		Available: available,
	}
}

func NewInsufficientReservedQuantity(requested, held int) *InventoryError {
	return &InventoryError{
		Kind:      KindInsufficientReservedQuantity,
		Message:   fmt.Sprintf("insufficient reserved quantity: held=%d, requested=%d", held, requested),
		Requested: requested,
		Available: held,
	}
}

func NewReservationNotFound(id string) *InventoryError {
	return &InventoryError{Kind: KindReservationNotFound, Message: fmt.Sprintf("reservation not found: %s", id)}
}

func NewAlreadyTerminal(id string, state ReservationState) *InventoryError {
	return &InventoryError{Kind: KindAlreadyTerminal, Message: fmt.Sprintf("reservation %s is already %s", id, state)}
}

func NewUnknownSku(sku string) *InventoryError {
	return &InventoryError{Kind: KindUnknownSku, Message: fmt.Sprintf("unknown sku: %s", sku)}
}

func NewUnknownCenter(centerID int) *InventoryError {
	return &InventoryError{Kind: KindUnknownCenter, Message: fmt.Sprintf("unknown distribution center: %d", centerID)}
}

// KindOf returns the kind of an engine error, or zero for anything else.
func KindOf(err error) ErrorKind {
	var invErr *InventoryError
	if errors.As(err, &invErr) {
		return invErr.Kind
	}
	return 0
}
