package types

import "time"

type ReserveRequest struct {
	ProductSKU           string `json:"product_sku"`
	Quantity             int    `json:"quantity"`
	UserID               string `json:"user_id"`
	SessionID            string `json:"session_id"`
	DistributionCenterID int    `json:"distribution_center_id,omitempty"`
	TTLMinutes           int    `json:"ttl_minutes,omitempty"`
}

type ReserveResponse struct {
	Success              bool      `json:"success"`
	ReservationID        string    `json:"reservation_id"`
	ProductSKU           string    `json:"product_sku"`
	QuantityReserved     int       `json:"quantity_reserved"`
	StockAvailable       int       `json:"stock_available"`
	ExpiresAt            time.Time `json:"expires_at"`
	RemainingTimeSeconds int       `json:"remaining_time_seconds"`
	Message              string    `json:"message"`
}

type ReleaseRequest struct {
	ProductSKU string `json:"product_sku"`
	Quantity   int    `json:"quantity"`
	UserID     string `json:"user_id"`
	SessionID  string `json:"session_id"`
}

type ReleaseResponse struct {
	Success          bool   `json:"success"`
	ProductSKU       string `json:"product_sku"`
	QuantityReleased int    `json:"quantity_released"`
	StockAvailable   int    `json:"stock_available"`
	Message          string `json:"message"`
}

type ClearCartRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

type ClearCartResponse struct {
	Success          bool     `json:"success"`
	ClearedCount     int      `json:"cleared_count"`
	ProductsAffected []string `json:"products_affected"`
	Message          string   `json:"message"`
}

type ReservationItem struct {
	ID                   string    `json:"id"`
	ProductSKU           string    `json:"product_sku"`
	QuantityReserved     int       `json:"quantity_reserved"`
	ExpiresAt            time.Time `json:"expires_at"`
	RemainingTimeSeconds int       `json:"remaining_time_seconds"`
	CreatedAt            time.Time `json:"created_at"`
	DistributionCenterID int       `json:"distribution_center_id"`
}

type ReservationsResponse struct {
	Success      bool              `json:"success"`
	Reservations []ReservationItem `json:"reservations"`
	TotalCount   int               `json:"total_count"`
}

// ErrorResponse is the failure body of the cart endpoints. The quantities are
// present only for stock shortages.
type ErrorResponse struct {
	Success           bool   `json:"success"`
	Error             string `json:"error"`
	Message           string `json:"message"`
	RequestedQuantity *int   `json:"requested_quantity,omitempty"`
	AvailableQuantity *int   `json:"available_quantity,omitempty"`
	RequestID         string `json:"request_id,omitempty"`
}
