package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReserveRequest struct {
	SKU      string
	Quantity int
	CenterID int
	Owner    Owner
	TTL      time.Duration
}

type ReserveResult struct {
	Reservation          ReservationView
	Available            int
	RemainingTimeSeconds int
}

type ReleaseRequest struct {
	SKU      string
	Quantity int
	Owner    Owner
}

type ReleaseResult struct {
	SKU       string
	Released  int
	Available int
	// Part of Released that had already expired before the call.
	AlreadyExpired int
	// Records that reached RELEASED; partly released records stay ACTIVE.
	Closed []ReservationView
}

type ClearResult struct {
	ClearedCount     int
	ProductsAffected []string
}

type ReservationListing struct {
	Reservation          ReservationView
	RemainingTimeSeconds int
}

type StockLevelsQuery struct {
	SKUs             []string
	CenterID         *int
	OnlyAvailable    bool
	IncludeReserved  bool
	IncludeInTransit bool
}

type ReceiveStockCommand struct {
	SKU         string
	CenterID    int
	Quantity    int
	FromTransit bool
}

type ShipStockCommand struct {
	SKU           string
	CenterID      int
	Quantity      int
	ReservationID *uuid.UUID
}

type InTransitCommand struct {
	SKU      string
	CenterID int
	Delta    int
}
