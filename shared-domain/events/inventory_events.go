package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type InventoryEventType string

const (
	// Outbound reservation lifecycle
	ReservationCreatedEvent  InventoryEventType = "inventory.reserved"
	ReservationReleasedEvent InventoryEventType = "inventory.released"
	ReservationReducedEvent  InventoryEventType = "inventory.reservation.reduced"
	ReservationExpiredEvent  InventoryEventType = "inventory.expired"
	ReservationConsumedEvent InventoryEventType = "inventory.consumed"
	StockUpdatedEvent        InventoryEventType = "inventory.stock.updated"

	// Inbound warehouse feed
	StockReceivedEvent  InventoryEventType = "warehouse.stock.received"
	StockShippedEvent   InventoryEventType = "warehouse.stock.shipped"
	StockInTransitEvent InventoryEventType = "warehouse.stock.in_transit"

	// Inbound from the order flow
	ConsumeReservationCommand InventoryEventType = "order.reservation.consume"
)

type InventoryEvent struct {
	ID            uuid.UUID          `json:"id"`
	EventType     InventoryEventType `json:"event_type"`
	Payload       json.RawMessage    `json:"payload"`
	Timestamp     time.Time          `json:"timestamp"`
	Service       string             `json:"service"`
	CorrelationID uuid.UUID          `json:"correlation_id"`
}

func NewInventoryEvent(eventType InventoryEventType, service string, payload interface{}) (InventoryEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return InventoryEvent{}, fmt.Errorf("payload serialization error: %w", err)
	}
	return InventoryEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		Payload:       body,
		Timestamp:     time.Now().UTC(),
		Service:       service,
		CorrelationID: uuid.New(),
	}, nil
}

func (e InventoryEvent) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", e.EventType)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return fmt.Errorf("payload deserialize error (%s): %w", e.EventType, err)
	}
	return nil
}

type ReservationPayload struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	ProductSKU    string    `json:"product_sku"`
	CenterID      int       `json:"distribution_center_id"`
	UserID        string    `json:"user_id"`
	SessionID     string    `json:"session_id"`
	Quantity      int       `json:"quantity"`
	State         string    `json:"state"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type StockPayload struct {
	ProductSKU        string `json:"product_sku"`
	CenterID          int    `json:"distribution_center_id"`
	PhysicalQuantity  int    `json:"physical_quantity"`
	InTransitQuantity int    `json:"in_transit_quantity"`
}

type StockReceivedPayload struct {
	ProductSKU  string `json:"product_sku"`
	CenterID    int    `json:"distribution_center_id"`
	Quantity    int    `json:"quantity"`
	FromTransit bool   `json:"from_transit"`
}

type StockShippedPayload struct {
	ProductSKU    string     `json:"product_sku"`
	CenterID      int        `json:"distribution_center_id"`
	Quantity      int        `json:"quantity"`
	ReservationID *uuid.UUID `json:"reservation_id,omitempty"`
}

type StockInTransitPayload struct {
	ProductSKU string `json:"product_sku"`
	CenterID   int    `json:"distribution_center_id"`
	Delta      int    `json:"delta"`
}

type ConsumeReservationPayload struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	OrderID       string    `json:"order_id,omitempty"`
}
