package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/service"
	"github.com/distributed-ecommerce-saga/inventory-service/shared-domain/events"
	"github.com/distributed-ecommerce-saga/inventory-service/shared-domain/messaging"
	"go.uber.org/zap"
)

var consumedRoutingKeys = []string{
	"#." + string(events.StockReceivedEvent),
	"#." + string(events.StockShippedEvent),
	"#." + string(events.StockInTransitEvent),
	"#." + string(events.ConsumeReservationCommand),
}

// EventHandler applies the warehouse feed and order acknowledgements that
// arrive over RabbitMQ.
type EventHandler struct {
	inventoryService *service.InventoryService
	logger           *zap.Logger
}

func NewEventHandler(inventoryService *service.InventoryService, logger *zap.Logger) *EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{
		inventoryService: inventoryService,
		logger:           logger,
	}
}

func (h *EventHandler) StartConsuming(ctx context.Context, consumer *messaging.Consumer) error {
	return consumer.ConsumeEvents(ctx, consumedRoutingKeys, h.HandleInventoryEvent)
}

func (h *EventHandler) HandleInventoryEvent(ctx context.Context, event events.InventoryEvent) error {
	h.logger.Debug("Inventory event received",
		zap.String("event_type", string(event.EventType)),
		zap.String("service", event.Service),
		zap.String("event_id", event.ID.String()),
	)

	switch event.EventType {
	case events.StockReceivedEvent:
		return h.handleStockReceived(ctx, event)
	case events.StockShippedEvent:
		return h.handleStockShipped(ctx, event)
	case events.StockInTransitEvent:
		return h.handleStockInTransit(ctx, event)
	case events.ConsumeReservationCommand:
		return h.handleConsume(ctx, event)
	default:
		h.logger.Warn("Unhandled event type", zap.String("event_type", string(event.EventType)))
		return nil
	}
}

func (h *EventHandler) handleStockReceived(ctx context.Context, event events.InventoryEvent) error {
	var payload events.StockReceivedPayload
	if err := event.DecodePayload(&payload); err != nil {
		return messaging.Permanent(err)
	}
	_, err := h.inventoryService.ReceiveStock(ctx, domain.ReceiveStockCommand{
		SKU:         payload.ProductSKU,
		CenterID:    payload.CenterID,
		Quantity:    payload.Quantity,
		FromTransit: payload.FromTransit,
	})
	return classify(err)
}

func (h *EventHandler) handleStockShipped(ctx context.Context, event events.InventoryEvent) error {
	var payload events.StockShippedPayload
	if err := event.DecodePayload(&payload); err != nil {
		return messaging.Permanent(err)
	}
	_, err := h.inventoryService.ShipStock(ctx, domain.ShipStockCommand{
		SKU:           payload.ProductSKU,
		CenterID:      payload.CenterID,
		Quantity:      payload.Quantity,
		ReservationID: payload.ReservationID,
	})
	return classify(err)
}

func (h *EventHandler) handleStockInTransit(ctx context.Context, event events.InventoryEvent) error {
	var payload events.StockInTransitPayload
	if err := event.DecodePayload(&payload); err != nil {
		return messaging.Permanent(err)
	}
	_, err := h.inventoryService.AdjustInTransit(ctx, domain.InTransitCommand{
		SKU:      payload.ProductSKU,
		CenterID: payload.CenterID,
		Delta:    payload.Delta,
	})
	return classify(err)
}

// handleConsume treats losing to the sweeper or a release as done: the
// reservation reached a terminal state either way.
func (h *EventHandler) handleConsume(ctx context.Context, event events.InventoryEvent) error {
	var payload events.ConsumeReservationPayload
	if err := event.DecodePayload(&payload); err != nil {
		return messaging.Permanent(err)
	}

	view, err := h.inventoryService.Consume(ctx, payload.ReservationID)
	if errors.Is(err, domain.ErrAlreadyTerminal) {
		h.logger.Info("Reservation already closed, consume ignored",
			zap.String("reservation_id", payload.ReservationID.String()),
			zap.String("state", view.State.String()),
			zap.String("order_id", payload.OrderID),
		)
		return nil
	}
	return classify(err)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != 0 {
		return messaging.Permanent(err)
	}
	return fmt.Errorf("inventory event: %w", err)
}
