package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/distributed-ecommerce-saga/inventory-service/shared-domain/events"
	"go.uber.org/zap"
)

const (
	DefaultDispatchBuffer = 1024
	dispatchWriteTimeout  = 5 * time.Second
)

type changeKind int

const (
	reservationCreated changeKind = iota + 1
	reservationChanged
	stockChanged
	centerRegistered
)

type change struct {
	kind        changeKind
	reservation domain.ReservationView
	stock       domain.DistributionCenterStock
	center      domain.DistributionCenter
}

// Dispatcher moves committed changes to the journal and the event bus on a
// single background worker, so no request ever waits on the database or the
// broker. When the buffer is full the change is dropped and counted.
type Dispatcher struct {
	queue       chan change
	journal     ReservationJournal
	publisher   EventPublisher
	serviceName string
	logger      *zap.Logger

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
}

func NewDispatcher(journal ReservationJournal, publisher EventPublisher, serviceName string, buffer int, logger *zap.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultDispatchBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:       make(chan change, buffer),
		journal:     journal,
		publisher:   publisher,
		serviceName: serviceName,
		logger:      logger,
	}
}

// Start launches the worker. It keeps draining after ctx is cancelled until
// Close is called.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for c := range d.queue {
			d.handle(context.WithoutCancel(ctx), c)
		}
	}()
}

// Close stops accepting changes and waits for the queued ones to be written.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	if n := d.dropped.Load(); n > 0 {
		d.logger.Warn("Dispatcher dropped changes", zap.Int64("dropped", n))
	}
}

func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

func (d *Dispatcher) ReservationCreated(view domain.ReservationView) {
	d.submit(change{kind: reservationCreated, reservation: view})
}

func (d *Dispatcher) ReservationChanged(view domain.ReservationView) {
	d.submit(change{kind: reservationChanged, reservation: view})
}

func (d *Dispatcher) StockChanged(stock domain.DistributionCenterStock) {
	d.submit(change{kind: stockChanged, stock: stock})
}

func (d *Dispatcher) CenterRegistered(center domain.DistributionCenter) {
	d.submit(change{kind: centerRegistered, center: center})
}

func (d *Dispatcher) submit(c change) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return
	}
	select {
	case d.queue <- c:
	default:
		d.dropped.Add(1)
		d.logger.Warn("Dispatch buffer full, change dropped", zap.Int("kind", int(c.kind)))
	}
}

func (d *Dispatcher) handle(ctx context.Context, c change) {
	ctx, cancel := context.WithTimeout(ctx, dispatchWriteTimeout)
	defer cancel()

	switch c.kind {
	case reservationCreated:
		if d.journal != nil {
			if err := d.journal.SaveReservation(ctx, c.reservation); err != nil {
				d.logger.Error("Reservation journal write failed",
					zap.String("reservation_id", c.reservation.ID.String()), zap.Error(err))
			}
		}
		d.publish(events.ReservationCreatedEvent, reservationPayload(c.reservation))
	case reservationChanged:
		if d.journal != nil {
			if err := d.journal.UpdateReservation(ctx, c.reservation); err != nil {
				d.logger.Error("Reservation journal update failed",
					zap.String("reservation_id", c.reservation.ID.String()), zap.Error(err))
			}
		}
		d.publish(reservationEventType(c.reservation.State), reservationPayload(c.reservation))
	case stockChanged:
		if d.journal != nil {
			if err := d.journal.SaveStock(ctx, c.stock); err != nil {
				d.logger.Error("Stock journal write failed",
					zap.String("sku", c.stock.SKU), zap.Int("center_id", c.stock.CenterID), zap.Error(err))
			}
		}
		d.publish(events.StockUpdatedEvent, events.StockPayload{
			ProductSKU:        c.stock.SKU,
			CenterID:          c.stock.CenterID,
			PhysicalQuantity:  c.stock.PhysicalQuantity,
			InTransitQuantity: c.stock.InTransitQuantity,
		})
	case centerRegistered:
		if d.journal != nil {
			if err := d.journal.SaveCenter(ctx, c.center); err != nil {
				d.logger.Error("Center journal write failed", zap.Int("center_id", c.center.ID), zap.Error(err))
			}
		}
	}
}

func (d *Dispatcher) publish(eventType events.InventoryEventType, payload interface{}) {
	if d.publisher == nil {
		return
	}
	event, err := events.NewInventoryEvent(eventType, d.serviceName, payload)
	if err != nil {
		d.logger.Error("Event build failed", zap.String("event_type", string(eventType)), zap.Error(err))
		return
	}
	if err := d.publisher.PublishInventoryEvent(event); err != nil {
		d.logger.Error("Event publish failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func reservationEventType(state domain.ReservationState) events.InventoryEventType {
	switch state {
	case domain.StateReleased:
		return events.ReservationReleasedEvent
	case domain.StateExpired:
		return events.ReservationExpiredEvent
	case domain.StateConsumed:
		return events.ReservationConsumedEvent
	default:
		return events.ReservationReducedEvent
	}
}

func reservationPayload(v domain.ReservationView) events.ReservationPayload {
	return events.ReservationPayload{
		ReservationID: v.ID,
		ProductSKU:    v.SKU,
		CenterID:      v.CenterID,
		UserID:        v.Owner.UserID,
		SessionID:     v.Owner.SessionID,
		Quantity:      v.Quantity,
		State:         v.State.String(),
		CreatedAt:     v.CreatedAt,
		ExpiresAt:     v.ExpiresAt,
	}
}
