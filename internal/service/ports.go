package service

import (
	"context"
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/distributed-ecommerce-saga/inventory-service/shared-domain/events"
)

// ChangeRecorder receives every committed ledger or reservation change.
// ReservationCreated is called with the slot still locked, the others after
// it is released, so a creation always precedes the changes of the same
// reservation. Implementations must not block.
type ChangeRecorder interface {
	ReservationCreated(view domain.ReservationView)
	ReservationChanged(view domain.ReservationView)
	StockChanged(stock domain.DistributionCenterStock)
	CenterRegistered(center domain.DistributionCenter)
}

type ReservationJournal interface {
	SaveCenter(ctx context.Context, center domain.DistributionCenter) error
	SaveStock(ctx context.Context, stock domain.DistributionCenterStock) error
	SaveReservation(ctx context.Context, view domain.ReservationView) error
	UpdateReservation(ctx context.Context, view domain.ReservationView) error
}

type EventPublisher interface {
	PublishInventoryEvent(event events.InventoryEvent) error
}

// SnapshotSource feeds the engine at startup.
type SnapshotSource interface {
	LoadCenters(ctx context.Context) ([]domain.DistributionCenter, error)
	LoadStock(ctx context.Context) ([]domain.DistributionCenterStock, error)
	LoadActiveReservations(ctx context.Context) ([]domain.ReservationView, error)
}

// ArchivePruner deletes journaled reservations that reached a terminal state
// before the cutoff.
type ArchivePruner interface {
	PruneTerminal(ctx context.Context, before time.Time) (int64, error)
}

type nopRecorder struct{}

func (nopRecorder) ReservationCreated(domain.ReservationView)   {}
func (nopRecorder) ReservationChanged(domain.ReservationView)   {}
func (nopRecorder) StockChanged(domain.DistributionCenterStock) {}
func (nopRecorder) CenterRegistered(domain.DistributionCenter)  {}
