package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/distributed-ecommerce-saga/inventory-service/shared-domain/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) SaveCenter(ctx context.Context, center domain.DistributionCenter) error {
	args := m.Called(ctx, center)
	return args.Error(0)
}

func (m *MockJournal) SaveStock(ctx context.Context, stock domain.DistributionCenterStock) error {
	args := m.Called(ctx, stock)
	return args.Error(0)
}

func (m *MockJournal) SaveReservation(ctx context.Context, view domain.ReservationView) error {
	args := m.Called(ctx, view)
	return args.Error(0)
}

func (m *MockJournal) UpdateReservation(ctx context.Context, view domain.ReservationView) error {
	args := m.Called(ctx, view)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishInventoryEvent(event events.InventoryEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func eventOfType(eventType events.InventoryEventType) interface{} {
	return mock.MatchedBy(func(e events.InventoryEvent) bool { return e.EventType == eventType })
}

func sampleView(state domain.ReservationState) domain.ReservationView {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.ReservationView{
		ID: uuid.New(), SKU: "SKU-1", CenterID: 1, Owner: ownerA, Quantity: 2,
		State: state, CreatedAt: now, ExpiresAt: now.Add(15 * time.Minute), UpdatedAt: now,
	}
}

func TestDispatcher_WritesJournalAndPublishes(t *testing.T) {
	// Arrange
	journal := new(MockJournal)
	publisher := new(MockPublisher)
	created := sampleView(domain.StateActive)
	released := created
	released.State = domain.StateReleased
	stock := domain.DistributionCenterStock{SKU: "SKU-1", CenterID: 1, PhysicalQuantity: 8}
	center := domain.DistributionCenter{ID: 3, Code: "C3"}

	journal.On("SaveReservation", mock.Anything, created).Return(nil).Once()
	journal.On("UpdateReservation", mock.Anything, released).Return(nil).Once()
	journal.On("SaveStock", mock.Anything, stock).Return(nil).Once()
	journal.On("SaveCenter", mock.Anything, center).Return(nil).Once()
	publisher.On("PublishInventoryEvent", eventOfType(events.ReservationCreatedEvent)).Return(nil).Once()
	publisher.On("PublishInventoryEvent", eventOfType(events.ReservationReleasedEvent)).Return(nil).Once()
	publisher.On("PublishInventoryEvent", eventOfType(events.StockUpdatedEvent)).Return(nil).Once()

	d := NewDispatcher(journal, publisher, "inventory-service", 8, zap.NewNop())
	d.Start(context.Background())

	// Act
	d.ReservationCreated(created)
	d.ReservationChanged(released)
	d.StockChanged(stock)
	d.CenterRegistered(center)
	d.Close()

	// Assert
	journal.AssertExpectations(t)
	publisher.AssertExpectations(t)
	assert.Zero(t, d.Dropped())
}

func TestDispatcher_PayloadCarriesReservation(t *testing.T) {
	publisher := new(MockPublisher)
	view := sampleView(domain.StateExpired)
	var got events.InventoryEvent
	publisher.On("PublishInventoryEvent", mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(0).(events.InventoryEvent)
	}).Return(nil).Once()

	d := NewDispatcher(nil, publisher, "inventory-service", 1, zap.NewNop())
	d.Start(context.Background())
	d.ReservationChanged(view)
	d.Close()

	require.Equal(t, events.ReservationExpiredEvent, got.EventType)
	assert.Equal(t, "inventory-service", got.Service)
	var payload events.ReservationPayload
	require.NoError(t, got.DecodePayload(&payload))
	assert.Equal(t, view.ID, payload.ReservationID)
	assert.Equal(t, "EXPIRED", payload.State)
	assert.Equal(t, "user-a", payload.UserID)
}

func TestDispatcher_FailuresAreLoggedNotFatal(t *testing.T) {
	journal := new(MockJournal)
	publisher := new(MockPublisher)
	view := sampleView(domain.StateActive)
	journal.On("SaveReservation", mock.Anything, view).Return(errors.New("connection refused")).Once()
	publisher.On("PublishInventoryEvent", mock.Anything).Return(errors.New("no connection")).Once()

	d := NewDispatcher(journal, publisher, "inventory-service", 4, zap.NewNop())
	d.Start(context.Background())
	d.ReservationCreated(view)
	d.Close()

	journal.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestDispatcher_DropsAfterClose(t *testing.T) {
	d := NewDispatcher(nil, nil, "inventory-service", 4, zap.NewNop())
	d.Start(context.Background())
	d.Close()
	d.Close()

	d.ReservationCreated(sampleView(domain.StateActive))

	assert.Equal(t, int64(1), d.Dropped())
}

func TestReservationEventType(t *testing.T) {
	assert.Equal(t, events.ReservationReleasedEvent, reservationEventType(domain.StateReleased))
	assert.Equal(t, events.ReservationExpiredEvent, reservationEventType(domain.StateExpired))
	assert.Equal(t, events.ReservationConsumedEvent, reservationEventType(domain.StateConsumed))
	assert.Equal(t, events.ReservationReducedEvent, reservationEventType(domain.StateActive))
}

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) PruneTerminal(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func TestSweeper_PrunesArchive(t *testing.T) {
	h := newHarness(t)
	archive := new(MockArchive)
	cutoff := h.clock.Now().Add(-24 * time.Hour)
	archive.On("PruneTerminal", mock.Anything, cutoff).Return(int64(3), nil).Once()
	archive.On("PruneTerminal", mock.Anything, cutoff).Return(int64(0), errors.New("db down")).Once()

	sweeper := NewSweeper(h.svc, time.Second, time.Hour, zap.NewNop()).WithArchive(archive, 24*time.Hour)

	assert.Equal(t, int64(3), sweeper.SweepOnce(context.Background()).Archived)
	assert.Equal(t, int64(0), sweeper.SweepOnce(context.Background()).Archived)
	archive.AssertExpectations(t)
}
