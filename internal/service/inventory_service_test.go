package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	ownerA = domain.Owner{UserID: "user-a", SessionID: "session-a"}
	ownerB = domain.Owner{UserID: "user-b", SessionID: "session-b"}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingRecorder struct {
	mu      sync.Mutex
	created []domain.ReservationView
	changed []domain.ReservationView
	stock   []domain.DistributionCenterStock
	centers []domain.DistributionCenter
}

func (r *recordingRecorder) ReservationCreated(v domain.ReservationView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, v)
}

func (r *recordingRecorder) ReservationChanged(v domain.ReservationView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, v)
}

func (r *recordingRecorder) StockChanged(s domain.DistributionCenterStock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stock = append(r.stock, s)
}

func (r *recordingRecorder) CenterRegistered(c domain.DistributionCenter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.centers = append(r.centers, c)
}

func (r *recordingRecorder) changedWith(state domain.ReservationState) []domain.ReservationView {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ReservationView
	for _, v := range r.changed {
		if v.State == state {
			out = append(out, v)
		}
	}
	return out
}

type harness struct {
	svc      *InventoryService
	clock    *fakeClock
	recorder *recordingRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := newFakeClock()
	rec := &recordingRecorder{}
	svc, err := NewInventoryService(store.NewInventory(), rec, zap.NewNop(), DefaultConfig(), WithClock(clock.Now))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.RegisterCenter(ctx, domain.DistributionCenter{ID: 1, Code: "C1", Name: "Central", City: "Bogota", LowStockThreshold: 2}))
	require.NoError(t, svc.RegisterCenter(ctx, domain.DistributionCenter{ID: 2, Code: "C2", Name: "North", City: "Medellin", LowStockThreshold: 2}))
	return &harness{svc: svc, clock: clock, recorder: rec}
}

func (h *harness) stock(t *testing.T, sku string, center, physical int) {
	t.Helper()
	_, err := h.svc.UpsertStock(context.Background(), domain.DistributionCenterStock{SKU: sku, CenterID: center, PhysicalQuantity: physical})
	require.NoError(t, err)
}

func (h *harness) available(t *testing.T, sku string) int {
	t.Helper()
	report, err := h.svc.GetAvailability(context.Background(), []string{sku}, nil)
	require.NoError(t, err)
	require.Len(t, report.Products, 1)
	return report.Products[0].Available
}

func TestReserveReleaseScenario(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.stock(t, "SKU-1", 1, 10)
	ctx := context.Background()

	// Act & Assert
	res, err := h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-1", Quantity: 7, CenterID: 1, Owner: ownerA, TTL: 15 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Available)

	_, err = h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-1", Quantity: 5, CenterID: 1, Owner: ownerB})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var invErr *domain.InventoryError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, 5, invErr.Requested)
	assert.Equal(t, 3, invErr.Available)

	rel, err := h.svc.Release(ctx, domain.ReleaseRequest{SKU: "SKU-1", Quantity: 7, Owner: ownerA})
	require.NoError(t, err)
	assert.Equal(t, 10, rel.Available)
	assert.Equal(t, 7, rel.Released)

	res, err = h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-1", Quantity: 5, CenterID: 1, Owner: ownerB})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Available)
}

func TestReserve_ExpiresAfterTTLWithoutRelease(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.stock(t, "SKU-1", 1, 4)
	ctx := context.Background()
	sweeper := NewSweeper(h.svc, time.Second, time.Hour, zap.NewNop())

	res, err := h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-1", Quantity: 4, Owner: ownerA, TTL: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Available)
	assert.Equal(t, 1, res.RemainingTimeSeconds)

	// Act
	h.clock.Advance(1500 * time.Millisecond)
	result := sweeper.SweepOnce(ctx)

	// Assert
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, 4, h.available(t, "SKU-1"))
	expired := h.recorder.changedWith(domain.StateExpired)
	require.Len(t, expired, 1)
	assert.Equal(t, res.Reservation.ID, expired[0].ID)

	assert.Equal(t, 0, sweeper.SweepOnce(ctx).Expired)
}

func TestGetAvailability_MultiSKU(t *testing.T) {
	// Arrange
	h := newHarness(t)
	ctx := context.Background()
	h.stock(t, "A", 1, 5)
	h.stock(t, "A", 2, 5)
	h.stock(t, "B", 1, 10)
	_, err := h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "A", Quantity: 2, CenterID: 1, Owner: ownerA})
	require.NoError(t, err)
	_, err = h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "a", Quantity: 1, CenterID: 2, Owner: ownerB})
	require.NoError(t, err)

	// Act
	report, err := h.svc.GetAvailability(ctx, []string{"a", "B", "A"}, nil)

	// Assert
	require.NoError(t, err)
	require.Len(t, report.Products, 2)
	a, b := report.Products[0], report.Products[1]
	assert.Equal(t, "A", a.SKU)
	assert.Equal(t, 10, a.TotalPhysical)
	assert.Equal(t, 3, a.TotalReserved)
	assert.Equal(t, 7, a.Available)
	assert.Len(t, a.Centers, 2)
	assert.Equal(t, "B", b.SKU)
	assert.Equal(t, 10, b.Available)
	assert.Empty(t, report.NotFound)
}

func TestGetAvailability_UnknownSKUs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.stock(t, "A", 1, 5)

	_, err := h.svc.GetProductAvailability(ctx, "missing", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownSku)

	report, err := h.svc.GetAvailability(ctx, []string{"missing"}, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Products)
	assert.Equal(t, []string{"MISSING"}, report.NotFound)

	report, err = h.svc.GetAvailability(ctx, []string{"A", "missing"}, nil)
	require.NoError(t, err)
	assert.Len(t, report.Products, 1)
	assert.Equal(t, []string{"MISSING"}, report.NotFound)

	unknown := 42
	_, err = h.svc.GetAvailability(ctx, []string{"A"}, &unknown)
	assert.ErrorIs(t, err, domain.ErrUnknownCenter)
	_, err = h.svc.GetProductAvailability(ctx, "A", &unknown)
	assert.ErrorIs(t, err, domain.ErrUnknownCenter)

	snapshot, err := h.svc.GetProductAvailability(ctx, "a", nil)
	require.NoError(t, err)
	assert.Equal(t, "A", snapshot.SKU)
	assert.Equal(t, 5, snapshot.Available)
}

func TestGetAvailability_CenterFilterAndLowStock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.stock(t, "A", 1, 5)
	h.stock(t, "A", 2, 3)
	_, err := h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "A", Quantity: 2, CenterID: 2, Owner: ownerA})
	require.NoError(t, err)

	center := 2
	report, err := h.svc.GetAvailability(ctx, []string{"A"}, &center)
	require.NoError(t, err)
	require.Len(t, report.Products, 1)
	p := report.Products[0]
	require.Len(t, p.Centers, 1)
	assert.Equal(t, 1, p.Available)
	assert.True(t, p.IsLowStock)
	assert.False(t, p.IsOutOfStock)
	assert.Equal(t, "C2", p.Centers[0].CenterCode)
}

func TestReserve_Validation(t *testing.T) {
	h := newHarness(t)
	h.stock(t, "SKU-1", 1, 10)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.ReserveRequest
		want error
	}{
		{"zero quantity", domain.ReserveRequest{SKU: "SKU-1", Quantity: 0, Owner: ownerA}, domain.ErrInvalidQuantity},
		{"negative quantity", domain.ReserveRequest{SKU: "SKU-1", Quantity: -3, Owner: ownerA}, domain.ErrInvalidQuantity},
		{"missing session", domain.ReserveRequest{SKU: "SKU-1", Quantity: 1, Owner: domain.Owner{UserID: "u"}}, domain.ErrInvalidOwner},
		{"ttl above max", domain.ReserveRequest{SKU: "SKU-1", Quantity: 1, Owner: ownerA, TTL: 2 * time.Hour}, domain.ErrInvalidTTL},
		{"negative ttl", domain.ReserveRequest{SKU: "SKU-1", Quantity: 1, Owner: ownerA, TTL: -time.Minute}, domain.ErrInvalidTTL},
		{"unknown center", domain.ReserveRequest{SKU: "SKU-1", Quantity: 1, CenterID: 9, Owner: ownerA}, domain.ErrUnknownCenter},
		{"unknown sku", domain.ReserveRequest{SKU: "nope", Quantity: 1, Owner: ownerA}, domain.ErrUnknownSku},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Reserve(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 10, h.available(t, "SKU-1"))
	assert.Empty(t, h.recorder.created)
}

func TestReserve_Defaults(t *testing.T) {
	h := newHarness(t)
	h.stock(t, "SKU-1", 1, 10)

	res, err := h.svc.Reserve(context.Background(), domain.ReserveRequest{SKU: "sku-1", Quantity: 2, Owner: ownerA})

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCenterID, res.Reservation.CenterID)
	assert.Equal(t, "SKU-1", res.Reservation.SKU)
	assert.Equal(t, 900, res.RemainingTimeSeconds)
	assert.Equal(t, h.clock.Now().Add(15*time.Minute), res.Reservation.ExpiresAt)
	require.Len(t, h.recorder.created, 1)
}

func TestReserveRelease_RoundTrip(t *testing.T) {
	h := newHarness(t)
	h.stock(t, "SKU-1", 1, 6)
	h.stock(t, "SKU-1", 2, 4)
	ctx := context.Background()
	before := h.available(t, "SKU-1")

	_, err := h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-1", Quantity: 3, CenterID: 2, Owner: ownerA})
	require.NoError(t, err)
	_, err = h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-1", Quantity: 2, CenterID: 1, Owner: ownerA})
	require.NoError(t, err)
	rel, err := h.svc.Release(ctx, domain.ReleaseRequest{SKU: "SKU-1", Quantity: 5, Owner: ownerA})

	require.NoError(t, err)
	assert.Equal(t, before, rel.Available)
	assert.Equal(t, before, h.available(t, "SKU-1"))
	assert.Len(t, h.recorder.changedWith(domain.StateReleased), 2)
}

func TestRelease_MoreThanHeld(t *testing.T) {
	h := newHarness(t)
	h.stock(t, "SKU-1", 1, 10)
	ctx := context.Background()
	_, err := h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-1", Quantity: 2, Owner: ownerA})
	require.NoError(t, err)

	_, err = h.svc.Release(ctx, domain.ReleaseRequest{SKU: "SKU-1", Quantity: 3, Owner: ownerA})
	require.ErrorIs(t, err, domain.ErrInsufficientReservedQuantity)

	_, err = h.svc.Release(ctx, domain.ReleaseRequest{SKU: "SKU-1", Quantity: 0, Owner: ownerA})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, 8, h.available(t, "SKU-1"))
}

func TestListReservations_HidesLapsedBeforeSweep(t *testing.T) {
	h := newHarness(t)
	h.stock(t, "SKU-1", 1, 10)
	h.stock(t, "SKU-2", 1, 10)
	ctx := context.Background()
	_, err := h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-1", Quantity: 1, Owner: ownerA, TTL: time.Minute})
	require.NoError(t, err)
	_, err = h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-2", Quantity: 1, Owner: ownerA, TTL: 10 * time.Minute})
	require.NoError(t, err)

	h.clock.Advance(time.Minute)
	listing, err := h.svc.ListReservations(ctx, ownerA)

	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.Equal(t, "SKU-2", listing[0].Reservation.SKU)
	assert.Equal(t, 540, listing[0].RemainingTimeSeconds)
	assert.Equal(t, 10, h.available(t, "SKU-1"))
}

func TestClearCart(t *testing.T) {
	h := newHarness(t)
	h.stock(t, "SKU-1", 1, 10)
	h.stock(t, "SKU-2", 2, 10)
	ctx := context.Background()

	empty, err := h.svc.ClearCart(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.ClearedCount)
	assert.Empty(t, empty.ProductsAffected)

	_, err = h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-1", Quantity: 1, Owner: ownerA})
	require.NoError(t, err)
	_, err = h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-2", Quantity: 2, CenterID: 2, Owner: ownerA})
	require.NoError(t, err)
	_, err = h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-2", Quantity: 3, CenterID: 2, Owner: ownerB})
	require.NoError(t, err)

	cleared, err := h.svc.ClearCart(ctx, ownerA)

	require.NoError(t, err)
	assert.Equal(t, 2, cleared.ClearedCount)
	assert.Equal(t, []string{"SKU-1", "SKU-2"}, cleared.ProductsAffected)
	assert.Equal(t, 7, h.available(t, "SKU-2"))

	_, err = h.svc.ClearCart(ctx, domain.Owner{})
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}

func TestConsume(t *testing.T) {
	h := newHarness(t)
	h.stock(t, "SKU-1", 1, 10)
	ctx := context.Background()
	res, err := h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-1", Quantity: 4, Owner: ownerA})
	require.NoError(t, err)

	view, err := h.svc.Consume(ctx, res.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateConsumed, view.State)

	_, err = h.svc.Consume(ctx, res.Reservation.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)
	_, err = h.svc.Consume(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)

	got, err := h.svc.GetReservation(ctx, res.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateConsumed, got.State)
	assert.Len(t, h.recorder.changedWith(domain.StateConsumed), 1)
	assert.Equal(t, 10, h.available(t, "SKU-1"))
}

func TestShipStock_ConsumesReservation(t *testing.T) {
	h := newHarness(t)
	h.stock(t, "SKU-1", 1, 10)
	ctx := context.Background()
	res, err := h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-1", Quantity: 4, Owner: ownerA})
	require.NoError(t, err)
	id := res.Reservation.ID

	stock, err := h.svc.ShipStock(ctx, domain.ShipStockCommand{SKU: "SKU-1", CenterID: 1, Quantity: 4, ReservationID: &id})

	require.NoError(t, err)
	assert.Equal(t, 6, stock.PhysicalQuantity)
	assert.Equal(t, 6, h.available(t, "SKU-1"))
	assert.Len(t, h.recorder.changedWith(domain.StateConsumed), 1)
}

func TestReceiveAndInTransit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.AdjustInTransit(ctx, domain.InTransitCommand{SKU: "SKU-9", CenterID: 1, Delta: 6})
	require.NoError(t, err)
	assert.Equal(t, 0, h.available(t, "SKU-9"))

	stock, err := h.svc.ReceiveStock(ctx, domain.ReceiveStockCommand{SKU: "sku-9", CenterID: 1, Quantity: 4, FromTransit: true})
	require.NoError(t, err)
	assert.Equal(t, 4, stock.PhysicalQuantity)
	assert.Equal(t, 2, stock.InTransitQuantity)

	report, err := h.svc.GetAvailability(ctx, []string{"SKU-9"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Products[0].Available)
	assert.Equal(t, 2, report.Products[0].TotalInTransit)

	_, err = h.svc.ReceiveStock(ctx, domain.ReceiveStockCommand{SKU: "SKU-9", CenterID: 7, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrUnknownCenter)
}

func TestGetStockLevels_OnlyAvailable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.stock(t, "A", 1, 3)
	h.stock(t, "A", 2, 2)
	h.stock(t, "B", 1, 1)
	_, err := h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "A", Quantity: 3, CenterID: 1, Owner: ownerA})
	require.NoError(t, err)
	_, err = h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "B", Quantity: 1, CenterID: 1, Owner: ownerA})
	require.NoError(t, err)

	report, err := h.svc.GetStockLevels(ctx, domain.StockLevelsQuery{OnlyAvailable: true})

	require.NoError(t, err)
	require.Len(t, report.Products, 1)
	assert.Equal(t, "A", report.Products[0].SKU)
	require.Len(t, report.Products[0].Centers, 1)
	assert.Equal(t, 2, report.Products[0].Centers[0].CenterID)
}

type staticSnapshot struct {
	centers      []domain.DistributionCenter
	stock        []domain.DistributionCenterStock
	reservations []domain.ReservationView
}

func (s staticSnapshot) LoadCenters(context.Context) ([]domain.DistributionCenter, error) {
	return s.centers, nil
}

func (s staticSnapshot) LoadStock(context.Context) ([]domain.DistributionCenterStock, error) {
	return s.stock, nil
}

func (s staticSnapshot) LoadActiveReservations(context.Context) ([]domain.ReservationView, error) {
	return s.reservations, nil
}

func TestBootstrap(t *testing.T) {
	clock := newFakeClock()
	rec := &recordingRecorder{}
	svc, err := NewInventoryService(store.NewInventory(), rec, zap.NewNop(), DefaultConfig(), WithClock(clock.Now))
	require.NoError(t, err)
	now := clock.Now()

	live := domain.ReservationView{
		ID: uuid.New(), SKU: "SKU-1", CenterID: 1, Owner: ownerA, Quantity: 3,
		State: domain.StateActive, CreatedAt: now.Add(-time.Minute), ExpiresAt: now.Add(time.Minute), UpdatedAt: now.Add(-time.Minute),
	}
	lapsed := live
	lapsed.ID = uuid.New()
	lapsed.ExpiresAt = now.Add(-time.Second)

	report, err := svc.Bootstrap(context.Background(), staticSnapshot{
		centers:      []domain.DistributionCenter{{ID: 1, Code: "C1"}},
		stock:        []domain.DistributionCenterStock{{SKU: "SKU-1", CenterID: 1, PhysicalQuantity: 5}},
		reservations: []domain.ReservationView{live, lapsed},
	})

	require.NoError(t, err)
	assert.Equal(t, BootstrapReport{Centers: 1, StockRows: 1, Restored: 1, Dropped: 1}, report)
	listing, err := svc.ListReservations(context.Background(), ownerA)
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.Equal(t, live.ID, listing[0].Reservation.ID)
	expired := rec.changedWith(domain.StateExpired)
	require.Len(t, expired, 1)
	assert.Equal(t, lapsed.ID, expired[0].ID)
}

func TestNewInventoryService_RejectsDefaultAboveMax(t *testing.T) {
	_, err := NewInventoryService(store.NewInventory(), nil, nil, Config{DefaultTTL: time.Hour, MaxTTL: time.Minute})
	assert.Error(t, err)
}

type orderingRecorder struct {
	nopRecorder
	mu         sync.Mutex
	created    map[uuid.UUID]bool
	changed    int
	outOfOrder int
}

func (r *orderingRecorder) ReservationCreated(v domain.ReservationView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created[v.ID] = true
}

func (r *orderingRecorder) ReservationChanged(v domain.ReservationView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed++
	if !r.created[v.ID] {
		r.outOfOrder++
	}
}

func TestReserve_CreationRecordedBeforeAnyChange(t *testing.T) {
	// Arrange
	rec := &orderingRecorder{created: make(map[uuid.UUID]bool)}
	svc, err := NewInventoryService(store.NewInventory(), rec, zap.NewNop(), DefaultConfig())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, svc.RegisterCenter(ctx, domain.DistributionCenter{ID: 1, Code: "C1", Name: "Central"}))
	_, err = svc.UpsertStock(ctx, domain.DistributionCenterStock{SKU: "SKU-1", CenterID: 1, PhysicalQuantity: 40})
	require.NoError(t, err)
	owners := []domain.Owner{ownerA, ownerB}

	// Act
	var reservers, clearers sync.WaitGroup
	done := make(chan struct{})
	for g := 0; g < 4; g++ {
		reservers.Add(1)
		go func(g int) {
			defer reservers.Done()
			for i := 0; i < 2000; i++ {
				_, _ = svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-1", Quantity: 1, CenterID: 1, Owner: owners[(g+i)%2]})
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		clearers.Add(1)
		go func(g int) {
			defer clearers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				_, _ = svc.ClearCart(ctx, owners[g%2])
			}
		}(g)
	}
	reservers.Wait()
	close(done)
	clearers.Wait()
	_, err = svc.ClearCart(ctx, ownerA)
	require.NoError(t, err)
	_, err = svc.ClearCart(ctx, ownerB)
	require.NoError(t, err)

	// Assert
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.NotEmpty(t, rec.created)
	assert.Equal(t, len(rec.created), rec.changed)
	assert.Zero(t, rec.outOfOrder)
}

func TestRelease_LapsedHoldIsNotAnError(t *testing.T) {
	h := newHarness(t)
	h.stock(t, "SKU-1", 1, 10)
	ctx := context.Background()
	_, err := h.svc.Reserve(ctx, domain.ReserveRequest{SKU: "SKU-1", Quantity: 5, Owner: ownerA, TTL: time.Second})
	require.NoError(t, err)

	h.clock.Advance(2 * time.Second)
	res, err := h.svc.Release(ctx, domain.ReleaseRequest{SKU: "SKU-1", Quantity: 5, Owner: ownerA})

	require.NoError(t, err)
	assert.Equal(t, 5, res.Released)
	assert.Equal(t, 5, res.AlreadyExpired)
	assert.Equal(t, 10, res.Available)
	assert.Len(t, h.recorder.changedWith(domain.StateExpired), 1)
	assert.Empty(t, h.recorder.changedWith(domain.StateReleased))
}
