package service

import (
	"context"
	"fmt"
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Config struct {
	DefaultTTL      time.Duration
	MaxTTL          time.Duration
	DefaultCenterID int
}

func DefaultConfig() Config {
	return Config{
		DefaultTTL:      domain.DefaultReservationTTL,
		MaxTTL:          time.Hour,
		DefaultCenterID: domain.DefaultCenterID,
	}
}

type InventoryService struct {
	inventory    *store.Inventory
	ledger       *store.Ledger
	reservations *store.ReservationStore
	recorder     ChangeRecorder
	logger       *zap.Logger
	tracer       trace.Tracer
	meter        metric.Meter
	metrics      *serviceMetrics
	cfg          Config
	now          func() time.Time
}

type Option func(*InventoryService)

func WithClock(now func() time.Time) Option {
	return func(s *InventoryService) { s.now = now }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *InventoryService) { s.tracer = tracer }
}

func WithMeter(meter metric.Meter) Option {
	return func(s *InventoryService) { s.meter = meter }
}

func NewInventoryService(inv *store.Inventory, recorder ChangeRecorder, logger *zap.Logger, cfg Config, opts ...Option) (*InventoryService, error) {
	defaults := DefaultConfig()
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = defaults.DefaultTTL
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = defaults.MaxTTL
	}
	if cfg.DefaultTTL > cfg.MaxTTL {
		return nil, fmt.Errorf("default ttl %s exceeds max ttl %s", cfg.DefaultTTL, cfg.MaxTTL)
	}
	if cfg.DefaultCenterID <= 0 {
		cfg.DefaultCenterID = defaults.DefaultCenterID
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &InventoryService{
		inventory:    inv,
		ledger:       store.NewLedger(inv),
		reservations: store.NewReservationStore(inv),
		recorder:     recorder,
		logger:       logger,
		tracer:       otel.Tracer(instrumentationName),
		meter:        otel.Meter(instrumentationName),
		cfg:          cfg,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reservations.OnCreate(recorder.ReservationCreated)

	m, err := newServiceMetrics(s.meter)
	if err != nil {
		return nil, err
	}
	s.metrics = m
	return s, nil
}

func (s *InventoryService) Config() Config {
	return s.cfg
}

func (s *InventoryService) Now() time.Time {
	return s.now()
}

func (s *InventoryService) Reserve(ctx context.Context, req domain.ReserveRequest) (domain.ReserveResult, error) {
	started := time.Now()
	if req.CenterID == 0 {
		req.CenterID = s.cfg.DefaultCenterID
	}
	ctx, span := s.tracer.Start(ctx, "InventoryService.Reserve", trace.WithAttributes(
		attribute.String("inventory.sku", domain.NormalizeSKU(req.SKU)),
		attribute.Int("inventory.center_id", req.CenterID),
		attribute.Int("inventory.quantity", req.Quantity),
		attribute.String("inventory.owner", req.Owner.String()),
	))
	defer span.End()

	ttl, err := s.validateReserve(req)
	if err != nil {
		s.reject(ctx, span, "reserve", err)
		return domain.ReserveResult{}, err
	}

	now := s.now()
	out, err := s.reservations.Reserve(domain.NewStockKey(req.SKU, req.CenterID), req.Owner, req.Quantity, ttl, now)
	s.recordExpired(ctx, out.Expired)
	s.metrics.reserveDuration.Record(ctx, time.Since(started).Seconds())
	if err != nil {
		s.reject(ctx, span, "reserve", err)
		return domain.ReserveResult{Available: out.Available}, err
	}

	s.metrics.created.Add(ctx, 1)
	span.SetAttributes(attribute.String("inventory.reservation_id", out.Reservation.ID.String()))

	s.logger.Info("Reservation created",
		zap.String("reservation_id", out.Reservation.ID.String()),
		zap.String("sku", out.Reservation.SKU),
		zap.Int("center_id", out.Reservation.CenterID),
		zap.Int("quantity", out.Reservation.Quantity),
		zap.Int("available", out.Available),
		zap.Time("expires_at", out.Reservation.ExpiresAt),
	)

	return domain.ReserveResult{
		Reservation:          out.Reservation,
		Available:            out.Available,
		RemainingTimeSeconds: out.Reservation.RemainingSeconds(now),
	}, nil
}

func (s *InventoryService) validateReserve(req domain.ReserveRequest) (time.Duration, error) {
	if req.Quantity <= 0 {
		return 0, domain.NewInvalidQuantity(req.Quantity)
	}
	if err := req.Owner.Validate(); err != nil {
		return 0, err
	}
	return s.resolveTTL(req.TTL)
}

func (s *InventoryService) resolveTTL(ttl time.Duration) (time.Duration, error) {
	switch {
	case ttl == 0:
		return s.cfg.DefaultTTL, nil
	case ttl < 0:
		return 0, domain.NewInvalidTTL(fmt.Sprintf("ttl must be positive, got %s", ttl))
	case ttl > s.cfg.MaxTTL:
		return 0, domain.NewInvalidTTL(fmt.Sprintf("ttl %s exceeds the maximum of %s", ttl, s.cfg.MaxTTL))
	}
	return ttl, nil
}

func (s *InventoryService) Release(ctx context.Context, req domain.ReleaseRequest) (domain.ReleaseResult, error) {
	sku := domain.NormalizeSKU(req.SKU)
	ctx, span := s.tracer.Start(ctx, "InventoryService.Release", trace.WithAttributes(
		attribute.String("inventory.sku", sku),
		attribute.Int("inventory.quantity", req.Quantity),
		attribute.String("inventory.owner", req.Owner.String()),
	))
	defer span.End()

	if req.Quantity <= 0 {
		err := domain.NewInvalidQuantity(req.Quantity)
		s.reject(ctx, span, "release", err)
		return domain.ReleaseResult{SKU: sku}, err
	}
	if err := req.Owner.Validate(); err != nil {
		s.reject(ctx, span, "release", err)
		return domain.ReleaseResult{SKU: sku}, err
	}

	out, err := s.reservations.Release(sku, req.Owner, req.Quantity, s.now())
	s.recordExpired(ctx, out.Expired)
	if err != nil {
		s.reject(ctx, span, "release", err)
		return domain.ReleaseResult{SKU: sku, Available: out.Available}, err
	}

	for _, v := range out.Closed {
		s.recorder.ReservationChanged(v)
	}
	for _, v := range out.Reduced {
		s.recorder.ReservationChanged(v)
	}
	s.metrics.released.Add(ctx, int64(len(out.Closed)))

	s.logger.Info("Reservation released",
		zap.String("sku", sku),
		zap.String("owner", req.Owner.String()),
		zap.Int("quantity", out.Released),
		zap.Int("closed", len(out.Closed)),
		zap.Int("reduced", len(out.Reduced)),
		zap.Int("already_expired", out.AlreadyExpired),
		zap.Int("available", out.Available),
	)

	return domain.ReleaseResult{
		SKU:            sku,
		Released:       out.Released,
		AlreadyExpired: out.AlreadyExpired,
		Available:      out.Available,
		Closed:         out.Closed,
	}, nil
}

func (s *InventoryService) ClearCart(ctx context.Context, owner domain.Owner) (domain.ClearResult, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.ClearCart", trace.WithAttributes(
		attribute.String("inventory.owner", owner.String()),
	))
	defer span.End()

	if err := owner.Validate(); err != nil {
		s.reject(ctx, span, "clear", err)
		return domain.ClearResult{ProductsAffected: []string{}}, err
	}

	out := s.reservations.ClearOwner(owner, s.now())
	s.recordExpired(ctx, out.Expired)
	for _, v := range out.Closed {
		s.recorder.ReservationChanged(v)
	}
	s.metrics.released.Add(ctx, int64(len(out.Closed)))
	span.SetAttributes(attribute.Int("inventory.cleared", len(out.Closed)))

	s.logger.Info("Cart cleared",
		zap.String("owner", owner.String()),
		zap.Int("cleared", len(out.Closed)),
		zap.Strings("skus", out.SKUs),
	)

	return domain.ClearResult{ClearedCount: len(out.Closed), ProductsAffected: out.SKUs}, nil
}

func (s *InventoryService) ListReservations(ctx context.Context, owner domain.Owner) ([]domain.ReservationListing, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.ListReservations", trace.WithAttributes(
		attribute.String("inventory.owner", owner.String()),
	))
	defer span.End()

	if err := owner.Validate(); err != nil {
		s.reject(ctx, span, "list", err)
		return nil, err
	}

	now := s.now()
	views := s.reservations.ListOwner(owner, now)
	listing := make([]domain.ReservationListing, 0, len(views))
	for _, v := range views {
		listing = append(listing, domain.ReservationListing{
			Reservation:          v,
			RemainingTimeSeconds: v.RemainingSeconds(now),
		})
	}
	return listing, nil
}

// Consume acknowledges that a reservation became an order. Losing a race
// against the sweeper or a release yields AlreadyTerminal.
func (s *InventoryService) Consume(ctx context.Context, id uuid.UUID) (domain.ReservationView, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.Consume", trace.WithAttributes(
		attribute.String("inventory.reservation_id", id.String()),
	))
	defer span.End()

	out, err := s.reservations.Consume(id, s.now())
	s.recordExpired(ctx, out.Expired)
	if err != nil {
		s.reject(ctx, span, "consume", err)
		return out.Reservation, err
	}

	s.recorder.ReservationChanged(out.Reservation)
	s.metrics.consumed.Add(ctx, 1)
	s.logger.Info("Reservation consumed",
		zap.String("reservation_id", id.String()),
		zap.String("sku", out.Reservation.SKU),
		zap.Int("quantity", out.Reservation.Quantity),
	)
	return out.Reservation, nil
}

func (s *InventoryService) GetReservation(ctx context.Context, id uuid.UUID) (domain.ReservationView, error) {
	_, span := s.tracer.Start(ctx, "InventoryService.GetReservation", trace.WithAttributes(
		attribute.String("inventory.reservation_id", id.String()),
	))
	defer span.End()

	return s.reservations.Get(id)
}

func (s *InventoryService) Stats() store.Stats {
	return s.inventory.Stats()
}

func (s *InventoryService) recordExpired(ctx context.Context, expired []domain.ReservationView) {
	if len(expired) == 0 {
		return
	}
	for _, v := range expired {
		s.recorder.ReservationChanged(v)
		s.logger.Debug("Reservation expired",
			zap.String("reservation_id", v.ID.String()),
			zap.String("sku", v.SKU),
			zap.Int("center_id", v.CenterID),
			zap.Int("quantity", v.Quantity),
		)
	}
	s.metrics.expired.Add(ctx, int64(len(expired)))
}

// reject counts an engine rejection. Domain errors are expected outcomes and
// leave the span status alone; anything else marks the span failed.
func (s *InventoryService) reject(ctx context.Context, span trace.Span, op string, err error) {
	kind := domain.KindOf(err)
	if kind == 0 {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("Inventory operation failed", zap.String("operation", op), zap.Error(err))
		return
	}
	span.SetAttributes(attribute.String("inventory.rejection", kind.String()))
	s.metrics.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("kind", kind.String()),
	))
	s.logger.Debug("Inventory operation rejected",
		zap.String("operation", op),
		zap.String("kind", kind.String()),
		zap.Error(err),
	)
}

// ExpireDue retires every reservation whose TTL ran out and reports them.
func (s *InventoryService) ExpireDue(ctx context.Context) []domain.ReservationView {
	ctx, span := s.tracer.Start(ctx, "InventoryService.ExpireDue")
	defer span.End()

	expired := s.reservations.ExpireDue(s.now())
	s.recordExpired(ctx, expired)
	span.SetAttributes(attribute.Int("inventory.expired", len(expired)))
	return expired
}

// PurgeTerminal drops terminal reservations untouched for longer than retention.
func (s *InventoryService) PurgeTerminal(ctx context.Context, retention time.Duration) int {
	return s.reservations.Purge(s.now().Add(-retention))
}
