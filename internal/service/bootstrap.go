package service

import (
	"context"
	"fmt"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"go.uber.org/zap"
)

type BootstrapReport struct {
	Centers   int
	StockRows int
	Restored  int
	Dropped   int
}

// Bootstrap loads the persisted state into an empty engine. Reservations that
// lapsed while the service was down, or no longer fit the ledger, are
// journaled as EXPIRED instead of being restored.
func (s *InventoryService) Bootstrap(ctx context.Context, src SnapshotSource) (BootstrapReport, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.Bootstrap")
	defer span.End()

	var report BootstrapReport

	centers, err := src.LoadCenters(ctx)
	if err != nil {
		return report, fmt.Errorf("load centers: %w", err)
	}
	for _, c := range centers {
		s.ledger.RegisterCenter(c)
	}
	report.Centers = len(centers)

	rows, err := src.LoadStock(ctx)
	if err != nil {
		return report, fmt.Errorf("load stock: %w", err)
	}
	now := s.now()
	for _, row := range rows {
		if _, err := s.ledger.Upsert(row, now); err != nil {
			s.logger.Warn("Skipping stock row",
				zap.String("sku", row.SKU),
				zap.Int("center_id", row.CenterID),
				zap.Error(err),
			)
			continue
		}
		report.StockRows++
	}

	active, err := src.LoadActiveReservations(ctx)
	if err != nil {
		return report, fmt.Errorf("load reservations: %w", err)
	}
	for _, view := range active {
		if err := s.reservations.Restore(view, now); err != nil {
			s.logger.Warn("Reservation not restored",
				zap.String("reservation_id", view.ID.String()),
				zap.String("sku", view.SKU),
				zap.Error(err),
			)
			view.State = domain.StateExpired
			view.UpdatedAt = now
			s.recorder.ReservationChanged(view)
			report.Dropped++
			continue
		}
		report.Restored++
	}

	s.logger.Info("Inventory state loaded",
		zap.Int("centers", report.Centers),
		zap.Int("stock_rows", report.StockRows),
		zap.Int("reservations_restored", report.Restored),
		zap.Int("reservations_dropped", report.Dropped),
	)
	return report, nil
}
