package service

import (
	"context"
	"errors"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GetAvailability derives a snapshot per SKU. Each SKU is read at one
// consistent point; nothing is promised across SKUs. An empty list means
// every SKU the ledger knows about. Unknown SKUs land in NotFound.
func (s *InventoryService) GetAvailability(ctx context.Context, skus []string, centerID *int) (domain.AvailabilityReport, error) {
	skus = normalizeSKUs(skus)
	ctx, span := s.tracer.Start(ctx, "InventoryService.GetAvailability", trace.WithAttributes(
		attribute.StringSlice("inventory.skus", skus),
	))
	defer span.End()

	if centerID != nil {
		span.SetAttributes(attribute.Int("inventory.center_id", *centerID))
		if _, err := s.ledger.Center(*centerID); err != nil {
			s.reject(ctx, span, "availability", err)
			return domain.AvailabilityReport{}, err
		}
	}

	if len(skus) == 0 {
		skus = s.ledger.SKUs()
	}

	now := s.now()
	report := domain.AvailabilityReport{Products: make([]domain.AvailabilitySnapshot, 0, len(skus))}
	for _, sku := range skus {
		readings, err := s.inventory.ReadSKU(sku, centerID, now)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownSku) {
				report.NotFound = append(report.NotFound, sku)
				continue
			}
			s.reject(ctx, span, "availability", err)
			return domain.AvailabilityReport{}, err
		}

		report.Products = append(report.Products, aggregate(sku, readings))
	}
	return report, nil
}

// GetProductAvailability is the one-product form: an unknown SKU is an error
// rather than a NotFound entry.
func (s *InventoryService) GetProductAvailability(ctx context.Context, sku string, centerID *int) (domain.AvailabilitySnapshot, error) {
	sku = domain.NormalizeSKU(sku)
	ctx, span := s.tracer.Start(ctx, "InventoryService.GetProductAvailability", trace.WithAttributes(
		attribute.String("inventory.sku", sku),
	))
	defer span.End()

	if centerID != nil {
		span.SetAttributes(attribute.Int("inventory.center_id", *centerID))
	}
	readings, err := s.inventory.ReadSKU(sku, centerID, s.now())
	if err != nil {
		s.reject(ctx, span, "availability", err)
		return domain.AvailabilitySnapshot{}, err
	}
	return aggregate(sku, readings), nil
}

func aggregate(sku string, readings []store.CenterReading) domain.AvailabilitySnapshot {
	centers := make([]domain.CenterAvailability, 0, len(readings))
	for _, r := range readings {
		centers = append(centers, domain.NewCenterAvailability(r.Center, r.Physical, r.Reserved, r.InTransit))
	}
	return domain.Aggregate(sku, centers)
}

// GetStockLevels is the warehouse-facing view of the same snapshots.
func (s *InventoryService) GetStockLevels(ctx context.Context, q domain.StockLevelsQuery) (domain.AvailabilityReport, error) {
	report, err := s.GetAvailability(ctx, q.SKUs, q.CenterID)
	if err != nil || !q.OnlyAvailable {
		return report, err
	}

	products := report.Products[:0]
	for _, p := range report.Products {
		if p.Available == 0 {
			continue
		}
		centers := make([]domain.CenterAvailability, 0, len(p.Centers))
		for _, c := range p.Centers {
			if c.Available > 0 {
				centers = append(centers, c)
			}
		}
		p.Centers = centers
		products = append(products, p)
	}
	report.Products = products
	return report, nil
}

func normalizeSKUs(skus []string) []string {
	seen := make(map[string]struct{}, len(skus))
	out := make([]string, 0, len(skus))
	for _, sku := range skus {
		sku = domain.NormalizeSKU(sku)
		if sku == "" {
			continue
		}
		if _, dup := seen[sku]; dup {
			continue
		}
		seen[sku] = struct{}{}
		out = append(out, sku)
	}
	return out
}
