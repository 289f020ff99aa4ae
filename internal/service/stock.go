package service

import (
	"context"
	"fmt"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func (s *InventoryService) RegisterCenter(ctx context.Context, center domain.DistributionCenter) error {
	if center.ID <= 0 {
		return domain.NewUnknownCenter(center.ID)
	}
	if center.LowStockThreshold < 0 || center.LowStockPercent < 0 || center.LowStockPercent > 1 {
		return fmt.Errorf("center %d: low stock policy out of range", center.ID)
	}
	s.ledger.RegisterCenter(center)
	s.recorder.CenterRegistered(center)
	s.logger.Info("Distribution center registered",
		zap.Int("center_id", center.ID),
		zap.String("code", center.Code),
	)
	return nil
}

func (s *InventoryService) Centers(ctx context.Context) []domain.DistributionCenter {
	return s.ledger.Centers()
}

func (s *InventoryService) Stock(ctx context.Context, sku string, centerID int) (domain.DistributionCenterStock, error) {
	return s.ledger.Stock(sku, centerID)
}

// UpsertStock sets one ledger row, as done by admin corrections and seeding.
func (s *InventoryService) UpsertStock(ctx context.Context, stock domain.DistributionCenterStock) (domain.DistributionCenterStock, error) {
	stock.SKU = domain.NormalizeSKU(stock.SKU)
	ctx, span := s.stockSpan(ctx, "InventoryService.UpsertStock", stock.SKU, stock.CenterID)
	defer span.End()

	if stock.SKU == "" {
		err := domain.NewUnknownSku(stock.SKU)
		s.reject(ctx, span, "upsert_stock", err)
		return domain.DistributionCenterStock{}, err
	}
	change, err := s.ledger.Upsert(stock, s.now())
	return s.applyStockChange(ctx, span, "upsert_stock", change, err)
}

func (s *InventoryService) ReceiveStock(ctx context.Context, cmd domain.ReceiveStockCommand) (domain.DistributionCenterStock, error) {
	ctx, span := s.stockSpan(ctx, "InventoryService.ReceiveStock", cmd.SKU, cmd.CenterID)
	defer span.End()

	if domain.NormalizeSKU(cmd.SKU) == "" {
		err := domain.NewUnknownSku(cmd.SKU)
		s.reject(ctx, span, "receive_stock", err)
		return domain.DistributionCenterStock{}, err
	}
	change, err := s.ledger.Receive(cmd, s.now())
	return s.applyStockChange(ctx, span, "receive_stock", change, err)
}

// ShipStock removes physical units. With a reservation id the shipment
// consumes that reservation in the same critical section.
func (s *InventoryService) ShipStock(ctx context.Context, cmd domain.ShipStockCommand) (domain.DistributionCenterStock, error) {
	ctx, span := s.stockSpan(ctx, "InventoryService.ShipStock", cmd.SKU, cmd.CenterID)
	defer span.End()

	change, err := s.ledger.Ship(cmd, s.now())
	if err == nil && change.Consumed != nil {
		s.recorder.ReservationChanged(*change.Consumed)
		s.metrics.consumed.Add(ctx, 1)
	}
	return s.applyStockChange(ctx, span, "ship_stock", change, err)
}

func (s *InventoryService) AdjustInTransit(ctx context.Context, cmd domain.InTransitCommand) (domain.DistributionCenterStock, error) {
	ctx, span := s.stockSpan(ctx, "InventoryService.AdjustInTransit", cmd.SKU, cmd.CenterID)
	defer span.End()

	if domain.NormalizeSKU(cmd.SKU) == "" {
		err := domain.NewUnknownSku(cmd.SKU)
		s.reject(ctx, span, "in_transit", err)
		return domain.DistributionCenterStock{}, err
	}
	change, err := s.ledger.AdjustInTransit(cmd, s.now())
	return s.applyStockChange(ctx, span, "in_transit", change, err)
}

func (s *InventoryService) stockSpan(ctx context.Context, name, sku string, centerID int) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("inventory.sku", domain.NormalizeSKU(sku)),
		attribute.Int("inventory.center_id", centerID),
	))
}

func (s *InventoryService) applyStockChange(ctx context.Context, span trace.Span, op string, change store.StockChange, err error) (domain.DistributionCenterStock, error) {
	s.recordExpired(ctx, change.Expired)
	if err != nil {
		s.reject(ctx, span, op, err)
		return change.Stock, err
	}

	s.recorder.StockChanged(change.Stock)
	s.logger.Info("Stock updated",
		zap.String("operation", op),
		zap.String("sku", change.Stock.SKU),
		zap.Int("center_id", change.Stock.CenterID),
		zap.Int("physical", change.Stock.PhysicalQuantity),
		zap.Int("in_transit", change.Stock.InTransitQuantity),
	)
	return change.Stock, nil
}
