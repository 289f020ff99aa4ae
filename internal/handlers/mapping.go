package handlers

import (
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/distributed-ecommerce-saga/inventory-service/shared-domain/types"
)

func toRealtimeStock(s domain.AvailabilitySnapshot) types.RealtimeStock {
	out := types.RealtimeStock{
		ProductSKU:                s.SKU,
		TotalPhysicalStock:        s.TotalPhysical,
		TotalReservedInCarts:      s.TotalReserved,
		TotalAvailableForPurchase: s.Available,
		IsOutOfStock:              s.IsOutOfStock,
		IsLowStock:                s.IsLowStock,
		DistributionCenters:       make([]types.CenterStock, 0, len(s.Centers)),
	}
	for _, c := range s.Centers {
		out.DistributionCenters = append(out.DistributionCenters, types.CenterStock{
			DistributionCenterID:   c.CenterID,
			DistributionCenterCode: c.CenterCode,
			DistributionCenterName: c.CenterName,
			City:                   c.City,
			PhysicalStock:          c.Physical,
			ReservedInCarts:        c.Reserved,
			AvailableForPurchase:   c.Available,
			IsOutOfStock:           c.IsOutOfStock,
			IsLowStock:             c.IsLowStock,
		})
	}
	return out
}

func toStockLevel(s domain.AvailabilitySnapshot, includeReserved, includeInTransit bool) types.ProductStockLevel {
	out := types.ProductStockLevel{
		ProductSKU:          s.SKU,
		TotalPhysical:       s.TotalPhysical,
		TotalAvailable:      s.Available,
		IsLowStock:          s.IsLowStock,
		IsOutOfStock:        s.IsOutOfStock,
		DistributionCenters: make([]types.CenterStockLevel, 0, len(s.Centers)),
	}
	if includeReserved {
		out.TotalReserved = intPtr(s.TotalReserved)
	}
	if includeInTransit {
		out.TotalInTransit = intPtr(s.TotalInTransit)
	}
	for _, c := range s.Centers {
		level := types.CenterStockLevel{
			DistributionCenterID:   c.CenterID,
			DistributionCenterCode: c.CenterCode,
			DistributionCenterName: c.CenterName,
			City:                   c.City,
			PhysicalStock:          c.Physical,
			AvailableStock:         c.Available,
			LowStockThreshold:      c.LowStockLimit,
			IsLowStock:             c.IsLowStock,
			IsOutOfStock:           c.IsOutOfStock,
		}
		if includeReserved {
			level.ReservedStock = intPtr(c.Reserved)
		}
		if includeInTransit {
			level.InTransitStock = intPtr(c.InTransit)
		}
		out.DistributionCenters = append(out.DistributionCenters, level)
	}
	return out
}

func toReservationItem(l domain.ReservationListing) types.ReservationItem {
	return types.ReservationItem{
		ID:                   l.Reservation.ID.String(),
		ProductSKU:           l.Reservation.SKU,
		QuantityReserved:     l.Reservation.Quantity,
		ExpiresAt:            l.Reservation.ExpiresAt,
		RemainingTimeSeconds: l.RemainingTimeSeconds,
		CreatedAt:            l.Reservation.CreatedAt,
		DistributionCenterID: l.Reservation.CenterID,
	}
}

func toReservationDetail(v domain.ReservationView, now time.Time) types.ReservationDetail {
	remaining := 0
	if v.State == domain.StateActive {
		remaining = v.RemainingSeconds(now)
	}
	return types.ReservationDetail{
		ID:                   v.ID.String(),
		ProductSKU:           v.SKU,
		DistributionCenterID: v.CenterID,
		UserID:               v.Owner.UserID,
		SessionID:            v.Owner.SessionID,
		Quantity:             v.Quantity,
		State:                v.State.String(),
		CreatedAt:            v.CreatedAt,
		ExpiresAt:            v.ExpiresAt,
		UpdatedAt:            v.UpdatedAt,
		RemainingTimeSeconds: remaining,
	}
}

func toStockRow(s domain.DistributionCenterStock) types.StockRow {
	return types.StockRow{
		ProductSKU:           s.SKU,
		DistributionCenterID: s.CenterID,
		PhysicalQuantity:     s.PhysicalQuantity,
		InTransitQuantity:    s.InTransitQuantity,
		UpdatedAt:            s.UpdatedAt,
	}
}

func toCenter(c domain.DistributionCenter) types.DistributionCenter {
	return types.DistributionCenter{
		ID:                c.ID,
		Code:              c.Code,
		Name:              c.Name,
		City:              c.City,
		LowStockThreshold: c.LowStockThreshold,
		LowStockPercent:   c.LowStockPercent,
	}
}

func fromCenter(c types.DistributionCenter) domain.DistributionCenter {
	return domain.DistributionCenter{
		ID:                c.ID,
		Code:              c.Code,
		Name:              c.Name,
		City:              c.City,
		LowStockThreshold: c.LowStockThreshold,
		LowStockPercent:   c.LowStockPercent,
	}
}

func intPtr(v int) *int {
	return &v
}
