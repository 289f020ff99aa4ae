package domain

type CenterAvailability struct {
	CenterID      int    `json:"center_id"`
	CenterCode    string `json:"center_code"`
	CenterName    string `json:"center_name"`
	City          string `json:"city"`
	Physical      int    `json:"physical"`
	Reserved      int    `json:"reserved"`
	InTransit     int    `json:"in_transit"`
	Available     int    `json:"available"`
	LowStockLimit int    `json:"low_stock_limit"`
	IsOutOfStock  bool   `json:"is_out_of_stock"`
	IsLowStock    bool   `json:"is_low_stock"`
}

// AvailabilitySnapshot is derived on every read and never stored. In-transit
// units are reported but never counted as purchasable.
type AvailabilitySnapshot struct {
	SKU            string               `json:"sku"`
	TotalPhysical  int                  `json:"total_physical"`
	TotalReserved  int                  `json:"total_reserved"`
	TotalInTransit int                  `json:"total_in_transit"`
	Available      int                  `json:"available"`
	IsOutOfStock   bool                 `json:"is_out_of_stock"`
	IsLowStock     bool                 `json:"is_low_stock"`
	Centers        []CenterAvailability `json:"centers"`
}

func NewCenterAvailability(center DistributionCenter, physical, reserved, inTransit int) CenterAvailability {
	available := physical - reserved
	if available < 0 {
		available = 0
	}
	limit := center.LowStockLimit(physical)
	return CenterAvailability{
		CenterID:      center.ID,
		CenterCode:    center.Code,
		CenterName:    center.Name,
		City:          center.City,
		Physical:      physical,
		Reserved:      reserved,
		InTransit:     inTransit,
		Available:     available,
		LowStockLimit: limit,
		IsOutOfStock:  available == 0,
		IsLowStock:    available > 0 && available <= limit,
	}
}

// Aggregate sums a SKU's center rows. The SKU-level low-stock limit is the sum
// of the center limits.
func Aggregate(sku string, centers []CenterAvailability) AvailabilitySnapshot {
	snapshot := AvailabilitySnapshot{SKU: NormalizeSKU(sku), Centers: centers}
	limit := 0
	for _, c := range centers {
		snapshot.TotalPhysical += c.Physical
		snapshot.TotalReserved += c.Reserved
		snapshot.TotalInTransit += c.InTransit
		limit += c.LowStockLimit
	}
	snapshot.Available = snapshot.TotalPhysical - snapshot.TotalReserved
	if snapshot.Available < 0 {
		snapshot.Available = 0
	}
	snapshot.IsOutOfStock = snapshot.Available == 0
	snapshot.IsLowStock = snapshot.Available > 0 && snapshot.Available <= limit
	return snapshot
}

type AvailabilityReport struct {
	Products []AvailabilitySnapshot `json:"products"`
	NotFound []string               `json:"not_found,omitempty"`
}
