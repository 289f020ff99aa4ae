package domain

import (
	"math"
	"strings"
	"time"
)

const DefaultCenterID = 1

// NormalizeSKU trims and upper-cases a product SKU. Every read and write path
// goes through it so "abc-1" and "ABC-1 " address the same ledger row.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

type StockKey struct {
	SKU      string
	CenterID int
}

func NewStockKey(sku string, centerID int) StockKey {
	return StockKey{SKU: NormalizeSKU(sku), CenterID: centerID}
}

type DistributionCenter struct {
	ID                int     `json:"id"`
	Code              string  `json:"code"`
	Name              string  `json:"name"`
	City              string  `json:"city"`
	LowStockThreshold int     `json:"low_stock_threshold"`
	LowStockPercent   float64 `json:"low_stock_percent"`
}

// LowStockLimit is the largest available quantity still considered low for a
// center holding physical units. The absolute and percentage policies are
// combined by taking the larger limit.
func (c DistributionCenter) LowStockLimit(physical int) int {
	limit := c.LowStockThreshold
	if c.LowStockPercent > 0 && physical > 0 {
		if pct := int(math.Ceil(c.LowStockPercent * float64(physical))); pct > limit {
			limit = pct
		}
	}
	return limit
}

type DistributionCenterStock struct {
	SKU               string    `json:"sku"`
	CenterID          int       `json:"center_id"`
	CenterCode        string    `json:"center_code"`
	CenterName        string    `json:"center_name"`
	City              string    `json:"city"`
	PhysicalQuantity  int       `json:"physical_quantity"`
	InTransitQuantity int       `json:"in_transit_quantity"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (s DistributionCenterStock) Key() StockKey {
	return NewStockKey(s.SKU, s.CenterID)
}

func (s *DistributionCenterStock) ApplyCenter(c DistributionCenter) {
	s.CenterID = c.ID
	s.CenterCode = c.Code
	s.CenterName = c.Name
	s.City = c.City
}
