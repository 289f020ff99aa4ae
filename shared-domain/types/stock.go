package types

import "time"

type CenterStock struct {
	DistributionCenterID   int    `json:"distribution_center_id"`
	DistributionCenterCode string `json:"distribution_center_code"`
	DistributionCenterName string `json:"distribution_center_name"`
	City                   string `json:"city"`
	PhysicalStock          int    `json:"physical_stock"`
	ReservedInCarts        int    `json:"reserved_in_carts"`
	AvailableForPurchase   int    `json:"available_for_purchase"`
	IsOutOfStock           bool   `json:"is_out_of_stock"`
	IsLowStock             bool   `json:"is_low_stock"`
}

type RealtimeStock struct {
	ProductSKU                string        `json:"product_sku"`
	TotalPhysicalStock        int           `json:"total_physical_stock"`
	TotalReservedInCarts      int           `json:"total_reserved_in_carts"`
	TotalAvailableForPurchase int           `json:"total_available_for_purchase"`
	IsOutOfStock              bool          `json:"is_out_of_stock"`
	IsLowStock                bool          `json:"is_low_stock"`
	DistributionCenters       []CenterStock `json:"distribution_centers"`
}

type RealtimeStockResponse struct {
	Success bool `json:"success"`
	RealtimeStock
}

type MultiRealtimeStockResponse struct {
	Success       bool            `json:"success"`
	Products      []RealtimeStock `json:"products"`
	TotalProducts int             `json:"total_products"`
	NotFound      []string        `json:"not_found,omitempty"`
}

// CenterStockLevel omits reserved and in-transit figures unless requested.
type CenterStockLevel struct {
	DistributionCenterID   int    `json:"distribution_center_id"`
	DistributionCenterCode string `json:"distribution_center_code"`
	DistributionCenterName string `json:"distribution_center_name"`
	City                   string `json:"city"`
	PhysicalStock          int    `json:"physical_stock"`
	AvailableStock         int    `json:"available_stock"`
	ReservedStock          *int   `json:"reserved_stock,omitempty"`
	InTransitStock         *int   `json:"in_transit_stock,omitempty"`
	LowStockThreshold      int    `json:"low_stock_threshold"`
	IsLowStock             bool   `json:"is_low_stock"`
	IsOutOfStock           bool   `json:"is_out_of_stock"`
}

type ProductStockLevel struct {
	ProductSKU          string             `json:"product_sku"`
	TotalPhysical       int                `json:"total_physical"`
	TotalAvailable      int                `json:"total_available"`
	TotalReserved       *int               `json:"total_reserved,omitempty"`
	TotalInTransit      *int               `json:"total_in_transit,omitempty"`
	IsLowStock          bool               `json:"is_low_stock"`
	IsOutOfStock        bool               `json:"is_out_of_stock"`
	DistributionCenters []CenterStockLevel `json:"distribution_centers"`
}

type StockLevelResponse struct {
	Success bool `json:"success"`
	ProductStockLevel
}

type MultiStockLevelResponse struct {
	Success       bool                `json:"success"`
	Products      []ProductStockLevel `json:"products"`
	TotalProducts int                 `json:"total_products"`
	NotFound      []string            `json:"not_found,omitempty"`
}

type UpsertStockRequest struct {
	ProductSKU           string `json:"product_sku"`
	DistributionCenterID int    `json:"distribution_center_id"`
	PhysicalQuantity     int    `json:"physical_quantity"`
	InTransitQuantity    int    `json:"in_transit_quantity"`
}

type StockRow struct {
	ProductSKU           string    `json:"product_sku"`
	DistributionCenterID int       `json:"distribution_center_id"`
	PhysicalQuantity     int       `json:"physical_quantity"`
	InTransitQuantity    int       `json:"in_transit_quantity"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type DistributionCenter struct {
	ID                int     `json:"id"`
	Code              string  `json:"code"`
	Name              string  `json:"name"`
	City              string  `json:"city"`
	LowStockThreshold int     `json:"low_stock_threshold"`
	LowStockPercent   float64 `json:"low_stock_percent"`
}

type ReservationDetail struct {
	ID                   string    `json:"id"`
	ProductSKU           string    `json:"product_sku"`
	DistributionCenterID int       `json:"distribution_center_id"`
	UserID               string    `json:"user_id"`
	SessionID            string    `json:"session_id"`
	Quantity             int       `json:"quantity"`
	State                string    `json:"state"`
	CreatedAt            time.Time `json:"created_at"`
	ExpiresAt            time.Time `json:"expires_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	RemainingTimeSeconds int       `json:"remaining_time_seconds"`
}
