package inventory

import "github.com/angelmondragon/storefront-backend/pkg/enums"

// LowStockThreshold is the highest stock still reported as low.
const LowStockThreshold = 5

// Classify maps a stock count onto its availability band: 0 is out of stock,
// 1 through LowStockThreshold is low, anything above is in stock.
func Classify(stock int) enums.StockLevel {
	switch {
	case stock <= 0:
		return enums.StockLevelOutOfStock
	case stock <= LowStockThreshold:
		return enums.StockLevelLowStock
	default:
		return enums.StockLevelInStock
	}
}
