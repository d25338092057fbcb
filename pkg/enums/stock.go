package enums

import (
	"fmt"
	"strings"
)

// StockDirection is the sign of a stock adjustment.
type StockDirection string

const (
	StockIncrease StockDirection = "increase"
	StockDecrease StockDirection = "decrease"
)

var validStockDirections = []StockDirection{StockIncrease, StockDecrease}

func (d StockDirection) String() string {
	return string(d)
}

func (d StockDirection) IsValid() bool {
	for _, candidate := range validStockDirections {
		if candidate == d {
			return true
		}
	}
	return false
}

// Sign returns +1 for increases, -1 for decreases and 0 otherwise.
func (d StockDirection) Sign() int {
	switch d {
	case StockIncrease:
		return 1
	case StockDecrease:
		return -1
	default:
		return 0
	}
}

func ParseStockDirection(value string) (StockDirection, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validStockDirections {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock direction %q", value)
}

// StockLevel is the coarse availability band shown to shoppers and staff.
type StockLevel string

const (
	StockLevelOutOfStock StockLevel = "out_of_stock"
	StockLevelLowStock   StockLevel = "low_stock"
	StockLevelInStock    StockLevel = "in_stock"
)

func (l StockLevel) String() string {
	return string(l)
}

// Label is the human wording used on product pages.
func (l StockLevel) Label() string {
	switch l {
	case StockLevelOutOfStock:
		return "Out of Stock"
	case StockLevelLowStock:
		return "Low Stock"
	case StockLevelInStock:
		return "In Stock"
	default:
		return ""
	}
}
