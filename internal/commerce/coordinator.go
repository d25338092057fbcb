// Package commerce holds the queries and checks that span products and orders.
// Everything here works on collections the caller already fetched.
package commerce

import (
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Summary is the back-office statistics view.
type Summary struct {
	TotalOrders    int                       `json:"total_orders"`
	TotalProducts  int                       `json:"total_products"`
	TotalUsers     int64                     `json:"total_users"`
	TotalEarnings  decimal.Decimal           `json:"total_earnings"`
	CountsByStatus map[enums.OrderStatus]int `json:"counts_by_status"`
}

// Summarize aggregates already-fetched orders and products. Cancelled orders
// count towards their status but not towards earnings. Rows holding a status
// outside the known set still count as orders but get no status bucket.
func Summarize(orderRows []models.Order, products []models.Product, totalUsers int64) Summary {
	counts := make(map[enums.OrderStatus]int, len(enums.OrderStatuses()))
	for _, status := range enums.OrderStatuses() {
		counts[status] = 0
	}

	earnings := decimal.Zero
	for _, order := range orderRows {
		if _, known := counts[order.Status]; known {
			counts[order.Status]++
		}
		if order.Status == enums.OrderStatusCancelled {
			continue
		}
		earnings = earnings.Add(orders.ComputeTotal(order.Lines))
	}

	return Summary{
		TotalOrders:    len(orderRows),
		TotalProducts:  len(products),
		TotalUsers:     totalUsers,
		TotalEarnings:  earnings,
		CountsByStatus: counts,
	}
}

// LowStockProducts returns products at or below threshold, lowest stock first
// and ties broken by id. A threshold of zero or less uses the standard low-stock
// threshold.
func LowStockProducts(products []models.Product, threshold int) []models.Product {
	if threshold <= 0 {
		threshold = inventory.LowStockThreshold
	}
	low := lo.Filter(products, func(p models.Product, _ int) bool {
		return p.Stock <= threshold
	})
	sort.SliceStable(low, func(i, j int) bool {
		if low[i].Stock != low[j].Stock {
			return low[i].Stock < low[j].Stock
		}
		return low[i].ID.String() < low[j].ID.String()
	})
	return low
}

// Shortage describes one product a set of lines asks too much of.
type Shortage struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Available int       `json:"available"`
	Requested int       `json:"requested"`
}

// CheckAvailability verifies the lines can be served from the products' known
// stock without changing anything. Quantities for the same product are summed.
func CheckAvailability(lines []models.OrderLine, products []models.Product) error {
	known := lo.KeyBy(products, func(p models.Product) uuid.UUID { return p.ID })

	requested := map[uuid.UUID]int{}
	order := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := known[line.ProductID]; !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if _, seen := requested[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		requested[line.ProductID] += line.Quantity
	}

	var shortages []Shortage
	for _, id := range order {
		product := known[id]
		if requested[id] > product.Stock {
			shortages = append(shortages, Shortage{
				ProductID: id,
				Name:      product.Name,
				Available: product.Stock,
				Requested: requested[id],
			})
		}
	}
	if len(shortages) > 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for some items").
			WithDetails(map[string]any{"shortages": shortages})
	}
	return nil
}
