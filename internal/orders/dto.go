package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderLineDTO is a purchased line as shown to customers and staff.
type OrderLineDTO struct {
	ProductID  uuid.UUID       `json:"product_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitAmount decimal.Decimal `json:"unit_amount"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// OrderDTO is the order payload returned to clients. Amount is always derived
// from the lines.
type OrderDTO struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"order_number"`
	CustomerRef string            `json:"customer_ref"`
	Status      enums.OrderStatus `json:"status"`
	Lines       []OrderLineDTO    `json:"lines"`
	Amount      decimal.Decimal   `json:"amount"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type OrderListResult struct {
	Orders      []OrderDTO `json:"orders"`
	TotalOrders int64      `json:"total_orders"`
	TotalPages  int        `json:"total_pages"`
	Page        int        `json:"page"`
	Limit       int        `json:"limit"`
}

// TransitionResult reports the order after a status request. Changed is false
// when the order already held the requested status.
type TransitionResult struct {
	Order   *OrderDTO `json:"order"`
	Changed bool      `json:"changed"`
}

func NewOrderDTO(order *models.Order) *OrderDTO {
	return &OrderDTO{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		CustomerRef: order.CustomerRef,
		Status:      order.Status,
		Lines: lo.Map(order.Lines, func(line models.OrderLine, _ int) OrderLineDTO {
			return OrderLineDTO{
				ProductID:  line.ProductID,
				Name:       line.Name,
				Quantity:   line.Quantity,
				UnitAmount: line.UnitAmount,
				Subtotal:   line.Subtotal(),
			}
		}),
		Amount:    ComputeTotal(order.Lines),
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}
