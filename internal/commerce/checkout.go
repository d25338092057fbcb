package commerce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const DefaultTimeout = 5 * time.Second

type ProductFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error)
}

type CheckoutItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type CheckoutInput struct {
	CustomerRef string
	Items       []CheckoutItem
}

// Checkout turns a cart into a pending order. Names and prices are copied from
// the live catalog at this moment; stock is only checked, never reserved.
type Checkout struct {
	products ProductFinder
	orders   OrderCreator
	timeout  time.Duration
	logg     *logger.Logger
}

func NewCheckout(products ProductFinder, orderSvc OrderCreator, timeout time.Duration, logg *logger.Logger) (*Checkout, error) {
	if products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Checkout{products: products, orders: orderSvc, timeout: timeout, logg: logg}, nil
}

func (c *Checkout) PlaceOrder(ctx context.Context, input CheckoutInput) (*orders.OrderDTO, error) {
	if strings.TrimSpace(input.CustomerRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer reference is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "each item needs a product and a positive quantity").
				WithDetails(map[string]any{"item": i})
		}
	}

	ids := lo.Uniq(lo.Map(input.Items, func(item CheckoutItem, _ int) uuid.UUID { return item.ProductID }))
	catalog, err := c.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(catalog, func(p models.Product) uuid.UUID { return p.ID })

	lines := make([]models.OrderLine, 0, len(input.Items))
	for _, item := range input.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		lines = append(lines, models.OrderLine{
			ProductID:  product.ID,
			Name:       product.Name,
			Quantity:   item.Quantity,
			UnitAmount: product.Price,
		})
	}
	if err := CheckAvailability(lines, catalog); err != nil {
		return nil, err
	}

	order, err := c.orders.CreateOrder(ctx, orders.CreateOrderInput{
		CustomerRef: input.CustomerRef,
		Lines: lo.Map(lines, func(line models.OrderLine, _ int) orders.LineInput {
			return orders.LineInput{
				ProductID:  line.ProductID,
				Name:       line.Name,
				Quantity:   line.Quantity,
				UnitAmount: line.UnitAmount,
			}
		}),
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (c *Checkout) fetch(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := c.products.FindByIDs(callCtx, ids)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			c.logg.Warn(ctx, "checkout product lookup timed out")
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.Join(callCtx.Err(), err), "catalog did not answer in time")
		}
		c.logg.Error(ctx, "checkout product lookup failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}
	return rows, nil
}
