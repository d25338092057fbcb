package commerce

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type ProductLister interface {
	ListAll(ctx context.Context) ([]models.Product, error)
}

type OrderLister interface {
	ListAll(ctx context.Context) ([]models.Order, error)
}

type UserCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Overview backs the admin dashboard: statistics and the low-stock report.
type Overview struct {
	products ProductLister
	orders   OrderLister
	users    UserCounter
	timeout  time.Duration
	logg     *logger.Logger
}

func NewOverview(products ProductLister, orderRows OrderLister, users UserCounter, timeout time.Duration, logg *logger.Logger) (*Overview, error) {
	if products == nil || orderRows == nil || users == nil {
		return nil, fmt.Errorf("overview requires product, order and user sources")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Overview{products: products, orders: orderRows, users: users, timeout: timeout, logg: logg}, nil
}

// Stats fetches the three collections in parallel and summarizes them.
func (o *Overview) Stats(ctx context.Context) (*Summary, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var (
		productRows []models.Product
		orderRows   []models.Order
		totalUsers  int64
	)
	g, gctx := errgroup.WithContext(callCtx)
	g.Go(func() error {
		var err error
		productRows, err = o.products.ListAll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		orderRows, err = o.orders.ListAll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		totalUsers, err = o.users.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		o.logg.Error(ctx, "load dashboard data", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dashboard data")
	}

	summary := Summarize(orderRows, productRows, totalUsers)
	return &summary, nil
}

// LowStock lists products at or below threshold.
func (o *Overview) LowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	if threshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold must not be negative")
	}
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	rows, err := o.products.ListAll(callCtx)
	if err != nil {
		o.logg.Error(ctx, "load products for low stock report", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	return LowStockProducts(rows, threshold), nil
}
