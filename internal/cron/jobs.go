package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/commerce"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type lowStockSource interface {
	LowStock(ctx context.Context, threshold int) ([]models.Product, error)
}

type statsSource interface {
	Stats(ctx context.Context) (*commerce.Summary, error)
}

// LowStockWatch publishes how many products are running out and warns about
// each of them.
type LowStockWatch struct {
	source    lowStockSource
	threshold int
	metrics   *metrics.JobMetrics
	logg      *logger.Logger
}

func NewLowStockWatch(source lowStockSource, threshold int, m *metrics.JobMetrics, logg *logger.Logger) (*LowStockWatch, error) {
	if source == nil {
		return nil, fmt.Errorf("low stock source required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &LowStockWatch{source: source, threshold: threshold, metrics: m, logg: logg}, nil
}

func (j *LowStockWatch) Name() string { return "low_stock_watch" }

func (j *LowStockWatch) Run(ctx context.Context) error {
	rows, err := j.source.LowStock(ctx, j.threshold)
	if err != nil {
		return err
	}
	j.metrics.SetLowStock(len(rows))
	for i := range rows {
		entry := j.logg.WithProductID(ctx, rows[i].ID.String())
		entry = j.logg.WithFields(entry, map[string]any{"name": rows[i].Name, "stock": rows[i].Stock})
		j.logg.Warn(entry, "product low on stock")
	}
	return nil
}

// OrderStatusWatch publishes the per status order counts.
type OrderStatusWatch struct {
	source  statsSource
	metrics *metrics.JobMetrics
}

func NewOrderStatusWatch(source statsSource, m *metrics.JobMetrics) (*OrderStatusWatch, error) {
	if source == nil {
		return nil, fmt.Errorf("stats source required")
	}
	return &OrderStatusWatch{source: source, metrics: m}, nil
}

func (j *OrderStatusWatch) Name() string { return "order_status_watch" }

func (j *OrderStatusWatch) Run(ctx context.Context) error {
	summary, err := j.source.Stats(ctx)
	if err != nil {
		return err
	}
	for status, count := range summary.CountsByStatus {
		j.metrics.SetOrdersByStatus(status.String(), count)
	}
	return nil
}
