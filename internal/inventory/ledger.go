package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const DefaultTimeout = 5 * time.Second

// StockAdjuster applies a signed delta to a product's stored stock and returns
// the resulting value. It must refuse decrements that would go negative.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int, error)
}

// Adjustment is the authoritative outcome of a successful stock change.
type Adjustment struct {
	ProductID uuid.UUID        `json:"product_id"`
	Stock     int              `json:"stock"`
	Level     enums.StockLevel `json:"level"`
}

// Ledger changes stock by signed deltas. It never reads, computes and writes
// back a value; the store applies each delta to whatever it currently holds.
type Ledger struct {
	store   StockAdjuster
	timeout time.Duration
	metrics *metrics.CommerceMetrics
	logg    *logger.Logger
}

type Option func(*Ledger)

// WithTimeout bounds each store call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.timeout = d
		}
	}
}

func WithMetrics(m *metrics.CommerceMetrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

func WithLogger(logg *logger.Logger) Option {
	return func(l *Ledger) {
		if logg != nil {
			l.logg = logg
		}
	}
}

func NewLedger(store StockAdjuster, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("stock store required")
	}
	l := &Ledger{
		store:   store,
		timeout: DefaultTimeout,
		logg:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Adjust moves a product's stock by quantity in direction and returns the
// stock the store now holds.
func (l *Ledger) Adjust(ctx context.Context, productID uuid.UUID, quantity int, direction enums.StockDirection) (*Adjustment, error) {
	adj, err := l.adjust(ctx, productID, quantity, direction)
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = string(pkgerrors.CodeOf(err))
	}
	label := direction.String()
	if !direction.IsValid() {
		label = "invalid"
	}
	l.metrics.IncStockAdjustment(label, outcome)
	return adj, err
}

func (l *Ledger) adjust(ctx context.Context, productID uuid.UUID, quantity int, direction enums.StockDirection) (*Adjustment, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").
			WithDetails(map[string]any{"quantity": quantity})
	}
	if quantity > db.MaxStock {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the maximum stock").
			WithDetails(map[string]any{"quantity": quantity, "max": db.MaxStock})
	}
	if !direction.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "direction must be increase or decrease").
			WithDetails(map[string]any{"direction": direction.String()})
	}

	ctx = l.logg.WithProductID(ctx, productID.String())
	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	stock, err := l.store.AdjustStock(callCtx, productID, direction.Sign()*quantity)
	l.metrics.ObserveStoreLatency("adjust_stock", time.Since(start))
	if err != nil {
		// some drivers report an expired deadline as a generic connection error
		if ctxErr := callCtx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, l.mapError(ctx, err, productID, quantity)
	}

	l.logg.Debug(l.logg.WithFields(ctx, map[string]any{"direction": direction.String(), "quantity": quantity, "stock": stock}), "stock adjusted")
	return &Adjustment{ProductID: productID, Stock: stock, Level: Classify(stock)}, nil
}

func (l *Ledger) mapError(ctx context.Context, err error, productID uuid.UUID, quantity int) error {
	var shortage *db.StockShortageError
	switch {
	case errors.As(err, &shortage):
		return pkgerrors.Wrap(pkgerrors.CodeInsufficientStock, err, "not enough stock to decrease").
			WithDetails(map[string]any{
				"product_id": productID,
				"available":  shortage.Available,
				"requested":  quantity,
			})
	case errors.Is(err, db.ErrInsufficientStock):
		return pkgerrors.Wrap(pkgerrors.CodeInsufficientStock, err, "not enough stock to decrease").
			WithDetails(map[string]any{"product_id": productID, "requested": quantity})
	case db.IsCheckViolation(err, "products_stock_non_negative"):
		return pkgerrors.Wrap(pkgerrors.CodeInsufficientStock, err, "not enough stock to decrease").
			WithDetails(map[string]any{"product_id": productID, "requested": quantity})
	case errors.Is(err, db.ErrStockOverflow), db.IsNumericOutOfRange(err):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "stock would exceed the maximum").
			WithDetails(map[string]any{"product_id": productID, "requested": quantity, "max": db.MaxStock})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		l.logg.Warn(ctx, "stock adjustment timed out")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stock store did not answer in time")
	default:
		l.logg.Error(ctx, "stock adjustment failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}
}
