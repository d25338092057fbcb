package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const (
	DefaultTimeout = 5 * time.Second

	orderNumberPrefix   = "ORD"
	orderNumberAttempts = 3
)

// Service drives the order lifecycle.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	// GetOrderByNumber resolves the customer-facing order number.
	GetOrderByNumber(ctx context.Context, number string) (*OrderDTO, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*OrderListResult, error)
	ListByCustomer(ctx context.Context, customerRef string, page pagination.Params) (*OrderListResult, error)
	// Transition moves an order the caller already holds to a new status.
	Transition(ctx context.Context, order *models.Order, to enums.OrderStatus) (*TransitionResult, error)
	// ChangeStatus loads the order and transitions it.
	ChangeStatus(ctx context.Context, id uuid.UUID, to enums.OrderStatus) (*TransitionResult, error)
}

// Store is the persistence surface the order service needs.
type Store interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
	List(ctx context.Context, filter Filter) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, at time.Time) (*models.Order, error)
}

type LineInput struct {
	ProductID  uuid.UUID
	Name       string
	Quantity   int
	UnitAmount decimal.Decimal
}

type CreateOrderInput struct {
	CustomerRef string
	Lines       []LineInput
}

type ListOrdersInput struct {
	Status *enums.OrderStatus
	Page   pagination.Params
}

type service struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
	newID   func() uuid.UUID
	metrics *metrics.CommerceMetrics
	logg    *logger.Logger
}

type Option func(*service)

func WithTimeout(d time.Duration) Option {
	return func(s *service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how order ids, and so order numbers, are minted.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(s *service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func WithMetrics(m *metrics.CommerceMetrics) Option {
	return func(s *service) { s.metrics = m }
}

func WithLogger(logg *logger.Logger) Option {
	return func(s *service) {
		if logg != nil {
			s.logg = logg
		}
	}
}

func NewService(store Store, opts ...Option) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("order store required")
	}
	s := &service{
		store:   store,
		timeout: DefaultTimeout,
		now:     time.Now,
		newID:   uuid.New,
		logg:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	customerRef := normalizeCustomerRef(input.CustomerRef)
	if customerRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer reference is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one line")
	}

	lines := make([]models.OrderLine, 0, len(input.Lines))
	for i, line := range input.Lines {
		if err := validateLine(i, line); err != nil {
			return nil, err
		}
		lines = append(lines, models.OrderLine{
			ProductID:  line.ProductID,
			Name:       strings.TrimSpace(line.Name),
			Quantity:   line.Quantity,
			UnitAmount: line.UnitAmount,
		})
	}

	var lastErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		now := s.now().UTC()
		id := s.newID()
		order := &models.Order{
			ID:          id,
			OrderNumber: orderNumber(now, id),
			CustomerRef: customerRef,
			Status:      enums.OrderStatusPending,
			Lines:       cloneLines(lines),
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		created, err := s.callCreate(ctx, order)
		if err == nil {
			ctx = s.logg.WithOrderID(ctx, created.ID.String())
			s.logg.Info(s.logg.WithField(ctx, "order_number", created.OrderNumber), "order created")
			return NewOrderDTO(created), nil
		}
		if !db.IsUniqueViolation(err, "") {
			return nil, s.mapError(ctx, err, "create order")
		}
		lastErr = err
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate an order number")
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(order), nil
}

func (s *service) GetOrderByNumber(ctx context.Context, number string) (*OrderDTO, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	order, err := s.store.FindByNumber(callCtx, number)
	s.metrics.ObserveStoreLatency("get_order", time.Since(start))
	if err != nil {
		return nil, s.mapError(ctx, withDeadline(callCtx, err), "load order")
	}
	return NewOrderDTO(order), nil
}

func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (*OrderListResult, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": input.Status.String()})
	}
	return s.list(ctx, Filter{Status: input.Status, Page: input.Page})
}

func (s *service) ListByCustomer(ctx context.Context, customerRef string, page pagination.Params) (*OrderListResult, error) {
	ref := normalizeCustomerRef(customerRef)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer reference is required")
	}
	return s.list(ctx, Filter{CustomerRef: ref, Page: page})
}

func (s *service) ChangeStatus(ctx context.Context, id uuid.UUID, to enums.OrderStatus) (*TransitionResult, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": to.String()})
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Transition(ctx, order, to)
}

func (s *service) Transition(ctx context.Context, order *models.Order, to enums.OrderStatus) (*TransitionResult, error) {
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	from := order.Status
	result, err := s.transition(ctx, order, to)
	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = string(pkgerrors.CodeOf(err))
	case !result.Changed:
		outcome = "noop"
	}
	label := to.String()
	if !to.IsValid() {
		label = "invalid"
	}
	s.metrics.IncTransition(from.String(), label, outcome)
	return result, err
}

func (s *service) transition(ctx context.Context, order *models.Order, to enums.OrderStatus) (*TransitionResult, error) {
	from := order.Status
	changed, err := CheckTransition(from, to)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &TransitionResult{Order: NewOrderDTO(order), Changed: false}, nil
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	updated, err := s.store.UpdateStatus(callCtx, order.ID, from, to, s.now().UTC())
	s.metrics.ObserveStoreLatency("update_order_status", time.Since(start))
	switch {
	case err == nil:
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"from": from.String(), "to": to.String()}), "order status changed")
		return &TransitionResult{Order: NewOrderDTO(updated), Changed: true}, nil
	case errors.Is(err, db.ErrStatusConflict) && updated != nil:
		return s.resolveConflict(ctx, updated, from, to)
	default:
		err = withDeadline(callCtx, err)
		return nil, s.mapError(ctx, err, "update order status")
	}
}

// resolveConflict decides the outcome once the store reports that the order no
// longer held the status the caller saw.
func (s *service) resolveConflict(ctx context.Context, current *models.Order, expected, to enums.OrderStatus) (*TransitionResult, error) {
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"expected": expected.String(),
		"current":  current.Status.String(),
		"to":       to.String(),
	}), "order status changed concurrently")

	switch {
	case current.Status == to:
		return &TransitionResult{Order: NewOrderDTO(current), Changed: false}, nil
	case current.Status.IsTerminal():
		return nil, terminalViolation(current.Status, to)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently").
			WithDetails(map[string]any{"expected": expected, "current": current.Status, "requested": to})
	}
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	order, err := s.store.FindByID(callCtx, id)
	s.metrics.ObserveStoreLatency("get_order", time.Since(start))
	if err != nil {
		return nil, s.mapError(ctx, withDeadline(callCtx, err), "load order")
	}
	return order, nil
}

func (s *service) list(ctx context.Context, filter Filter) (*OrderListResult, error) {
	filter.Page = filter.Page.Normalize()
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	rows, total, err := s.store.List(callCtx, filter)
	s.metrics.ObserveStoreLatency("list_orders", time.Since(start))
	if err != nil {
		return nil, s.mapError(ctx, withDeadline(callCtx, err), "list orders")
	}

	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewOrderDTO(&rows[i]))
	}
	return &OrderListResult{
		Orders:      out,
		TotalOrders: total,
		TotalPages:  pagination.TotalPages(total, filter.Page.Limit),
		Page:        filter.Page.Page,
		Limit:       filter.Page.Limit,
	}, nil
}

func (s *service) callCreate(ctx context.Context, order *models.Order) (*models.Order, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	created, err := s.store.Create(callCtx, order)
	s.metrics.ObserveStoreLatency("create_order", time.Since(start))
	if err != nil {
		return nil, withDeadline(callCtx, err)
	}
	return created, nil
}

func (s *service) mapError(ctx context.Context, err error, action string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.logg.Warn(ctx, action+" timed out")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order store did not answer in time")
	default:
		s.logg.Error(ctx, action+" failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
	}
}

// withDeadline keeps an expired deadline visible when a driver reports it as a
// plain connection error.
func withDeadline(callCtx context.Context, err error) error {
	if ctxErr := callCtx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}

func validateLine(index int, line LineInput) error {
	details := map[string]any{"line": index}
	switch {
	case line.ProductID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "line product id required").WithDetails(details)
	case strings.TrimSpace(line.Name) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "line name required").WithDetails(details)
	case line.Quantity <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be greater than zero").WithDetails(details)
	case line.UnitAmount.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "line unit amount must not be negative").WithDetails(details)
	}
	return nil
}

// orderNumber renders ORD-YYYYMMDD-XXXXXXXX from the creation day and the id.
func orderNumber(at time.Time, id uuid.UUID) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, at.Format("20060102"), suffix)
}

func cloneLines(lines []models.OrderLine) []models.OrderLine {
	out := make([]models.OrderLine, len(lines))
	copy(out, lines)
	return out
}
