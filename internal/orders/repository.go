package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Filter narrows order listings.
type Filter struct {
	Status      *enums.OrderStatus
	CustomerRef string
	Page        pagination.Params
}

// Repository persists orders and their lines. Lines are written once, with the
// order, and never updated.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

// Create inserts the order and its lines atomically.
func (r *Repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	for i := range order.Lines {
		order.Lines[i].Position = i
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}
	order.Amount = ComputeTotal(order.Lines)
	return order, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return findByID(r.db.WithContext(ctx), id)
}

// FindByNumber looks an order up by its customer-facing number.
func (r *Repository) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := preloadLines(r.db.WithContext(ctx)).First(&order, "order_number = ?", number).Error
	if err != nil {
		return nil, err
	}
	order.Amount = ComputeTotal(order.Lines)
	return &order, nil
}

// List returns a page of orders, newest first, with the total matching the filter.
func (r *Repository) List(ctx context.Context, filter Filter) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if ref := normalizeCustomerRef(filter.CustomerRef); ref != "" {
		query = query.Where("customer_ref = ?", ref)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page.Normalize()
	var rows []models.Order
	err := preloadLines(query).
		Order("created_at DESC").
		Order("id ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	withAmounts(rows)
	return rows, total, nil
}

// ListAll returns every order with its lines, used for summaries.
func (r *Repository) ListAll(ctx context.Context) ([]models.Order, error) {
	var rows []models.Order
	if err := preloadLines(r.db.WithContext(ctx)).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	withAmounts(rows)
	return rows, nil
}

// UpdateStatus moves the order from one status to another only if it still
// holds from. The authoritative order is returned either way; when the stored
// status differed the error is db.ErrStatusConflict and nothing was written.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, at time.Time) (*models.Order, error) {
	var current *models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", id, from).
			UpdateColumns(map[string]any{"status": to, "updated_at": at})
		if res.Error != nil {
			return res.Error
		}

		order, err := findByID(tx, id)
		if err != nil {
			return err
		}
		current = order
		if res.RowsAffected == 0 {
			return db.ErrStatusConflict
		}
		return nil
	})
	return current, err
}

func findByID(conn *gorm.DB, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := preloadLines(conn).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	order.Amount = ComputeTotal(order.Lines)
	return &order, nil
}

func preloadLines(conn *gorm.DB) *gorm.DB {
	return conn.Preload("Lines", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	})
}

func withAmounts(rows []models.Order) {
	for i := range rows {
		rows[i].Amount = ComputeTotal(rows[i].Lines)
	}
}

func normalizeCustomerRef(ref string) string {
	return strings.ToLower(strings.TrimSpace(ref))
}
