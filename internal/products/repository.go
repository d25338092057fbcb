package products

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Filter narrows catalog listings. Zero values mean "no constraint".
type Filter struct {
	Category string
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Page     pagination.Params
}

// Repository persists products. Stock is only written through AdjustStock.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn, now: time.Now}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update applies column updates to a product. The stock column is stripped so
// catalog edits can never overwrite a concurrent adjustment.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Product, error) {
	updates := make(map[string]any, len(fields)+1)
	for column, value := range fields {
		if column == "stock" {
			continue
		}
		updates[column] = value
	}
	updates["updated_at"] = r.now().UTC()

	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

// Delete hard-deletes a product. Order lines keep their own snapshot.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads the products that exist among ids; missing ids are simply absent.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

// List returns one page of products plus the total matching the filter.
func (r *Repository) List(ctx context.Context, filter Filter) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page.Normalize()
	var rows []models.Product
	err := query.
		Order("created_at DESC").
		Order("id ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListAll returns the whole catalog, used for summaries and stock reports.
func (r *Repository) ListAll(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

// Count returns how many products exist.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error
	return total, err
}

// Categories lists the distinct categories in use, alphabetically.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).
		Error
	return categories, err
}

// AdjustStock applies delta to the stored stock in one conditional UPDATE and
// returns the resulting value. A decrement that would go below zero changes
// nothing and yields a *db.StockShortageError; an increment past db.MaxStock
// yields db.ErrStockOverflow; an unknown product yields gorm.ErrRecordNotFound.
func (r *Repository) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int, error) {
	var stock int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.Product{}).Where("id = ?", productID)
		switch {
		case delta < 0:
			update = update.Where("stock >= ?", -delta)
		case delta > 0:
			if delta > db.MaxStock {
				return db.ErrStockOverflow
			}
			update = update.Where("stock <= ?", db.MaxStock-delta)
		}
		res := update.UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock + ?", delta),
			"updated_at": r.now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}

		var current models.Product
		if err := tx.Select("id", "stock").First(&current, "id = ?", productID).Error; err != nil {
			return err
		}
		if res.RowsAffected == 0 && delta > 0 {
			return db.ErrStockOverflow
		}
		if res.RowsAffected == 0 {
			return &db.StockShortageError{ProductID: productID, Available: current.Stock, Requested: -delta}
		}
		stock = current.Stock
		return nil
	})
	if err != nil {
		return 0, err
	}
	return stock, nil
}
