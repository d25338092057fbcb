package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ProductDTO is the product payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `json:"price"`
	OldPrice    *decimal.Decimal `json:"old_price,omitempty"`
	ImageURL    string           `json:"image_url"`
	Stock       int              `json:"stock"`
	StockLevel  enums.StockLevel `json:"stock_level"`
	StockLabel  string           `json:"stock_label"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ProductListResult is one page of the catalog.
type ProductListResult struct {
	Products      []ProductDTO `json:"products"`
	TotalProducts int64        `json:"total_products"`
	TotalPages    int          `json:"total_pages"`
	Page          int          `json:"page"`
	Limit         int          `json:"limit"`
}

func NewProductDTO(product *models.Product) *ProductDTO {
	level := inventory.Classify(product.Stock)
	return &ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Category:    product.Category,
		Description: product.Description,
		Price:       product.Price,
		OldPrice:    product.OldPrice,
		ImageURL:    product.ImageURL,
		Stock:       product.Stock,
		StockLevel:  level,
		StockLabel:  level.Label(),
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}

func newProductDTOs(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewProductDTO(&rows[i]))
	}
	return out
}
