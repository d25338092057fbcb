package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. Stock only moves through signed adjustments.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string           `gorm:"column:name;not null" json:"name"`
	Category    string           `gorm:"column:category;not null;index" json:"category"`
	Description string           `gorm:"column:description;not null;default:''" json:"description"`
	Price       decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	OldPrice    *decimal.Decimal `gorm:"column:old_price;type:numeric(12,2)" json:"old_price,omitempty"`
	ImageURL    string           `gorm:"column:image_url;not null;default:''" json:"image_url"`
	Stock       int              `gorm:"column:stock;not null;default:0;check:products_stock_non_negative,stock >= 0" json:"stock"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
