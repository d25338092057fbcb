package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is a customer purchase. Lines never change after creation and the
// amount is derived from them whenever the order is read.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderNumber string            `gorm:"column:order_number;not null;uniqueIndex" json:"order_number"`
	CustomerRef string            `gorm:"column:customer_ref;not null;index" json:"customer_ref"`
	Status      enums.OrderStatus `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	Lines       []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines"`
	Amount      decimal.Decimal   `gorm:"-" json:"amount"`
	CreatedAt   time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderLine snapshots a product's name and price at purchase time. There is no
// foreign key to products so deleting a product leaves history intact.
type OrderLine struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"-"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" json:"-"`
	Position   int             `gorm:"column:position;not null" json:"-"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Name       string          `gorm:"column:name;not null" json:"name"`
	Quantity   int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitAmount decimal.Decimal `gorm:"column:unit_amount;type:numeric(12,2);not null" json:"unit_amount"`
}

func (OrderLine) TableName() string { return "order_lines" }

func (l *OrderLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Subtotal is unit amount times quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitAmount.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
