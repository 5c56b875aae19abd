package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OrderStatusPending = "pending"
	CurrencyUSD        = "USD"
)

type Order struct {
	ID            uuid.UUID   `gorm:"primaryKey"             json:"id"`
	Number        string      `gorm:"uniqueIndex;not null"   json:"order_number"`
	AccountID     *uuid.UUID  `gorm:"index"                  json:"account_id,omitempty"`
	Status        string      `gorm:"not null"               json:"status"`
	Subtotal      float64     `gorm:"not null"               json:"subtotal"`
	Shipping      float64     `gorm:"not null"               json:"shipping"`
	Total         float64     `gorm:"not null"               json:"total"`
	Currency      string      `gorm:"not null"               json:"currency"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail *string     `json:"customer_email,omitempty"`
	CustomerPhone *string     `json:"customer_phone,omitempty"`
	Address       *string     `json:"address,omitempty"`
	City          *string     `json:"city,omitempty"`
	Zip           *string     `json:"zip,omitempty"`
	Items         []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt     time.Time   `json:"created_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID        uuid.UUID `gorm:"primaryKey"                  json:"id"`
	OrderID   uuid.UUID `gorm:"index;not null"              json:"order_id"`
	ProductID string    `gorm:"not null"                    json:"product_id"`
	Name      string    `gorm:"not null"                    json:"name"`
	Price     float64   `gorm:"not null"                    json:"price"`
	Quantity  int       `gorm:"not null;check:quantity>0"   json:"quantity"`
	LineTotal float64   `gorm:"not null"                    json:"line_total"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (OrderItem) TableName() string {
	return "order_items"
}

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&Account{}, &IdentityLink{}, &RefreshToken{},
		&AccountCart{}, &AccountCartLine{},
		&AccountWishlist{}, &AccountWishlistEntry{},
		&Product{}, &Category{},
		&Order{}, &OrderItem{},
	}
}
