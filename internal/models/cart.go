package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccountCart struct {
	ID        uuid.UUID         `gorm:"primaryKey"`
	AccountID uuid.UUID         `gorm:"uniqueIndex;not null"`
	Lines     []AccountCartLine `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	UpdatedAt time.Time
}

func (c *AccountCart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (AccountCart) TableName() string {
	return "account_carts"
}

type AccountCartLine struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	CartID    uuid.UUID `gorm:"uniqueIndex:idx_cart_product;not null"`
	ProductID string    `gorm:"uniqueIndex:idx_cart_product;not null"`
	Quantity  int       `gorm:"not null;default:1;check:quantity>0"`
	Position  int       `gorm:"not null"`
}

func (l *AccountCartLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (AccountCartLine) TableName() string {
	return "account_cart_lines"
}

type AccountWishlist struct {
	ID        uuid.UUID              `gorm:"primaryKey"`
	AccountID uuid.UUID              `gorm:"uniqueIndex;not null"`
	Entries   []AccountWishlistEntry `gorm:"foreignKey:WishlistID;constraint:OnDelete:CASCADE"`
	UpdatedAt time.Time
}

func (w *AccountWishlist) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

func (AccountWishlist) TableName() string {
	return "account_wishlists"
}

type AccountWishlistEntry struct {
	ID         uuid.UUID `gorm:"primaryKey"`
	WishlistID uuid.UUID `gorm:"uniqueIndex:idx_wishlist_product;not null"`
	ProductID  string    `gorm:"uniqueIndex:idx_wishlist_product;not null"`
	Position   int       `gorm:"not null"`
}

func (e *AccountWishlistEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (AccountWishlistEntry) TableName() string {
	return "account_wishlist_entries"
}
