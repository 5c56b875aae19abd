package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProductStatusActive = "active"
	DefaultProductImage = "./assets/images/product-1.png"
)

type Product struct {
	ID           uuid.UUID `gorm:"primaryKey"                    json:"id"`
	Name         string    `gorm:"not null"                      json:"name"`
	Slug         string    `gorm:"uniqueIndex;not null"          json:"slug"`
	Price        float64   `gorm:"not null;default:0"            json:"price"`
	CompareAt    *float64  `json:"compare_at,omitempty"`
	Image        string    `gorm:"not null;default:''"           json:"image"`
	CategorySlug *string   `gorm:"index"                         json:"category_slug,omitempty"`
	Status       string    `gorm:"index;not null;default:active" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = ProductStatusActive
	}
	return nil
}

func (Product) TableName() string {
	return "products"
}

type Category struct {
	ID        uuid.UUID `gorm:"primaryKey"            json:"id"`
	Name      string    `gorm:"not null"              json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null"  json:"slug"`
	SortOrder int       `gorm:"not null;default:0"    json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (Category) TableName() string {
	return "categories"
}
