package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product := models.Product{}
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

type ProductFilter struct {
	Query  string
	Status string
	IDs    []uuid.UUID
	Offset int
	Limit  int
}

func (f ProductFilter) scope(db *gorm.DB) *gorm.DB {
	if s := strings.TrimSpace(f.Query); s != "" {
		pattern := likePattern(strings.ToLower(s))
		db = db.Where("LOWER(name) LIKE ? OR LOWER(slug) LIKE ?", pattern, pattern)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.IDs != nil {
		db = db.Where("id IN ?", f.IDs)
	}
	return db
}

func (r *GormRepo) ListProducts(ctx context.Context, f ProductFilter) (int64, []models.Product, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Scopes(f.scope).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	items := []models.Product{}
	if err := r.DB.WithContext(ctx).
		Model(&models.Product{}).
		Scopes(f.scope).
		Order("created_at DESC").
		Offset(f.Offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return translate(r.DB.WithContext(ctx).Create(prod).Error)
}

type ProductPatch struct {
	Name         *string
	Slug         *string
	Price        *float64
	CompareAt    *float64
	Image        *string
	CategorySlug *string
	Status       *string
}

func (r *GormRepo) PatchProduct(ctx context.Context, id uuid.UUID, p ProductPatch) (*models.Product, error) {
	var prod models.Product
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&prod).Error; err != nil {
		return nil, translate(err)
	}

	if p.Name != nil {
		prod.Name = *p.Name
	}
	if p.Slug != nil {
		prod.Slug = *p.Slug
	}
	if p.Price != nil {
		prod.Price = *p.Price
	}
	if p.CompareAt != nil {
		prod.CompareAt = p.CompareAt
	}
	if p.Image != nil {
		prod.Image = *p.Image
	}
	if p.CategorySlug != nil {
		prod.CategorySlug = p.CategorySlug
	}
	if p.Status != nil {
		prod.Status = *p.Status
	}

	if err := r.DB.WithContext(ctx).Save(&prod).Error; err != nil {
		return nil, translate(err)
	}
	return &prod, nil
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).Count(&n).Error
	return n, err
}

func (r *GormRepo) ListCategories(ctx context.Context, q string) ([]models.Category, error) {
	db := r.DB.WithContext(ctx)
	if q = strings.TrimSpace(q); q != "" {
		pattern := likePattern(strings.ToLower(q))
		db = db.Where("LOWER(name) LIKE ? OR LOWER(slug) LIKE ?", pattern, pattern)
	}
	items := []models.Category{}
	if err := db.Order("sort_order ASC, name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) CreateCategory(ctx context.Context, c *models.Category) error {
	return translate(r.DB.WithContext(ctx).Create(c).Error)
}

type CategoryPatch struct {
	Name      *string
	Slug      *string
	SortOrder *int
}

func (r *GormRepo) PatchCategory(ctx context.Context, id uuid.UUID, p CategoryPatch) (*models.Category, error) {
	var c models.Category
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&c).Error; err != nil {
			return err
		}
		oldSlug := c.Slug
		if p.Name != nil {
			c.Name = *p.Name
		}
		if p.Slug != nil {
			c.Slug = *p.Slug
		}
		if p.SortOrder != nil {
			c.SortOrder = *p.SortOrder
		}
		if err := tx.Save(&c).Error; err != nil {
			return err
		}
		if c.Slug != oldSlug {
			return tx.Model(&models.Product{}).
				Where("category_slug = ?", oldSlug).
				Update("category_slug", c.Slug).Error
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// DeleteCategory removes a category and detaches its products.
func (r *GormRepo) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return translate(r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Category
		if err := tx.Where("id = ?", id).First(&c).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Product{}).
			Where("category_slug = ?", c.Slug).
			Update("category_slug", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&c).Error
	}))
}

func (r *GormRepo) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Category{}).Count(&n).Error
	return n, err
}
