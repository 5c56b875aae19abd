package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
)

type WishlistModifier func(current []string) ([]string, error)

func ensureWishlist(tx *gorm.DB, accountID uuid.UUID, lock bool) (*models.AccountWishlist, error) {
	seed := models.AccountWishlist{AccountID: accountID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, err
	}

	var wl models.AccountWishlist
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Where("account_id = ?", accountID).First(&wl).Error; err != nil {
		return nil, err
	}
	return &wl, nil
}

func loadWishlistIDs(tx *gorm.DB, wishlistID uuid.UUID) ([]string, error) {
	var ids []string
	if err := tx.Model(&models.AccountWishlistEntry{}).
		Where("wishlist_id = ?", wishlistID).
		Order("position ASC").
		Pluck("product_id", &ids).Error; err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (r *GormRepo) GetWishlist(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wl, err := ensureWishlist(tx, accountID, false)
		if err != nil {
			return err
		}
		ids, err = loadWishlistIDs(tx, wl.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *GormRepo) ReplaceWishlist(ctx context.Context, accountID uuid.UUID, ids []string) error {
	_, err := r.ModifyWishlist(ctx, accountID, func([]string) ([]string, error) {
		return ids, nil
	})
	return err
}

func (r *GormRepo) ModifyWishlist(ctx context.Context, accountID uuid.UUID, fn WishlistModifier) ([]string, error) {
	var next []string
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wl, err := ensureWishlist(tx, accountID, true)
		if err != nil {
			return err
		}
		current, err := loadWishlistIDs(tx, wl.ID)
		if err != nil {
			return err
		}

		next, err = fn(current)
		if err != nil {
			return err
		}
		next = domain.NormalizeIDs(next)

		if err := tx.Where("wishlist_id = ?", wl.ID).Delete(&models.AccountWishlistEntry{}).Error; err != nil {
			return err
		}
		if len(next) > 0 {
			rows := make([]models.AccountWishlistEntry, 0, len(next))
			for i, id := range next {
				rows = append(rows, models.AccountWishlistEntry{
					WishlistID: wl.ID,
					ProductID:  id,
					Position:   i,
				})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.AccountWishlist{}).
			Where("id = ?", wl.ID).
			Update("updated_at", time.Now().UTC()).Error
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}
