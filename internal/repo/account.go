package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateAccount(ctx context.Context, acc *models.Account) error {
	if acc.Email != nil {
		e := domain.NormalizeEmail(*acc.Email)
		acc.Email = &e
	}
	return translate(r.DB.WithContext(ctx).Create(acc).Error)
}

func (r *GormRepo) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var acc models.Account
	if err := r.DB.WithContext(ctx).
		Where("email = ?", domain.NormalizeEmail(email)).
		First(&acc).Error; err != nil {
		return nil, translate(err)
	}
	return &acc, nil
}

func (r *GormRepo) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var acc models.Account
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&acc).Error; err != nil {
		return nil, translate(err)
	}
	return &acc, nil
}

func (r *GormRepo) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Update("last_login_at", time.Now().UTC()).Error
}

func (r *GormRepo) SetRoles(ctx context.Context, id uuid.UUID, roles []string) error {
	res := r.DB.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Update("roles", pq.StringArray(roles))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func accountQuery(q string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q = strings.TrimSpace(q); q != "" {
			pattern := likePattern(strings.ToLower(q))
			db = db.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", pattern, pattern)
		}
		return db
	}
}

func (r *GormRepo) ListAccounts(ctx context.Context, q string, offset, limit int) (int64, []models.Account, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Account{}).Scopes(accountQuery(q)).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := []models.Account{}
	if err := r.DB.WithContext(ctx).
		Scopes(accountQuery(q)).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

type AccountPatch struct {
	Name  *string
	Roles []string
}

func (r *GormRepo) PatchAccount(ctx context.Context, id uuid.UUID, p AccountPatch) (*models.Account, error) {
	var acc models.Account
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&acc).Error; err != nil {
		return nil, translate(err)
	}
	if p.Name != nil {
		acc.Name = *p.Name
	}
	if p.Roles != nil {
		acc.Roles = pq.StringArray(p.Roles)
	}
	if err := r.DB.WithContext(ctx).Save(&acc).Error; err != nil {
		return nil, translate(err)
	}
	return &acc, nil
}

// DeleteAccount removes an account with its links, tokens, cart and wishlist.
func (r *GormRepo) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", id).Delete(&models.IdentityLink{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("cart_id IN (?)",
			tx.Model(&models.AccountCart{}).Select("id").Where("account_id = ?", id),
		).Delete(&models.AccountCartLine{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&models.AccountCart{}).Error; err != nil {
			return err
		}
		if err := tx.Where("wishlist_id IN (?)",
			tx.Model(&models.AccountWishlist{}).Select("id").Where("account_id = ?", id),
		).Delete(&models.AccountWishlistEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&models.AccountWishlist{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&models.Account{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *GormRepo) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Account{}).Count(&n).Error
	return n, err
}
