package repo

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
)

// LinkExternal maps an outside identity to a local account. A stored link
// wins, then an account with the same email is linked, otherwise a new
// account is provisioned. created reports whether an account was made.
func (r *GormRepo) LinkExternal(ctx context.Context, provider string, p domain.ExternalProfile) (acc *models.Account, created bool, err error) {
	for attempt := 0; attempt < 2; attempt++ {
		acc, created, err = r.linkExternal(ctx, provider, p)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return acc, created, translate(err)
		}
	}
	return nil, false, translate(err)
}

func (r *GormRepo) linkExternal(ctx context.Context, provider string, p domain.ExternalProfile) (*models.Account, bool, error) {
	var (
		out     models.Account
		created bool
	)
	email := domain.NormalizeEmail(p.Email)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link models.IdentityLink
		err := tx.Where("provider = ? AND subject = ?", provider, p.Subject).First(&link).Error
		switch {
		case err == nil:
			return tx.Where("id = ?", link.AccountID).First(&out).Error
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		found := false
		if email != "" {
			err := tx.Where("email = ?", email).First(&out).Error
			switch {
			case err == nil:
				found = true
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}

		if !found {
			out = models.Account{Name: p.Name, Roles: pq.StringArray{models.RoleUser}}
			if len(p.Roles) > 0 {
				out.Roles = pq.StringArray(domain.NormalizeIDs(p.Roles))
			}
			if email != "" {
				out.Email = &email
			}
			if err := tx.Create(&out).Error; err != nil {
				return err
			}
			created = true
		}

		return tx.Create(&models.IdentityLink{
			Provider:  provider,
			Subject:   p.Subject,
			AccountID: out.ID,
			Email:     email,
		}).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &out, created, nil
}
