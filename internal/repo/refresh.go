package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) SaveRefreshToken(ctx context.Context, rec *models.RefreshToken) error {
	return translate(r.DB.WithContext(ctx).Create(rec).Error)
}

// RotateRefreshToken revokes the active token with oldHash and stores next
// in one transaction. The revoke is a single conditional update, so of two
// concurrent rotations of the same token only one succeeds.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, accountID uuid.UUID, oldHash string, next *models.RefreshToken) error {
	now := time.Now().UTC()
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("token_hash = ? AND account_id = ? AND revoked_at IS NULL AND expires_at > ?", oldHash, accountID, now).
			Updates(map[string]any{
				"revoked_at":  now,
				"replaced_by": next.JTI,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRefreshNotActive
		}
		return tx.Create(next).Error
	})
}

func (r *GormRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		Update("revoked_at", time.Now().UTC()).Error
}

func (r *GormRepo) RevokeAllRefreshTokens(ctx context.Context, accountID uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("account_id = ? AND revoked_at IS NULL", accountID).
		Update("revoked_at", time.Now().UTC()).Error
}
