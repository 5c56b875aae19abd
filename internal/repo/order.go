package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
)

// CreateOrder stores an order with its items. For account orders the
// ordered quantities are taken out of the account cart in the same
// transaction; lines added after the cart was priced stay.
func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		if order.AccountID == nil {
			return nil
		}
		ordered := make(map[string]int, len(order.Items))
		for _, it := range order.Items {
			ordered[it.ProductID] += it.Quantity
		}
		_, err := modifyCart(tx, *order.AccountID, func(current []domain.CartLine) ([]domain.CartLine, error) {
			left := make([]domain.CartLine, 0, len(current))
			for _, l := range current {
				l.Quantity -= ordered[l.ProductID]
				if l.Quantity > 0 {
					left = append(left, l)
				}
			}
			return left, nil
		})
		return err
	})
}

func (r *GormRepo) ListOrders(ctx context.Context, accountID uuid.UUID) ([]models.Order, error) {
	orders := []models.Order{}
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Order{}).Count(&n).Error
	return n, err
}
