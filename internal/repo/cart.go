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

// CartModifier receives the current lines of an account cart and returns
// the lines that replace them.
type CartModifier func(current []domain.CartLine) ([]domain.CartLine, error)

func ensureCart(tx *gorm.DB, accountID uuid.UUID, lock bool) (*models.AccountCart, error) {
	seed := models.AccountCart{AccountID: accountID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, err
	}

	var cart models.AccountCart
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Where("account_id = ?", accountID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func loadCartLines(tx *gorm.DB, cartID uuid.UUID) ([]domain.CartLine, error) {
	var rows []models.AccountCartLine
	if err := tx.Where("cart_id = ?", cartID).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	lines := make([]domain.CartLine, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, domain.CartLine{ProductID: r.ProductID, Quantity: r.Quantity})
	}
	return lines, nil
}

// GetCart returns the account cart, creating an empty record on first use.
func (r *GormRepo) GetCart(ctx context.Context, accountID uuid.UUID) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := ensureCart(tx, accountID, false)
		if err != nil {
			return err
		}
		lines, err = loadCartLines(tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// ReplaceCart overwrites the account cart with lines.
func (r *GormRepo) ReplaceCart(ctx context.Context, accountID uuid.UUID, lines []domain.CartLine) error {
	_, err := r.ModifyCart(ctx, accountID, func([]domain.CartLine) ([]domain.CartLine, error) {
		return lines, nil
	})
	return err
}

// ModifyCart runs a read-modify-write of one account cart under a row lock.
func (r *GormRepo) ModifyCart(ctx context.Context, accountID uuid.UUID, fn CartModifier) ([]domain.CartLine, error) {
	var next []domain.CartLine
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		next, err = modifyCart(tx, accountID, fn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func modifyCart(tx *gorm.DB, accountID uuid.UUID, fn CartModifier) ([]domain.CartLine, error) {
	cart, err := ensureCart(tx, accountID, true)
	if err != nil {
		return nil, err
	}
	current, err := loadCartLines(tx, cart.ID)
	if err != nil {
		return nil, err
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	next = domain.NormalizeLines(next)

	if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.AccountCartLine{}).Error; err != nil {
		return nil, err
	}
	if len(next) > 0 {
		rows := make([]models.AccountCartLine, 0, len(next))
		for i, l := range next {
			rows = append(rows, models.AccountCartLine{
				CartID:    cart.ID,
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				Position:  i,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return nil, err
		}
	}

	err = tx.Model(&models.AccountCart{}).
		Where("id = ?", cart.ID).
		Update("updated_at", time.Now().UTC()).Error
	return next, err
}
