package repo

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()
	return New(testutil.OpenDB(t))
}

func TestGetCart_CreatesEmptyCartOnFirstUse(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	accountID := uuid.New()

	lines, err := r.GetCart(ctx, accountID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	lines, err = r.GetCart(ctx, accountID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	var n int64
	require.NoError(t, r.DB.Model(&models.AccountCart{}).Where("account_id = ?", accountID).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestReplaceCart_KeepsOrderAndCollapsesDuplicates(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	accountID := uuid.New()

	require.NoError(t, r.ReplaceCart(ctx, accountID, []domain.CartLine{
		{ProductID: "c", Quantity: 1},
		{ProductID: "a", Quantity: 0},
		{ProductID: "c", Quantity: 4},
		{ProductID: "b", Quantity: 2},
	}))

	lines, err := r.GetCart(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, []domain.CartLine{
		{ProductID: "c", Quantity: 4},
		{ProductID: "a", Quantity: 1},
		{ProductID: "b", Quantity: 2},
	}, lines)

	require.NoError(t, r.ReplaceCart(ctx, accountID, nil))
	lines, err = r.GetCart(ctx, accountID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestModifyCart_ErrorLeavesCartUntouched(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	accountID := uuid.New()
	require.NoError(t, r.ReplaceCart(ctx, accountID, []domain.CartLine{{ProductID: "a", Quantity: 2}}))

	boom := assert.AnError
	_, err := r.ModifyCart(ctx, accountID, func([]domain.CartLine) ([]domain.CartLine, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	lines, err := r.GetCart(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, []domain.CartLine{{ProductID: "a", Quantity: 2}}, lines)
}

func TestWishlist_ReplaceAndModify(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	accountID := uuid.New()

	ids, err := r.GetWishlist(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, []string{}, ids)

	require.NoError(t, r.ReplaceWishlist(ctx, accountID, []string{"b", "a", "b"}))
	next, err := r.ModifyWishlist(ctx, accountID, func(cur []string) ([]string, error) {
		return append(cur, "c", "a"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, next)

	ids, err = r.GetWishlist(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	email := gofakeit.Email()

	first := models.Account{Email: &email}
	require.NoError(t, r.CreateAccount(ctx, &first))
	assert.Equal(t, []string{models.RoleUser}, []string(first.Roles))

	upper := " " + email + " "
	second := models.Account{Email: &upper}
	assert.ErrorIs(t, r.CreateAccount(ctx, &second), ErrDuplicate)

	found, err := r.FindAccountByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = r.FindAccountByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLinkExternal(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	existingEmail := "known@example.com"
	existing := models.Account{Email: &existingEmail, Name: "Known"}
	require.NoError(t, r.CreateAccount(ctx, &existing))

	t.Run("links by email", func(t *testing.T) {
		acc, created, err := r.LinkExternal(ctx, "clerk", domain.ExternalProfile{Subject: "sub-1", Email: "KNOWN@example.com"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, existing.ID, acc.ID)
	})

	t.Run("stored link wins over email", func(t *testing.T) {
		acc, created, err := r.LinkExternal(ctx, "clerk", domain.ExternalProfile{Subject: "sub-1", Email: "other@example.com"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, existing.ID, acc.ID)
	})

	t.Run("provisions new account", func(t *testing.T) {
		acc, created, err := r.LinkExternal(ctx, "clerk", domain.ExternalProfile{Subject: "sub-2", Email: "new@example.com", Name: "New"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "new@example.com", acc.EmailValue())
		assert.Equal(t, []string{models.RoleUser}, []string(acc.Roles))

		again, created, err := r.LinkExternal(ctx, "clerk", domain.ExternalProfile{Subject: "sub-2"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, acc.ID, again.ID)
	})
}

func TestRotateRefreshToken_ReuseFails(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	accountID := uuid.New()

	first := &models.RefreshToken{
		AccountID: accountID,
		JTI:       uuid.NewString(),
		TokenHash: "hash-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, r.SaveRefreshToken(ctx, first))

	second := &models.RefreshToken{AccountID: accountID, JTI: uuid.NewString(), TokenHash: "hash-2", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, r.RotateRefreshToken(ctx, accountID, "hash-1", second))

	third := &models.RefreshToken{AccountID: accountID, JTI: uuid.NewString(), TokenHash: "hash-3", ExpiresAt: time.Now().Add(time.Hour)}
	assert.ErrorIs(t, r.RotateRefreshToken(ctx, accountID, "hash-1", third), ErrRefreshNotActive)

	var old models.RefreshToken
	require.NoError(t, r.DB.Where("jti = ?", first.JTI).First(&old).Error)
	require.NotNil(t, old.RevokedAt)
	require.NotNil(t, old.ReplacedBy)
	assert.Equal(t, second.JTI, *old.ReplacedBy)

	require.NoError(t, r.RevokeRefreshToken(ctx, "hash-2"))
	assert.ErrorIs(t, r.RotateRefreshToken(ctx, accountID, "hash-2", third), ErrRefreshNotActive)
}

func TestRotateRefreshToken_ExpiredFails(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	accountID := uuid.New()

	require.NoError(t, r.SaveRefreshToken(ctx, &models.RefreshToken{
		AccountID: accountID,
		JTI:       uuid.NewString(),
		TokenHash: "expired",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	next := &models.RefreshToken{AccountID: accountID, JTI: uuid.NewString(), TokenHash: "n", ExpiresAt: time.Now().Add(time.Hour)}
	assert.ErrorIs(t, r.RotateRefreshToken(ctx, accountID, "expired", next), ErrRefreshNotActive)
}

func TestListProducts_Filter(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	a := models.Product{Name: "Red Mug", Slug: "red-mug", Price: 5}
	b := models.Product{Name: "Blue Mug", Slug: "blue-mug", Price: 6, Status: "draft"}
	c := models.Product{Name: "Lamp", Slug: "lamp", Price: 30}
	for _, p := range []*models.Product{&a, &b, &c} {
		require.NoError(t, r.CreateProduct(ctx, p))
	}

	total, items, err := r.ListProducts(ctx, ProductFilter{Query: "MUG"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	total, _, err = r.ListProducts(ctx, ProductFilter{Query: "mug", Status: models.ProductStatusActive})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	total, items, err = r.ListProducts(ctx, ProductFilter{IDs: []uuid.UUID{c.ID}, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Lamp", items[0].Name)
}

func TestDeleteCategory_DetachesProducts(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	cat := models.Category{Name: "Kitchen", Slug: "kitchen"}
	require.NoError(t, r.CreateCategory(ctx, &cat))
	slug := cat.Slug
	p := models.Product{Name: "Pan", Slug: "pan", CategorySlug: &slug}
	require.NoError(t, r.CreateProduct(ctx, &p))

	require.NoError(t, r.DeleteCategory(ctx, cat.ID))
	got, err := r.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategorySlug)

	assert.ErrorIs(t, r.DeleteCategory(ctx, cat.ID), ErrNotFound)
}

func TestCreateOrder_ClearsAccountCart(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	accountID := uuid.New()
	require.NoError(t, r.ReplaceCart(ctx, accountID, []domain.CartLine{{ProductID: "a", Quantity: 1}}))

	order := &models.Order{
		Number:    "ORD-1",
		AccountID: &accountID,
		Status:    models.OrderStatusPending,
		Currency:  models.CurrencyUSD,
		Items:     []models.OrderItem{{ProductID: "a", Name: "A", Price: 1, Quantity: 1, LineTotal: 1}},
	}
	require.NoError(t, r.CreateOrder(ctx, order))

	lines, err := r.GetCart(ctx, accountID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	orders, err := r.ListOrders(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].Items, 1)
}

func TestCreateOrder_KeepsLinesAddedAfterPricing(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	accountID := uuid.New()

	// The order covers one a; the rest arrived after the cart was priced.
	require.NoError(t, r.ReplaceCart(ctx, accountID, []domain.CartLine{
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 3},
	}))

	order := &models.Order{
		Number:    "ORD-2",
		AccountID: &accountID,
		Status:    models.OrderStatusPending,
		Currency:  models.CurrencyUSD,
		Items:     []models.OrderItem{{ProductID: "a", Name: "A", Price: 1, Quantity: 1, LineTotal: 1}},
	}
	require.NoError(t, r.CreateOrder(ctx, order))

	lines, err := r.GetCart(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, []domain.CartLine{
		{ProductID: "a", Quantity: 1},
		{ProductID: "b", Quantity: 3},
	}, lines)
}
