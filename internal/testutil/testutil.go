package testutil

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/models"
)

// OpenDB returns a migrated in-memory sqlite database closed at test end.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	ctx := context.Background()
	gdb, err := db.Open(ctx, "sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, gdb))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// SeedProduct inserts an active product with the given price.
func SeedProduct(t *testing.T, gdb *gorm.DB, price float64) models.Product {
	t.Helper()

	p := models.Product{
		Name:   gofakeit.ProductName(),
		Slug:   gofakeit.UUID(),
		Price:  price,
		Image:  gofakeit.URL(),
		Status: models.ProductStatusActive,
	}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}
