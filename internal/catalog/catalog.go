// Package catalog resolves product references held in carts and wishlists
// against the product table.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

var ErrNotFound = errors.New("product not found")

// ProductSummary is the slice of a product a cart or wishlist line shows.
type ProductSummary struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
}

type Lookup interface {
	Product(ctx context.Context, productID string) (*ProductSummary, error)
	Products(ctx context.Context, productIDs []string) (map[string]ProductSummary, error)
}

type Catalog struct {
	Repo *repo.GormRepo
}

func New(r *repo.GormRepo) *Catalog {
	return &Catalog{Repo: r}
}

func summarize(p models.Product) ProductSummary {
	image := p.Image
	if image == "" {
		image = models.DefaultProductImage
	}
	return ProductSummary{
		ProductID: p.ID.String(),
		Name:      p.Name,
		Slug:      p.Slug,
		Price:     p.Price,
		Image:     image,
	}
}

// Product returns ErrNotFound for ids that are not well-formed.
func (c *Catalog) Product(ctx context.Context, productID string) (*ProductSummary, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return nil, ErrNotFound
	}
	p, err := c.Repo.GetProduct(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s := summarize(*p)
	return &s, nil
}

// Products resolves ids in one query. Unknown and malformed ids are absent
// from the result.
func (c *Catalog) Products(ctx context.Context, productIDs []string) (map[string]ProductSummary, error) {
	out := make(map[string]ProductSummary, len(productIDs))
	ids := make([]uuid.UUID, 0, len(productIDs))
	for _, raw := range productIDs {
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return out, nil
	}

	_, items, err := c.Repo.ListProducts(ctx, repo.ProductFilter{IDs: ids})
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		out[p.ID.String()] = summarize(p)
	}
	return out, nil
}
