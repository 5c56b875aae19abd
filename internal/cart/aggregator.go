// Package cart prices carts and wishlists and applies cart and wishlist
// operations to the anonymous session store or the account store,
// depending on who is asking.
package cart

import (
	"context"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/domain"
)

// ShippingFee is charged once on any non-empty cart.
const ShippingFee = 10.00

type PricedItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
}

type Summary struct {
	Items    []PricedItem `json:"items"`
	Subtotal float64      `json:"subtotal"`
	Shipping float64      `json:"shipping"`
	Total    float64      `json:"total"`
}

type WishlistItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
}

type WishlistSummary struct {
	Items []WishlistItem `json:"items"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type Aggregator struct {
	Lookup catalog.Lookup
}

// BuildCartSummary prices lines against the live catalog. Lines whose
// product no longer exists are left out without error.
func (a *Aggregator) BuildCartSummary(ctx context.Context, lines []domain.CartLine) (*Summary, error) {
	ctx, span := otel.Tracer("storefront/cart").Start(ctx, "cart.build_summary")
	defer span.End()

	out := &Summary{Items: []PricedItem{}}
	if len(lines) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := a.Lookup.Products(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	subtotal := 0.0
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			continue
		}
		q := domain.ClampQuantity(l.Quantity)
		line := p.Price * float64(q)
		subtotal += line
		out.Items = append(out.Items, PricedItem{
			ProductID: p.ProductID,
			Name:      p.Name,
			Slug:      p.Slug,
			Image:     p.Image,
			Price:     p.Price,
			Quantity:  q,
			LineTotal: round2(line),
		})
	}

	if len(out.Items) > 0 {
		out.Shipping = ShippingFee
	}
	out.Subtotal = round2(subtotal)
	out.Total = round2(out.Subtotal + out.Shipping)

	span.SetAttributes(
		attribute.Int("cart.lines", len(lines)),
		attribute.Int("cart.items", len(out.Items)),
	)
	return out, nil
}

func (a *Aggregator) BuildWishlistSummary(ctx context.Context, ids []string) (*WishlistSummary, error) {
	out := &WishlistSummary{Items: []WishlistItem{}}
	if len(ids) == 0 {
		return out, nil
	}

	products, err := a.Lookup.Products(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			continue
		}
		out.Items = append(out.Items, WishlistItem{
			ProductID: p.ProductID,
			Name:      p.Name,
			Slug:      p.Slug,
			Image:     p.Image,
			Price:     p.Price,
		})
	}
	return out, nil
}
