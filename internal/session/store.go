// Package session keeps the cart and wishlist of visitors that are not
// signed in, keyed by an opaque session id.
package session

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/domain"
)

// Store is the anonymous cart and wishlist backend. Implementations must be
// safe for concurrent use.
type Store interface {
	Cart(ctx context.Context, sid string) ([]domain.CartLine, error)
	AddToCart(ctx context.Context, sid, productID string, qty int) error
	SetCartQuantity(ctx context.Context, sid, productID string, qty int) error
	RemoveFromCart(ctx context.Context, sid, productID string) error
	ClearCart(ctx context.Context, sid string) error
	// TakeCart returns the cart and clears it in one step.
	TakeCart(ctx context.Context, sid string) ([]domain.CartLine, error)

	Wishlist(ctx context.Context, sid string) ([]string, error)
	AddToWishlist(ctx context.Context, sid, productID string) error
	RemoveFromWishlist(ctx context.Context, sid, productID string) error
	ClearWishlist(ctx context.Context, sid string) error
	TakeWishlist(ctx context.Context, sid string) ([]string, error)

	Ping(ctx context.Context) error
}
