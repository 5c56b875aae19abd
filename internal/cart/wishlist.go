package cart

import (
	"context"
	"slices"
	"strings"

	"github.com/Skotchmaster/storefront/internal/apperr"
)

func (s *Service) wishlistIDs(ctx context.Context, o Owner) ([]string, error) {
	if id, ok := o.Identity.Account(); ok {
		return s.Accounts.GetWishlist(ctx, id)
	}
	if o.SessionID == "" {
		return nil, nil
	}
	return s.Sessions.Wishlist(ctx, o.SessionID)
}

func (s *Service) Wishlist(ctx context.Context, o Owner) (*WishlistSummary, error) {
	ids, err := s.wishlistIDs(ctx, o)
	if err != nil {
		return nil, err
	}
	return s.Agg.BuildWishlistSummary(ctx, ids)
}

func (s *Service) AddToWishlist(ctx context.Context, o Owner, productID string) (*WishlistSummary, error) {
	pid, err := s.requireProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if id, ok := o.Identity.Account(); ok {
		ids, err := s.Accounts.ModifyWishlist(ctx, id, func(cur []string) ([]string, error) {
			if slices.Contains(cur, pid) {
				return cur, nil
			}
			return append(cur, pid), nil
		})
		if err != nil {
			return nil, err
		}
		return s.Agg.BuildWishlistSummary(ctx, ids)
	}

	if o.SessionID == "" {
		return nil, errNoSession
	}
	if err := s.Sessions.AddToWishlist(ctx, o.SessionID, pid); err != nil {
		return nil, err
	}
	return s.Wishlist(ctx, o)
}

func (s *Service) RemoveFromWishlist(ctx context.Context, o Owner, productID string) (*WishlistSummary, error) {
	pid := strings.TrimSpace(productID)
	if pid == "" {
		return nil, apperr.Validation("productId required")
	}

	if id, ok := o.Identity.Account(); ok {
		ids, err := s.Accounts.ModifyWishlist(ctx, id, func(cur []string) ([]string, error) {
			return slices.DeleteFunc(cur, func(v string) bool { return v == pid }), nil
		})
		if err != nil {
			return nil, err
		}
		return s.Agg.BuildWishlistSummary(ctx, ids)
	}

	if o.SessionID != "" {
		if err := s.Sessions.RemoveFromWishlist(ctx, o.SessionID, pid); err != nil {
			return nil, err
		}
	}
	return s.Wishlist(ctx, o)
}

func (s *Service) ClearWishlist(ctx context.Context, o Owner) (*WishlistSummary, error) {
	if id, ok := o.Identity.Account(); ok {
		if _, err := s.Accounts.ModifyWishlist(ctx, id, func([]string) ([]string, error) {
			return nil, nil
		}); err != nil {
			return nil, err
		}
	} else if o.SessionID != "" {
		if err := s.Sessions.ClearWishlist(ctx, o.SessionID); err != nil {
			return nil, err
		}
	}
	return s.Agg.BuildWishlistSummary(ctx, nil)
}
