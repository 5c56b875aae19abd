package cart

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/session"
)

var errNoSession = errors.New("anonymous write without a session id")

// AccountStore is the durable per-account cart and wishlist.
type AccountStore interface {
	GetCart(ctx context.Context, accountID uuid.UUID) ([]domain.CartLine, error)
	ModifyCart(ctx context.Context, accountID uuid.UUID, fn repo.CartModifier) ([]domain.CartLine, error)
	GetWishlist(ctx context.Context, accountID uuid.UUID) ([]string, error)
	ModifyWishlist(ctx context.Context, accountID uuid.UUID, fn repo.WishlistModifier) ([]string, error)
}

type Service struct {
	Sessions session.Store
	Accounts AccountStore
	Lookup   catalog.Lookup
	Agg      *Aggregator
	Events   events.Publisher
}

func New(sessions session.Store, accounts AccountStore, lookup catalog.Lookup, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		Sessions: sessions,
		Accounts: accounts,
		Lookup:   lookup,
		Agg:      &Aggregator{Lookup: lookup},
		Events:   pub,
	}
}

// Owner says whose cart an operation targets: the account when the
// identity has one, the anonymous session otherwise.
type Owner struct {
	Identity  identity.Identity
	SessionID string
}

// requireProduct validates productID and returns its canonical form.
func (s *Service) requireProduct(ctx context.Context, productID string) (string, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return "", apperr.Validation("productId required")
	}
	p, err := s.Lookup.Product(ctx, productID)
	if errors.Is(err, catalog.ErrNotFound) {
		return "", apperr.NotFound("Product not found")
	}
	if err != nil {
		return "", err
	}
	return p.ProductID, nil
}

func (s *Service) lines(ctx context.Context, o Owner) ([]domain.CartLine, error) {
	if id, ok := o.Identity.Account(); ok {
		return s.Accounts.GetCart(ctx, id)
	}
	if o.SessionID == "" {
		return nil, nil
	}
	return s.Sessions.Cart(ctx, o.SessionID)
}

func (s *Service) Cart(ctx context.Context, o Owner) (*Summary, error) {
	lines, err := s.lines(ctx, o)
	if err != nil {
		return nil, err
	}
	return s.Agg.BuildCartSummary(ctx, lines)
}

func (s *Service) publish(ctx context.Context, o Owner, eventType string, data map[string]any) {
	key := o.SessionID
	if id, ok := o.Identity.Account(); ok {
		key = id.String()
	}
	if err := s.Events.Publish(ctx, events.TopicCart, key, events.New(eventType, data)); err != nil {
		logging.FromContext(ctx).Warn("publish_cart_event_error", "event", eventType, "error", err)
	}
}

// Add increases the quantity of productID by qty, clamped to at least 1,
// creating the line when absent. A nil qty adds one.
func (s *Service) Add(ctx context.Context, o Owner, productID string, qty *int) (*Summary, error) {
	pid, err := s.requireProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	n := 1
	if qty != nil {
		n = domain.ClampQuantity(*qty)
	}

	if id, ok := o.Identity.Account(); ok {
		lines, err := s.Accounts.ModifyCart(ctx, id, func(cur []domain.CartLine) ([]domain.CartLine, error) {
			for i := range cur {
				if cur[i].ProductID == pid {
					cur[i].Quantity = domain.ClampQuantity(cur[i].Quantity + n)
					return cur, nil
				}
			}
			return append(cur, domain.CartLine{ProductID: pid, Quantity: n}), nil
		})
		if err != nil {
			return nil, err
		}
		s.publish(ctx, o, "cart.item_added", map[string]any{"productId": pid, "quantity": n})
		return s.Agg.BuildCartSummary(ctx, lines)
	}

	if o.SessionID == "" {
		return nil, errNoSession
	}
	if err := s.Sessions.AddToCart(ctx, o.SessionID, pid, n); err != nil {
		return nil, err
	}
	s.publish(ctx, o, "cart.item_added", map[string]any{"productId": pid, "quantity": n})
	return s.Cart(ctx, o)
}

// Update sets the quantity of productID, clamped to at least 1.
func (s *Service) Update(ctx context.Context, o Owner, productID string, qty *int) (*Summary, error) {
	pid, err := s.requireProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	n := 1
	if qty != nil {
		n = domain.ClampQuantity(*qty)
	}

	if id, ok := o.Identity.Account(); ok {
		lines, err := s.Accounts.ModifyCart(ctx, id, func(cur []domain.CartLine) ([]domain.CartLine, error) {
			for i := range cur {
				if cur[i].ProductID == pid {
					cur[i].Quantity = n
					return cur, nil
				}
			}
			return append(cur, domain.CartLine{ProductID: pid, Quantity: n}), nil
		})
		if err != nil {
			return nil, err
		}
		return s.Agg.BuildCartSummary(ctx, lines)
	}

	if o.SessionID == "" {
		return nil, errNoSession
	}
	if err := s.Sessions.SetCartQuantity(ctx, o.SessionID, pid, n); err != nil {
		return nil, err
	}
	return s.Cart(ctx, o)
}

func (s *Service) Remove(ctx context.Context, o Owner, productID string) (*Summary, error) {
	pid := strings.TrimSpace(productID)
	if pid == "" {
		return nil, apperr.Validation("productId required")
	}

	if id, ok := o.Identity.Account(); ok {
		lines, err := s.Accounts.ModifyCart(ctx, id, func(cur []domain.CartLine) ([]domain.CartLine, error) {
			return slices.DeleteFunc(cur, func(l domain.CartLine) bool { return l.ProductID == pid }), nil
		})
		if err != nil {
			return nil, err
		}
		return s.Agg.BuildCartSummary(ctx, lines)
	}

	if o.SessionID != "" {
		if err := s.Sessions.RemoveFromCart(ctx, o.SessionID, pid); err != nil {
			return nil, err
		}
	}
	return s.Cart(ctx, o)
}

// Clear empties the cart. Clearing an empty cart is not an error.
func (s *Service) Clear(ctx context.Context, o Owner) (*Summary, error) {
	if id, ok := o.Identity.Account(); ok {
		if _, err := s.Accounts.ModifyCart(ctx, id, func([]domain.CartLine) ([]domain.CartLine, error) {
			return nil, nil
		}); err != nil {
			return nil, err
		}
	} else if o.SessionID != "" {
		if err := s.Sessions.ClearCart(ctx, o.SessionID); err != nil {
			return nil, err
		}
	}
	return s.Agg.BuildCartSummary(ctx, nil)
}
